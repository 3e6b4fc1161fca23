/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package status

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/multiformats/go-multibase"

	"github.com/trustbloc/walletcore/pkg/credential"
	"github.com/trustbloc/walletcore/pkg/doc/vc/bitstring"
)

// Status entry types.
const (
	StatusList2021Entry      = "StatusList2021Entry"
	RevocationList2021Status = "RevocationList2021Status"
	BitstringStatusListEntry = "BitstringStatusListEntry"
)

// Status list credential subject types.
const (
	StatusList2021Type      = "StatusList2021"
	RevocationList2021Type  = "RevocationList2021"
	BitstringStatusListType = "BitstringStatusList"
)

const (
	purposeRevocation = "revocation"
	purposeSuspension = "suspension"
)

type processor struct {
	subjectType       string
	purposeRequired   bool
	multibaseEncoding multibase.Encoding
}

//nolint:gochecknoglobals
var processors = map[string]*processor{
	StatusList2021Entry: {
		subjectType:     StatusList2021Type,
		purposeRequired: true,
	},
	RevocationList2021Status: {
		subjectType: RevocationList2021Type,
	},
	BitstringStatusListEntry: {
		subjectType:       BitstringStatusListType,
		purposeRequired:   true,
		multibaseEncoding: multibase.Base64url,
	},
}

func processorFor(entry *credential.StatusEntry) (*processor, error) {
	p, ok := processors[entry.Type]
	if !ok {
		return nil, fmt.Errorf("vc status %s not supported", entry.Type)
	}

	return p, nil
}

func (p *processor) validate(entry *credential.StatusEntry) error {
	if entry.StatusListIndex == "" {
		return errors.New("statusListIndex field not exist in vc status")
	}

	if entry.StatusListCredential == "" {
		return errors.New("statusListCredential field not exist in vc status")
	}

	if p.purposeRequired && entry.StatusPurpose == "" {
		return errors.New("statusPurpose field not exist in vc status")
	}

	return nil
}

func (p *processor) index(entry *credential.StatusEntry) (int, error) {
	idx, err := strconv.Atoi(entry.StatusListIndex)
	if err != nil {
		return -1, fmt.Errorf("unable to get statusListIndex: %w", err)
	}

	if idx < 0 {
		return -1, fmt.Errorf("statusListIndex %d is negative", idx)
	}

	return idx, nil
}

func (p *processor) purpose(entry *credential.StatusEntry) string {
	if entry.StatusPurpose == "" {
		return purposeRevocation
	}

	return entry.StatusPurpose
}

func (p *processor) decode(encodedList string) (*bitstring.BitString, error) {
	if p.multibaseEncoding != multibase.Encoding(0) {
		return bitstring.DecodeBits(encodedList, bitstring.WithMultibaseEncoding(p.multibaseEncoding))
	}

	return bitstring.DecodeBits(encodedList)
}
