/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package web implements reading did:web documents.
package web

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/trustbloc/logutil-go/pkg/log"

	"github.com/trustbloc/walletcore/internal/httputil"
	"github.com/trustbloc/walletcore/internal/logfields"
	"github.com/trustbloc/walletcore/pkg/did"
)

var logger = log.New("did-web")

// DIDMethod is the method name.
const DIDMethod = "web"

const (
	prefix        = "did:" + DIDMethod + ":"
	wellKnownPath = "/.well-known"
	documentName  = "/did.json"
)

// VDR reads did:web documents over HTTPS.
type VDR struct {
	client *httputil.Client
}

// New returns a did:web VDR.
func New(client *httputil.Client) *VDR {
	if client == nil {
		client = httputil.NewClient(nil)
	}

	return &VDR{client: client}
}

// DocumentURL maps a did:web to the URL of its document.
func DocumentURL(didWeb string) (string, error) {
	if !strings.HasPrefix(didWeb, prefix) {
		return "", fmt.Errorf("did:web: invalid DID %q", didWeb)
	}

	segments := strings.Split(strings.TrimPrefix(did.StripDIDURL(didWeb), prefix), ":")

	host, err := url.PathUnescape(segments[0])
	if err != nil || host == "" {
		return "", fmt.Errorf("did:web: invalid host in %q", didWeb)
	}

	path := wellKnownPath

	if len(segments) > 1 {
		parts := make([]string, 0, len(segments)-1)

		for _, s := range segments[1:] {
			p, unescapeErr := url.PathUnescape(s)
			if unescapeErr != nil || p == "" {
				return "", fmt.Errorf("did:web: invalid path in %q", didWeb)
			}

			parts = append(parts, url.PathEscape(p))
		}

		path = "/" + strings.Join(parts, "/")
	}

	return "https://" + host + path + documentName, nil
}

// Read fetches and parses the document.
func (v *VDR) Read(ctx context.Context, didWeb string) (*did.DocResolution, error) {
	docURL, err := DocumentURL(didWeb)
	if err != nil {
		return nil, err
	}

	logger.Debugc(ctx, "Fetching did:web document", logfields.WithDID(didWeb), log.WithURL(docURL))

	resp, err := v.client.Get(ctx, docURL)
	if err != nil {
		return nil, fmt.Errorf("did:web: %w", err)
	}

	if err = resp.CheckStatus(); err != nil {
		return nil, fmt.Errorf("did:web: fetch %s: %w", docURL, err)
	}

	res, err := did.ParseDocResolution(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("did:web: %w", err)
	}

	if res.DIDDocument.ID != did.StripDIDURL(didWeb) {
		return nil, fmt.Errorf("did:web: document id %q does not match %q", res.DIDDocument.ID, didWeb)
	}

	return res, nil
}
