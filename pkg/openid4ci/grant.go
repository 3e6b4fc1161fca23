/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package openid4ci

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/samber/lo"

	"github.com/trustbloc/walletcore/pkg/issuermetadata"
)

const (
	authorizationDetailsType = "openid_credential"
	codeVerifierLength       = 32
)

type authorizationDetail struct {
	Type                      string   `json:"type"`
	CredentialConfigurationID string   `json:"credential_configuration_id,omitempty"`
	Format                    string   `json:"format,omitempty"`
	Locations                 []string `json:"locations,omitempty"`
}

// offeredConfigurations resolves the offered credentials against the issuer metadata, in offer order.
func offeredConfigurations(
	offer *CredentialOffer,
	metadata *issuermetadata.Metadata,
) ([]*issuermetadata.CredentialConfiguration, error) {
	var configurations []*issuermetadata.CredentialConfiguration

	for _, id := range offer.CredentialConfigurationIDs {
		config, ok := metadata.Configuration(id)
		if !ok {
			return nil, protocolError(fmt.Errorf("offered credential configuration %q is not supported by %s",
				id, metadata.CredentialIssuer))
		}

		configurations = append(configurations, config)
	}

	for _, raw := range offer.Credentials {
		config, err := legacyConfiguration(raw, metadata)
		if err != nil {
			return nil, err
		}

		configurations = append(configurations, config)
	}

	return configurations, nil
}

// legacyConfiguration resolves an entry of the credentials list, which is either a configuration ID or an
// inline {format, types} description.
func legacyConfiguration(
	raw json.RawMessage,
	metadata *issuermetadata.Metadata,
) (*issuermetadata.CredentialConfiguration, error) {
	var id string

	if json.Unmarshal(raw, &id) == nil {
		config, ok := metadata.Configuration(id)
		if !ok {
			return nil, protocolError(fmt.Errorf("offered credential %q is not supported by %s",
				id, metadata.CredentialIssuer))
		}

		return config, nil
	}

	var offered legacyOfferedCredential

	if err := json.Unmarshal(raw, &offered); err != nil {
		return nil, protocolError(fmt.Errorf("unmarshal offered credential: %w", err))
	}

	types := offered.Types
	if offered.CredentialDefinition != nil {
		types = offered.CredentialDefinition.Type
	}

	if offered.VCT != "" {
		types = []string{offered.VCT}
	}

	if offered.Format == "" || len(types) == 0 {
		return nil, protocolError(fmt.Errorf("offered credential %s has no format or types", raw))
	}

	for _, config := range metadata.Configurations() {
		if config.Format == offered.Format && lo.Every(config.CredentialTypes(), types) {
			return config, nil
		}
	}

	return &issuermetadata.CredentialConfiguration{Format: offered.Format, Types: offered.Types, VCT: offered.VCT,
		CredentialDefinition: definitionOf(offered)}, nil
}

func definitionOf(offered legacyOfferedCredential) *issuermetadata.CredentialDefinition {
	if offered.CredentialDefinition == nil {
		return nil
	}

	return &issuermetadata.CredentialDefinition{Type: offered.CredentialDefinition.Type}
}

func authorizationDetails(
	credentialIssuer string,
	configurations []*issuermetadata.CredentialConfiguration,
) (string, error) {
	details := lo.Map(configurations, func(c *issuermetadata.CredentialConfiguration, _ int) *authorizationDetail {
		d := &authorizationDetail{
			Type:                      authorizationDetailsType,
			CredentialConfigurationID: c.ID,
			Locations:                 []string{credentialIssuer},
		}

		if c.ID == "" {
			d.Format = c.Format
		}

		return d
	})

	b, err := json.Marshal(details)
	if err != nil {
		return "", fmt.Errorf("marshal authorization details: %w", err)
	}

	return string(b), nil
}

// newPKCE returns a code verifier and its S256 challenge.
func newPKCE() (string, string, error) {
	b := make([]byte, codeVerifierLength)

	if _, err := rand.Read(b); err != nil {
		return "", "", fmt.Errorf("generate code verifier: %w", err)
	}

	verifier := base64.RawURLEncoding.EncodeToString(b)
	sum := sha256.Sum256([]byte(verifier))

	return verifier, base64.RawURLEncoding.EncodeToString(sum[:]), nil
}
