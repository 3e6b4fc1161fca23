/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package issuermetadata

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	"github.com/samber/lo"
	"github.com/tidwall/gjson"
)

// Metadata is the OpenID credential issuer metadata document.
type Metadata struct {
	CredentialIssuer                  string                              `json:"credential_issuer"`
	AuthorizationServer               string                              `json:"authorization_server,omitempty"`
	AuthorizationServers              []string                            `json:"authorization_servers,omitempty"`
	CredentialEndpoint                string                              `json:"credential_endpoint"`
	TokenEndpoint                     string                              `json:"token_endpoint,omitempty"`
	CredentialConfigurationsSupported map[string]*CredentialConfiguration `json:"credential_configurations_supported,omitempty"` //nolint:lll
	CredentialsSupported              []*CredentialConfiguration          `json:"credentials_supported,omitempty"`
	Display                           []LocalizedIssuerDisplay            `json:"display,omitempty"`
	SignedMetadata                    string                              `json:"signed_metadata,omitempty"`

	signedBy string
}

// LocalizedIssuerDisplay is the issuer display for one locale.
type LocalizedIssuerDisplay struct {
	Name            string `json:"name,omitempty"`
	Locale          string `json:"locale,omitempty"`
	Logo            *Logo  `json:"logo,omitempty"`
	BackgroundColor string `json:"background_color,omitempty"`
	TextColor       string `json:"text_color,omitempty"`
}

// Logo references an image. Older issuers publish "url", newer ones "uri".
type Logo struct {
	URI     string `json:"uri,omitempty"`
	URL     string `json:"url,omitempty"`
	AltText string `json:"alt_text,omitempty"`
}

// Location returns the logo URI.
func (l *Logo) Location() string {
	if l == nil {
		return ""
	}

	if l.URI != "" {
		return l.URI
	}

	return l.URL
}

// CredentialConfiguration describes one kind of credential the issuer offers.
type CredentialConfiguration struct {
	ID                   string                       `json:"id,omitempty"`
	Format               string                       `json:"format"`
	Scope                string                       `json:"scope,omitempty"`
	Types                []string                     `json:"types,omitempty"`
	CredentialDefinition *CredentialDefinition        `json:"credential_definition,omitempty"`
	VCT                  string                       `json:"vct,omitempty"`
	Claims               json.RawMessage              `json:"claims,omitempty"`
	Display              []LocalizedCredentialDisplay `json:"display,omitempty"`
}

// CredentialDefinition holds the credential types and the claim templates keyed by claim name.
type CredentialDefinition struct {
	Context           []string        `json:"@context,omitempty"`
	Type              []string        `json:"type,omitempty"`
	CredentialSubject json.RawMessage `json:"credentialSubject,omitempty"`
}

// LocalizedCredentialDisplay is the credential overview for one locale.
type LocalizedCredentialDisplay struct {
	Name            string `json:"name,omitempty"`
	Locale          string `json:"locale,omitempty"`
	Description     string `json:"description,omitempty"`
	Logo            *Logo  `json:"logo,omitempty"`
	BackgroundColor string `json:"background_color,omitempty"`
	TextColor       string `json:"text_color,omitempty"`
}

// Claim is the display template of one credential subject claim.
type Claim struct {
	Display   []LocalizedClaimDisplay `json:"display,omitempty"`
	ValueType string                  `json:"value_type,omitempty"`
	Order     *int                    `json:"order,omitempty"`
	Pattern   string                  `json:"pattern,omitempty"`
	Mask      string                  `json:"mask,omitempty"`
	Mandatory bool                    `json:"mandatory,omitempty"`
}

// LocalizedClaimDisplay is a claim label for one locale.
type LocalizedClaimDisplay struct {
	Name   string `json:"name,omitempty"`
	Locale string `json:"locale,omitempty"`
}

// SignedBy returns the issuer of the signed metadata, or an empty string if the metadata was not signed.
func (m *Metadata) SignedBy() string {
	return m.signedBy
}

// AuthorizationServerURL returns the authorization server to use for the issuer.
func (m *Metadata) AuthorizationServerURL() string {
	if len(m.AuthorizationServers) > 0 {
		return m.AuthorizationServers[0]
	}

	if m.AuthorizationServer != "" {
		return m.AuthorizationServer
	}

	return m.CredentialIssuer
}

// Configurations returns every credential configuration ordered by ID. Entries of the older
// credentials_supported list without an ID are named after their position.
func (m *Metadata) Configurations() []*CredentialConfiguration {
	configs := make([]*CredentialConfiguration, 0, len(m.CredentialConfigurationsSupported)+len(m.CredentialsSupported))

	ids := lo.Keys(m.CredentialConfigurationsSupported)
	sort.Strings(ids)

	for _, id := range ids {
		c := m.CredentialConfigurationsSupported[id]
		if c == nil {
			continue
		}

		withID := *c
		withID.ID = id
		configs = append(configs, &withID)
	}

	for i, c := range m.CredentialsSupported {
		if c == nil {
			continue
		}

		withID := *c
		if withID.ID == "" {
			withID.ID = strconv.Itoa(i)
		}

		configs = append(configs, &withID)
	}

	return configs
}

// Configuration returns the configuration with the given ID.
func (m *Metadata) Configuration(id string) (*CredentialConfiguration, bool) {
	return lo.Find(m.Configurations(), func(c *CredentialConfiguration) bool {
		return c.ID == id
	})
}

// LocalizedIssuerDisplay returns the issuer display for the preferred locale, falling back to the first one.
func (m *Metadata) LocalizedIssuerDisplay(preferredLocale string) *LocalizedIssuerDisplay {
	if len(m.Display) == 0 {
		return nil
	}

	for i := range m.Display {
		if localeMatches(m.Display[i].Locale, preferredLocale) {
			return &m.Display[i]
		}
	}

	return &m.Display[0]
}

// CredentialTypes returns the credential types the configuration describes.
func (c *CredentialConfiguration) CredentialTypes() []string {
	if c.CredentialDefinition != nil && len(c.CredentialDefinition.Type) > 0 {
		return c.CredentialDefinition.Type
	}

	if len(c.Types) > 0 {
		return c.Types
	}

	if c.VCT != "" {
		return []string{c.VCT}
	}

	return nil
}

// ClaimTemplates returns the claim templates as JSON so that they can be walked in document order.
func (c *CredentialConfiguration) ClaimTemplates() gjson.Result {
	if c.CredentialDefinition != nil && len(c.CredentialDefinition.CredentialSubject) > 0 {
		return gjson.ParseBytes(c.CredentialDefinition.CredentialSubject)
	}

	return gjson.ParseBytes(c.Claims)
}

// LocalizedDisplay returns the overview for the preferred locale, falling back to the first one.
func (c *CredentialConfiguration) LocalizedDisplay(preferredLocale string) *LocalizedCredentialDisplay {
	if len(c.Display) == 0 {
		return nil
	}

	for i := range c.Display {
		if localeMatches(c.Display[i].Locale, preferredLocale) {
			return &c.Display[i]
		}
	}

	return &c.Display[0]
}

// LocalizedDisplay returns the claim label for the preferred locale, falling back to the first one.
func (c *Claim) LocalizedDisplay(preferredLocale string) *LocalizedClaimDisplay {
	if len(c.Display) == 0 {
		return nil
	}

	for i := range c.Display {
		if localeMatches(c.Display[i].Locale, preferredLocale) {
			return &c.Display[i]
		}
	}

	return &c.Display[0]
}

func localeMatches(locale, preferred string) bool {
	return preferred != "" && strings.EqualFold(locale, preferred)
}
