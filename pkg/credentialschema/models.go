/*
Copyright Avast Software. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package credentialschema

import (
	"encoding/json"
	"sort"

	"github.com/trustbloc/walletcore/pkg/walleterror"
)

// ResolvedDisplayData is the display information of issued credentials resolved against the metadata of
// their issuer.
type ResolvedDisplayData struct {
	IssuerDisplay      *ResolvedIssuerDisplay `json:"issuer_display,omitempty"`
	CredentialDisplays []CredentialDisplay    `json:"credential_displays,omitempty"`
}

// ResolvedIssuerDisplay is the display information of the issuer.
type ResolvedIssuerDisplay struct {
	Name            string `json:"name,omitempty"`
	Locale          string `json:"locale,omitempty"`
	Logo            *Logo  `json:"logo,omitempty"`
	BackgroundColor string `json:"background_color,omitempty"`
	TextColor       string `json:"text_color,omitempty"`
}

// CredentialDisplay is the display data of one credential. Claims are in the order their templates appear
// in the issuer metadata.
type CredentialDisplay struct {
	Overview *CredentialOverview `json:"overview,omitempty"`
	Claims   []ResolvedClaim     `json:"claims,omitempty"`
}

// CredentialOverview is the display data of a credential as a whole.
type CredentialOverview struct {
	Name            string `json:"name,omitempty"`
	Locale          string `json:"locale,omitempty"`
	Description     string `json:"description,omitempty"`
	Logo            *Logo  `json:"logo,omitempty"`
	BackgroundColor string `json:"background_color,omitempty"`
	TextColor       string `json:"text_color,omitempty"`
}

// ResolvedClaim is the display data of one claim. For masked claims Value holds the masked form, which
// is the one to show by default, and RawValue the original.
type ResolvedClaim struct {
	// RawID is the claim name in the credential. It is neither localized nor formatted.
	RawID     string `json:"raw_id,omitempty"`
	Label     string `json:"label,omitempty"`
	ValueType string `json:"value_type,omitempty"`
	RawValue  string `json:"raw_value,omitempty"`
	Value     string `json:"value,omitempty"`
	Order     *int   `json:"order,omitempty"`
	Pattern   string `json:"pattern,omitempty"`
	Mask      string `json:"mask,omitempty"`
	Locale    string `json:"locale,omitempty"`
}

// Logo is the display information of a logo.
type Logo struct {
	URL     string `json:"url,omitempty"`
	AltText string `json:"alt_text,omitempty"`
}

// IsMasked reports whether the claim value is masked.
func (c *ResolvedClaim) IsMasked() bool {
	return c.Mask != ""
}

// SortedClaims returns the claims with an order first, by ascending order, followed by the
// claims without one in their original order.
func (d *CredentialDisplay) SortedClaims() []ResolvedClaim {
	sorted := make([]ResolvedClaim, len(d.Claims))
	copy(sorted, d.Claims)

	sort.SliceStable(sorted, func(i, j int) bool {
		oi, oj := sorted[i].Order, sorted[j].Order

		switch {
		case oi == nil:
			return false
		case oj == nil:
			return true
		default:
			return *oi < *oj
		}
	})

	return sorted
}

// Serialize returns the JSON form of the display data.
func (d *ResolvedDisplayData) Serialize() (string, error) {
	b, err := json.Marshal(d)
	if err != nil {
		return "", walleterror.New(walleterror.SystemError, err).WithComponent(walleterror.DisplayComponent)
	}

	return string(b), nil
}

// ParseDisplayData parses display data produced by Serialize.
func ParseDisplayData(displayData string) (*ResolvedDisplayData, error) {
	d := &ResolvedDisplayData{}

	if err := json.Unmarshal([]byte(displayData), d); err != nil {
		return nil, walleterror.Newf(walleterror.InvalidArgumentError, "parse display data: %w", err).
			WithComponent(walleterror.DisplayComponent)
	}

	return d, nil
}
