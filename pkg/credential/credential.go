/*
Copyright Avast Software. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package credential parses verifiable credentials in JWT, SD-JWT and JSON-LD form.
package credential

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// Format is the serialization of a credential, named as in OpenID4VCI.
type Format string

const (
	FormatJWTVC Format = "jwt_vc_json"
	FormatLDPVC Format = "ldp_vc"
	FormatSDJWT Format = "vc+sd-jwt"
)

// TypeVerifiableCredential is the base type of every credential.
const TypeVerifiableCredential = "VerifiableCredential"

// StatusEntry is the credentialStatus of a credential.
type StatusEntry struct {
	ID                   string                 `json:"id,omitempty"`
	Type                 string                 `json:"type"`
	StatusPurpose        string                 `json:"statusPurpose,omitempty"`
	StatusListIndex      string                 `json:"statusListIndex,omitempty"`
	StatusListCredential string                 `json:"statusListCredential,omitempty"`
	CustomFields         map[string]interface{} `json:"-"`
}

// Credential is a parsed verifiable credential. It is immutable once parsed.
type Credential struct {
	ID             string
	IssuerID       string
	IssuerName     string
	Name           string
	Types          []string
	Contexts       []string
	SubjectIDs     []string
	IssuanceDate   *time.Time
	ExpirationDate *time.Time
	Format         Format
	Status         *StatusEntry

	serialized  string
	document    []byte
	jwtClaims   []byte
	disclosures map[string]interface{}
}

// Serialize returns the credential exactly as it was parsed.
func (c *Credential) Serialize() string {
	return c.serialized
}

// Document returns the credential as a JSON-LD style document. For JWT forms this is the "vc"
// claim with the registered JWT claims mapped onto it; selectively disclosed claims are restored.
func (c *Credential) Document() []byte {
	return c.document
}

// Contents returns a copy of Document as a map.
func (c *Credential) Contents() map[string]interface{} {
	m := map[string]interface{}{}

	_ = json.Unmarshal(c.document, &m) //nolint:errcheck

	return m
}

// JWTClaims returns the full JWT claims set for JWT and SD-JWT credentials, or nil.
func (c *Credential) JWTClaims() []byte {
	return c.jwtClaims
}

// Subject returns the first credential subject.
func (c *Credential) Subject() gjson.Result {
	s := gjson.GetBytes(c.document, "credentialSubject")
	if s.IsArray() {
		return s.Get("0")
	}

	return s
}

// HasType reports whether the credential declares the given type.
func (c *Credential) HasType(t string) bool {
	for _, v := range c.Types {
		if v == t {
			return true
		}
	}

	return false
}

// ClaimTypes returns the "type" claim of the subject, looking at the selective disclosures first.
func (c *Credential) ClaimTypes() []string {
	if v, ok := c.disclosures["type"]; ok {
		return stringOrArray(v)
	}

	t := c.Subject().Get("type")
	if !t.Exists() {
		return nil
	}

	return stringOrArray(t.Value())
}

// IsExpired reports whether the expiration date has passed.
func (c *Credential) IsExpired() bool {
	return c.ExpirationDate != nil && c.ExpirationDate.Before(time.Now())
}

func stringOrArray(v interface{}) []string {
	switch t := v.(type) {
	case string:
		return []string{t}
	case []interface{}:
		out := make([]string, 0, len(t))

		for _, item := range t {
			s, ok := item.(string)
			if !ok {
				return nil
			}

			out = append(out, s)
		}

		return out
	case []string:
		return t
	default:
		return nil
	}
}

func parseTime(s string) *time.Time {
	if s == "" {
		return nil
	}

	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, strings.TrimSpace(s)); err == nil {
			return &t
		}
	}

	return nil
}
