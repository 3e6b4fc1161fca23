/*
Copyright Avast Software. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package sdjwt parses selective disclosure JWTs and restores their disclosed claims.
package sdjwt

import (
	"crypto"
	_ "crypto/sha256" // register SHA-256
	_ "crypto/sha512" // register SHA-384 and SHA-512
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

const (
	// CombinedFormatSeparator separates the issuer JWT, disclosures and key binding JWT.
	CombinedFormatSeparator = "~"

	SDKey          = "_sd"
	SDAlgorithmKey = "_sd_alg"
	arrayElemKey   = "..."

	defaultSDAlg = "sha-256"
)

// CombinedFormat holds the parts of a serialized SD-JWT.
type CombinedFormat struct {
	SDJWT       string
	Disclosures []string
	KeyBinding  string
}

// Parse splits a combined format SD-JWT. A trailing non-empty part is treated as a key binding JWT.
func Parse(combined string) (*CombinedFormat, error) {
	parts := strings.Split(strings.TrimSpace(combined), CombinedFormatSeparator)
	if parts[0] == "" {
		return nil, errors.New("empty SD-JWT")
	}

	cf := &CombinedFormat{SDJWT: parts[0]}

	if len(parts) == 1 {
		return cf, nil
	}

	last := parts[len(parts)-1]
	if strings.Count(last, ".") == 2 { //nolint:gomnd
		cf.KeyBinding = last
	}

	for _, d := range parts[1 : len(parts)-1] {
		if d == "" {
			return nil, errors.New("empty disclosure")
		}

		cf.Disclosures = append(cf.Disclosures, d)
	}

	if cf.KeyBinding == "" && last != "" {
		cf.Disclosures = append(cf.Disclosures, last)
	}

	return cf, nil
}

// Serialize assembles the issuance form: the JWT followed by the disclosures, without key binding.
func (cf *CombinedFormat) Serialize() string {
	var sb strings.Builder

	sb.WriteString(cf.SDJWT)

	for _, d := range cf.Disclosures {
		sb.WriteString(CombinedFormatSeparator)
		sb.WriteString(d)
	}

	sb.WriteString(CombinedFormatSeparator)
	sb.WriteString(cf.KeyBinding)

	return sb.String()
}

// IsSDJWT reports whether s is in combined format.
func IsSDJWT(s string) bool {
	return strings.Contains(s, CombinedFormatSeparator)
}

// Disclosure is a decoded disclosure. Name is empty for array element disclosures.
type Disclosure struct {
	Encoded string
	Salt    string
	Name    string
	Value   interface{}

	arrayElement bool
}

// NewDisclosure encodes an object property disclosure.
func NewDisclosure(salt, name string, value interface{}) (*Disclosure, error) {
	return encode(&Disclosure{Salt: salt, Name: name, Value: value}, []interface{}{salt, name, value})
}

// NewArrayElementDisclosure encodes an array element disclosure.
func NewArrayElementDisclosure(salt string, value interface{}) (*Disclosure, error) {
	return encode(&Disclosure{Salt: salt, Value: value, arrayElement: true}, []interface{}{salt, value})
}

func encode(d *Disclosure, arr []interface{}) (*Disclosure, error) {
	b, err := json.Marshal(arr)
	if err != nil {
		return nil, fmt.Errorf("marshal disclosure: %w", err)
	}

	d.Encoded = base64.RawURLEncoding.EncodeToString(b)

	return d, nil
}

// ParseDisclosure decodes a base64url disclosure.
func ParseDisclosure(encoded string) (*Disclosure, error) {
	decoded, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode disclosure: %w", err)
	}

	var arr []interface{}

	if err = json.Unmarshal(decoded, &arr); err != nil {
		return nil, fmt.Errorf("unmarshal disclosure array: %w", err)
	}

	salt, ok := firstString(arr)
	if !ok {
		return nil, errors.New("disclosure salt must be a string")
	}

	d := &Disclosure{Encoded: encoded, Salt: salt}

	switch len(arr) {
	case 2: //nolint:gomnd
		d.Value = arr[1]
		d.arrayElement = true
	case 3: //nolint:gomnd
		name, isString := arr[1].(string)
		if !isString {
			return nil, fmt.Errorf("disclosure name type[%T] must be string", arr[1])
		}

		if name == SDKey || name == arrayElemKey {
			return nil, fmt.Errorf("disclosure name %q is reserved", name)
		}

		d.Name, d.Value = name, arr[2]
	default:
		return nil, fmt.Errorf("disclosure array size[%d] must be 2 or 3", len(arr))
	}

	return d, nil
}

func firstString(arr []interface{}) (string, bool) {
	if len(arr) == 0 {
		return "", false
	}

	s, ok := arr[0].(string)

	return s, ok
}

// Digest returns the base64url digest of the disclosure for the given _sd_alg.
func (d *Disclosure) Digest(sdAlg string) (string, error) {
	hash, err := cryptoHash(sdAlg)
	if err != nil {
		return "", err
	}

	h := hash.New()
	h.Write([]byte(d.Encoded))

	return base64.RawURLEncoding.EncodeToString(h.Sum(nil)), nil
}

func cryptoHash(sdAlg string) (crypto.Hash, error) {
	switch strings.ToLower(sdAlg) {
	case "", defaultSDAlg:
		return crypto.SHA256, nil
	case "sha-384":
		return crypto.SHA384, nil
	case "sha-512":
		return crypto.SHA512, nil
	default:
		return 0, fmt.Errorf("%s '%s' not supported", SDAlgorithmKey, sdAlg)
	}
}

// RestoreClaims replaces the digests in claims with the values of the matching disclosures.
// Undisclosed digests are dropped. A disclosure whose digest appears nowhere, or more than
// once, is an error. claims is not modified.
func RestoreClaims(claims map[string]interface{}, disclosures []string) (map[string]interface{}, error) {
	sdAlg, _ := claims[SDAlgorithmKey].(string)
	if sdAlg == "" {
		if vc, ok := claims["vc"].(map[string]interface{}); ok {
			sdAlg, _ = vc[SDAlgorithmKey].(string)
		}
	}

	r := &restorer{byDigest: map[string]*Disclosure{}, used: map[string]bool{}}

	for _, encoded := range disclosures {
		d, err := ParseDisclosure(encoded)
		if err != nil {
			return nil, err
		}

		digest, err := d.Digest(sdAlg)
		if err != nil {
			return nil, err
		}

		r.byDigest[digest] = d
	}

	restored, err := r.object(claims)
	if err != nil {
		return nil, err
	}

	for digest := range r.byDigest {
		if !r.used[digest] {
			return nil, fmt.Errorf("disclosure digest '%s' not found in SD-JWT disclosure digests", digest)
		}
	}

	return restored, nil
}

type restorer struct {
	byDigest map[string]*Disclosure
	used     map[string]bool
}

func (r *restorer) take(digest string) (*Disclosure, error) {
	d, ok := r.byDigest[digest]
	if !ok {
		return nil, nil //nolint:nilnil
	}

	if r.used[digest] {
		return nil, fmt.Errorf("digest '%s' has been included in more than one place", digest)
	}

	r.used[digest] = true

	return d, nil
}

func (r *restorer) object(in map[string]interface{}) (map[string]interface{}, error) {
	out := make(map[string]interface{}, len(in))

	for k, v := range in {
		if k == SDKey || k == SDAlgorithmKey {
			continue
		}

		restored, err := r.value(v)
		if err != nil {
			return nil, err
		}

		out[k] = restored
	}

	digests, _ := in[SDKey].([]interface{})

	for _, raw := range digests {
		digest, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("%s entries must be strings", SDKey)
		}

		d, err := r.take(digest)
		if err != nil {
			return nil, err
		}

		if d == nil {
			continue
		}

		if d.arrayElement {
			return nil, errors.New("array element disclosure referenced from an object")
		}

		if _, exists := out[d.Name]; exists {
			return nil, fmt.Errorf("claim name '%s' already exists at the same level", d.Name)
		}

		value, err := r.value(d.Value)
		if err != nil {
			return nil, err
		}

		out[d.Name] = value
	}

	return out, nil
}

func (r *restorer) value(v interface{}) (interface{}, error) {
	switch t := v.(type) {
	case map[string]interface{}:
		return r.object(t)
	case []interface{}:
		return r.array(t)
	default:
		return v, nil
	}
}

func (r *restorer) array(in []interface{}) ([]interface{}, error) {
	out := make([]interface{}, 0, len(in))

	for _, elem := range in {
		if m, ok := elem.(map[string]interface{}); ok && len(m) == 1 {
			if digest, isDigest := m[arrayElemKey].(string); isDigest {
				d, err := r.take(digest)
				if err != nil {
					return nil, err
				}

				if d == nil {
					continue
				}

				if !d.arrayElement {
					return nil, errors.New("object property disclosure referenced from an array")
				}

				value, err := r.value(d.Value)
				if err != nil {
					return nil, err
				}

				out = append(out, value)

				continue
			}
		}

		value, err := r.value(elem)
		if err != nil {
			return nil, err
		}

		out = append(out, value)
	}

	return out, nil
}
