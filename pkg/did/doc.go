/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package did models DID documents and the key material they publish.
package did

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// VerificationRelationship is a verification relationship of a DID document.
type VerificationRelationship int

const (
	Authentication VerificationRelationship = iota + 1
	AssertionMethod
	KeyAgreement
	CapabilityInvocation
	CapabilityDelegation
)

func (r VerificationRelationship) String() string {
	switch r {
	case Authentication:
		return "authentication"
	case AssertionMethod:
		return "assertionMethod"
	case KeyAgreement:
		return "keyAgreement"
	case CapabilityInvocation:
		return "capabilityInvocation"
	case CapabilityDelegation:
		return "capabilityDelegation"
	default:
		return fmt.Sprintf("relationship(%d)", int(r))
	}
}

// ContextV1 is the DID core JSON-LD context.
const ContextV1 = "https://www.w3.org/ns/did/v1"

// Resolver resolves DIDs to documents.
type Resolver interface {
	Resolve(ctx context.Context, did string) (*DocResolution, error)
}

// DID is a parsed decentralized identifier.
type DID struct {
	Method           string
	MethodSpecificID string
}

func (d *DID) String() string {
	return "did:" + d.Method + ":" + d.MethodSpecificID
}

// Parse parses a DID. Fragments, queries and paths are removed first.
func Parse(did string) (*DID, error) {
	did = StripDIDURL(did)

	const parts = 3

	p := strings.SplitN(did, ":", parts)
	if len(p) != parts || p[0] != "did" || p[1] == "" || p[2] == "" {
		return nil, fmt.Errorf("invalid DID: %q", did)
	}

	for _, c := range p[1] {
		if !(c >= 'a' && c <= 'z' || c >= '0' && c <= '9') {
			return nil, fmt.Errorf("invalid DID method: %q", p[1])
		}
	}

	return &DID{Method: p[1], MethodSpecificID: p[2]}, nil
}

// StripDIDURL removes the path, query and fragment of a DID URL.
func StripDIDURL(didURL string) string {
	if i := strings.IndexAny(didURL, "/?#"); i >= 0 {
		return didURL[:i]
	}

	return didURL
}

// Doc is a DID document.
type Doc struct {
	Context              interface{}          `json:"@context,omitempty"`
	ID                   string               `json:"id"`
	AlsoKnownAs          []string             `json:"alsoKnownAs,omitempty"`
	Controller           interface{}          `json:"controller,omitempty"`
	VerificationMethod   []VerificationMethod `json:"verificationMethod,omitempty"`
	Authentication       []Verification       `json:"authentication,omitempty"`
	AssertionMethod      []Verification       `json:"assertionMethod,omitempty"`
	KeyAgreement         []Verification       `json:"keyAgreement,omitempty"`
	CapabilityInvocation []Verification       `json:"capabilityInvocation,omitempty"`
	CapabilityDelegation []Verification       `json:"capabilityDelegation,omitempty"`
	Service              []Service            `json:"service,omitempty"`
}

// ParseDocument parses a DID document.
func ParseDocument(data []byte) (*Doc, error) {
	doc := &Doc{}

	if err := json.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("unmarshal DID document: %w", err)
	}

	if doc.ID == "" {
		return nil, errors.New("DID document has no id")
	}

	return doc, nil
}

func (d *Doc) relationship(rel VerificationRelationship) []Verification {
	switch rel {
	case Authentication:
		return d.Authentication
	case AssertionMethod:
		return d.AssertionMethod
	case KeyAgreement:
		return d.KeyAgreement
	case CapabilityInvocation:
		return d.CapabilityInvocation
	case CapabilityDelegation:
		return d.CapabilityDelegation
	default:
		return nil
	}
}

// VerificationMethods returns the methods for a relationship with references resolved.
// Dangling references are skipped.
func (d *Doc) VerificationMethods(rel VerificationRelationship) []*VerificationMethod {
	var methods []*VerificationMethod

	for i := range d.relationship(rel) {
		v := d.relationship(rel)[i]

		if v.Reference == "" {
			vm := v.VerificationMethod
			methods = append(methods, &vm)

			continue
		}

		if vm, ok := d.FindVerificationMethod(v.Reference); ok {
			methods = append(methods, vm)
		}
	}

	return methods
}

// FindVerificationMethod finds a method by absolute ID, relative reference or bare fragment,
// looking at the verificationMethod list and embedded relationship entries.
func (d *Doc) FindVerificationMethod(id string) (*VerificationMethod, bool) {
	matches := func(vmID string) bool {
		return vmID == id || d.absolute(vmID) == d.absolute(id)
	}

	for i := range d.VerificationMethod {
		if matches(d.VerificationMethod[i].ID) {
			vm := d.VerificationMethod[i]

			return &vm, true
		}
	}

	for _, rel := range []VerificationRelationship{
		Authentication, AssertionMethod, KeyAgreement, CapabilityInvocation, CapabilityDelegation,
	} {
		for _, v := range d.relationship(rel) {
			if v.Reference == "" && matches(v.ID) {
				vm := v.VerificationMethod

				return &vm, true
			}
		}
	}

	return nil, false
}

func (d *Doc) absolute(id string) string {
	switch {
	case strings.HasPrefix(id, "#"):
		return d.ID + id
	case !strings.Contains(id, ":"):
		return d.ID + "#" + id
	default:
		return id
	}
}

// ServicesByType returns services declaring the given type.
func (d *Doc) ServicesByType(serviceType string) []Service {
	var services []Service

	for _, s := range d.Service {
		for _, t := range s.Types() {
			if t == serviceType {
				services = append(services, s)

				break
			}
		}
	}

	return services
}

// VerificationMethod is a public key published in a DID document.
type VerificationMethod struct {
	ID                 string          `json:"id"`
	Type               string          `json:"type"`
	Controller         string          `json:"controller,omitempty"`
	PublicKeyJwk       json.RawMessage `json:"publicKeyJwk,omitempty"`
	PublicKeyMultibase string          `json:"publicKeyMultibase,omitempty"`
	PublicKeyBase58    string          `json:"publicKeyBase58,omitempty"`
}

// Verification is a relationship entry: either a reference to a method or an embedded one.
type Verification struct {
	VerificationMethod
	Reference string
}

// NewReferencedVerification returns an entry referring to a method by ID.
func NewReferencedVerification(id string) Verification {
	return Verification{Reference: id}
}

// NewEmbeddedVerification returns an entry embedding vm.
func NewEmbeddedVerification(vm VerificationMethod) Verification {
	return Verification{VerificationMethod: vm}
}

func (v Verification) MarshalJSON() ([]byte, error) {
	if v.Reference != "" {
		return json.Marshal(v.Reference)
	}

	return json.Marshal(v.VerificationMethod)
}

func (v *Verification) UnmarshalJSON(data []byte) error {
	var ref string

	if err := json.Unmarshal(data, &ref); err == nil {
		if ref == "" {
			return errors.New("empty verification method reference")
		}

		v.Reference = ref

		return nil
	}

	return json.Unmarshal(data, &v.VerificationMethod)
}

// Service is a DID document service entry.
type Service struct {
	ID              string          `json:"id"`
	Type            interface{}     `json:"type"`
	ServiceEndpoint json.RawMessage `json:"serviceEndpoint"`
}

// Types returns the service type values.
func (s *Service) Types() []string {
	switch t := s.Type.(type) {
	case string:
		return []string{t}
	case []interface{}:
		var types []string

		for _, v := range t {
			if str, ok := v.(string); ok {
				types = append(types, str)
			}
		}

		return types
	default:
		return nil
	}
}

// URIs returns the endpoint URIs. Endpoints may be a string, a list of strings or an object
// with an "origins" or "uri" member.
func (s *Service) URIs() []string {
	var single string

	if err := json.Unmarshal(s.ServiceEndpoint, &single); err == nil {
		return []string{single}
	}

	var list []string

	if err := json.Unmarshal(s.ServiceEndpoint, &list); err == nil {
		return list
	}

	var obj struct {
		Origins []string `json:"origins"`
		URI     string   `json:"uri"`
	}

	if err := json.Unmarshal(s.ServiceEndpoint, &obj); err == nil {
		if obj.URI != "" {
			return append(obj.Origins, obj.URI)
		}

		return obj.Origins
	}

	return nil
}

// DocResolution is the result of resolving a DID.
type DocResolution struct {
	DIDDocument *Doc
	// Content is the serialized document as published.
	Content []byte
	Metadata map[string]interface{}
}

// NewDocResolution wraps a document, serializing it as its content.
func NewDocResolution(doc *Doc) (*DocResolution, error) {
	content, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal DID document: %w", err)
	}

	return &DocResolution{DIDDocument: doc, Content: content}, nil
}

// ParseDocResolution accepts either a bare document or a DID resolution result.
func ParseDocResolution(data []byte) (*DocResolution, error) {
	var wrapper struct {
		DIDDocument      json.RawMessage        `json:"didDocument"`
		DocumentMetadata map[string]interface{} `json:"didDocumentMetadata"`
	}

	if err := json.Unmarshal(data, &wrapper); err != nil {
		return nil, fmt.Errorf("unmarshal DID resolution: %w", err)
	}

	content := data
	if len(wrapper.DIDDocument) > 0 {
		content = wrapper.DIDDocument
	}

	doc, err := ParseDocument(content)
	if err != nil {
		return nil, err
	}

	return &DocResolution{DIDDocument: doc, Content: content, Metadata: wrapper.DocumentMetadata}, nil
}

// AssertionMethodID returns the first assertion method of the document.
func (r *DocResolution) AssertionMethodID() (string, error) {
	methods := r.DIDDocument.VerificationMethods(AssertionMethod)
	if len(methods) == 0 {
		return "", fmt.Errorf("DID %s has no assertion method", r.DIDDocument.ID)
	}

	return r.DIDDocument.absolute(methods[0].ID), nil
}
