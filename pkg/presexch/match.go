/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package presexch

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/PaesslerAG/jsonpath"
	"github.com/samber/lo"
	"github.com/xeipuuv/gojsonschema"

	"github.com/trustbloc/walletcore/pkg/credential"
)

// MatchedSubmissionRequirement is a submission requirement with the credentials matching each of its
// input descriptors.
type MatchedSubmissionRequirement struct {
	Name        string
	Purpose     string
	Rule        Selection
	Count       int
	Min         int
	Max         int
	Descriptors []*MatchedInputDescriptor
	Nested      []*MatchedSubmissionRequirement
}

// MatchedInputDescriptor is an input descriptor with the credentials that satisfy it, in input order.
type MatchedInputDescriptor struct {
	ID         string
	Name       string
	Purpose    string
	MatchedVCs []*credential.Credential

	descriptor *InputDescriptor
}

// Descriptor returns the input descriptor that was matched.
func (m *MatchedInputDescriptor) Descriptor() *InputDescriptor {
	return m.descriptor
}

// MatchSubmissionRequirement matches the credentials against every input descriptor. Descriptors that no
// credential satisfies are still returned, with no matched credentials. A definition without submission
// requirements yields a single requirement naming all input descriptors. The result depends only on the
// definition and the credentials and their order.
func (pd *PresentationDefinition) MatchSubmissionRequirement(
	credentials []*credential.Credential,
) ([]*MatchedSubmissionRequirement, error) {
	docs := make([]*matchDoc, len(credentials))

	for i, vc := range credentials {
		if vc == nil {
			return nil, fmt.Errorf("credential at index %d is nil", i)
		}

		doc, err := newMatchDoc(vc)
		if err != nil {
			return nil, err
		}

		docs[i] = doc
	}

	matched := make(map[string]*MatchedInputDescriptor, len(pd.InputDescriptors))

	for _, d := range pd.InputDescriptors {
		m, err := pd.matchDescriptor(d, docs)
		if err != nil {
			return nil, err
		}

		matched[d.ID] = m
	}

	if len(pd.SubmissionRequirements) == 0 {
		descriptors := make([]*MatchedInputDescriptor, 0, len(pd.InputDescriptors))
		for _, d := range pd.InputDescriptors {
			descriptors = append(descriptors, matched[d.ID])
		}

		return []*MatchedSubmissionRequirement{{
			Rule:        All,
			Count:       len(descriptors),
			Descriptors: descriptors,
		}}, nil
	}

	requirements := make([]*MatchedSubmissionRequirement, 0, len(pd.SubmissionRequirements))
	for _, sr := range pd.SubmissionRequirements {
		requirements = append(requirements, pd.matchRequirement(sr, matched))
	}

	return requirements, nil
}

func (pd *PresentationDefinition) matchRequirement(
	sr *SubmissionRequirement,
	matched map[string]*MatchedInputDescriptor,
) *MatchedSubmissionRequirement {
	r := &MatchedSubmissionRequirement{
		Name:    sr.Name,
		Purpose: sr.Purpose,
		Rule:    sr.Rule,
		Count:   lo.FromPtr(sr.Count),
		Min:     lo.FromPtr(sr.Min),
		Max:     lo.FromPtr(sr.Max),
	}

	if sr.From != "" {
		for _, d := range pd.InputDescriptors {
			if lo.Contains(d.Group, sr.From) {
				r.Descriptors = append(r.Descriptors, matched[d.ID])
			}
		}

		return r
	}

	for _, nested := range sr.FromNested {
		r.Nested = append(r.Nested, pd.matchRequirement(nested, matched))
	}

	return r
}

func (pd *PresentationDefinition) matchDescriptor(d *InputDescriptor, docs []*matchDoc) (*MatchedInputDescriptor, error) {
	m := &MatchedInputDescriptor{
		ID:         d.ID,
		Name:       d.Name,
		Purpose:    d.Purpose,
		MatchedVCs: []*credential.Credential{},
		descriptor: d,
	}

	for _, doc := range docs {
		ok, err := pd.matches(d, doc)
		if err != nil {
			return nil, fmt.Errorf("input descriptor %q: %w", d.ID, err)
		}

		if ok {
			m.MatchedVCs = append(m.MatchedVCs, doc.vc)
		}
	}

	return m, nil
}

// Matches reports whether the credential satisfies the input descriptor.
func (pd *PresentationDefinition) Matches(d *InputDescriptor, vc *credential.Credential) (bool, error) {
	doc, err := newMatchDoc(vc)
	if err != nil {
		return false, err
	}

	return pd.matches(d, doc)
}

func (pd *PresentationDefinition) matches(d *InputDescriptor, doc *matchDoc) (bool, error) {
	if !formatMatches(pd.Format, doc.vc) || !formatMatches(d.Format, doc.vc) {
		return false, nil
	}

	if !schemaMatches(d.Schema, doc.vc) {
		return false, nil
	}

	if d.Constraints == nil {
		return true, nil
	}

	for _, f := range d.Constraints.Fields {
		ok, err := f.matches(doc)
		if err != nil || !ok {
			return false, err
		}
	}

	return true, nil
}

// matchDoc holds the decoded forms a credential can be addressed in: the credential document and, for
// JWT based credentials, the JWT claims.
type matchDoc struct {
	vc    *credential.Credential
	views []interface{}
}

func newMatchDoc(vc *credential.Credential) (*matchDoc, error) {
	doc := &matchDoc{vc: vc}

	for _, raw := range [][]byte{vc.Document(), vc.JWTClaims()} {
		if len(raw) == 0 {
			continue
		}

		var v interface{}

		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("decode credential %s: %w", vc.ID, err)
		}

		doc.views = append(doc.views, v)
	}

	return doc, nil
}

// matches is true if any path selects a value that passes the filter. An optional field also matches
// when none of its paths select a value.
func (f *Field) matches(doc *matchDoc) (bool, error) {
	schema, err := f.schema()
	if err != nil && !errors.Is(err, errNoFilter) {
		return false, err
	}

	found := false

	for _, path := range f.Path {
		for _, view := range doc.views {
			value, ok, selectErr := selectPath(path, view)
			if selectErr != nil {
				return false, selectErr
			}

			if !ok {
				continue
			}

			found = true

			if schema == nil || filterMatches(schema, value) {
				return true, nil
			}
		}
	}

	return f.Optional && !found, nil
}

func selectPath(path string, v interface{}) (interface{}, bool, error) {
	value, err := jsonpath.Get(path, v)
	if err != nil {
		msg := err.Error()
		if strings.HasPrefix(msg, "unknown key") || strings.HasPrefix(msg, "unsupported value type") ||
			strings.Contains(msg, "out of bounds") || strings.Contains(msg, "out of range") {
			return nil, false, nil
		}

		return nil, false, fmt.Errorf("evaluate path %q: %w", path, err)
	}

	if value == nil {
		return nil, false, nil
	}

	if values, isArray := value.([]interface{}); isArray && len(values) == 0 && strings.Contains(path, "*") {
		return nil, false, nil
	}

	return value, true, nil
}

// filterMatches validates value against the filter. Arrays also match when one of their elements does.
func filterMatches(schema *gojsonschema.Schema, value interface{}) bool {
	result, err := schema.Validate(gojsonschema.NewGoLoader(value))
	if err == nil && result.Valid() {
		return true
	}

	if values, ok := value.([]interface{}); ok {
		for _, item := range values {
			if filterMatches(schema, item) {
				return true
			}
		}
	}

	return false
}

var formatAliases = map[credential.Format][]string{
	credential.FormatJWTVC: {"jwt_vc_json", "jwt_vc", "jwt"},
	credential.FormatLDPVC: {"ldp_vc", "ldp"},
	credential.FormatSDJWT: {"vc+sd-jwt", "dc+sd-jwt"},
}

var vcFormats = lo.Flatten(lo.Values(formatAliases))

// formatMatches ignores presentation formats. When credential formats are listed, the credential format
// must be one of them.
func formatMatches(format Format, vc *credential.Credential) bool {
	listed := lo.Filter(lo.Keys(format), func(k string, _ int) bool {
		return lo.Contains(vcFormats, k)
	})

	if len(listed) == 0 {
		return true
	}

	return lo.Some(formatAliases[vc.Format], listed)
}

// schemaMatches implements the v1 schema check: a credential matches when one of its types or contexts
// equals a schema URI or is the fragment of one.
func schemaMatches(schemas []*Schema, vc *credential.Credential) bool {
	if len(schemas) == 0 {
		return true
	}

	candidates := append(append([]string{}, vc.Types...), vc.Contexts...)

	for _, s := range schemas {
		for _, c := range candidates {
			if s.URI == c || strings.HasSuffix(s.URI, "#"+c) {
				return true
			}
		}
	}

	return false
}
