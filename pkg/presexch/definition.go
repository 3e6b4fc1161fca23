/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package presexch matches credentials against DIF presentation definitions.
package presexch

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

const (
	// All rule`s value.
	All Selection = "all"
	// Pick rule`s value.
	Pick Selection = "pick"

	// Required limit_disclosure value.
	Required Preference = "required"
	// Preferred limit_disclosure value.
	Preferred Preference = "preferred"
)

type (
	// Selection can be "all" or "pick".
	Selection string
	// Preference can be "required" or "preferred".
	Preference string
)

// FormatDesignation lists the algorithms or proof types accepted for a claim format.
type FormatDesignation struct {
	Alg       []string `json:"alg,omitempty"`
	ProofType []string `json:"proof_type,omitempty"`
}

// Format maps claim format designations (jwt_vc_json, ldp_vc, vc+sd-jwt, ...) to their parameters.
type Format map[string]*FormatDesignation

// PresentationDefinition is a DIF presentation definition.
type PresentationDefinition struct {
	ID      string `json:"id"`
	Name    string `json:"name,omitempty"`
	Purpose string `json:"purpose,omitempty"`
	Format  Format `json:"format,omitempty"`
	// SubmissionRequirements group the input descriptors. Without them every input descriptor is required.
	SubmissionRequirements []*SubmissionRequirement `json:"submission_requirements,omitempty"`
	InputDescriptors       []*InputDescriptor       `json:"input_descriptors"`
}

// SubmissionRequirement describes which input descriptors must be submitted.
type SubmissionRequirement struct {
	Name       string                   `json:"name,omitempty"`
	Purpose    string                   `json:"purpose,omitempty"`
	Rule       Selection                `json:"rule"`
	Count      *int                     `json:"count,omitempty"`
	Min        *int                     `json:"min,omitempty"`
	Max        *int                     `json:"max,omitempty"`
	From       string                   `json:"from,omitempty"`
	FromNested []*SubmissionRequirement `json:"from_nested,omitempty"`
}

// InputDescriptor describes one credential the verifier asks for.
type InputDescriptor struct {
	ID          string       `json:"id"`
	Group       []string     `json:"group,omitempty"`
	Name        string       `json:"name,omitempty"`
	Purpose     string       `json:"purpose,omitempty"`
	Format      Format       `json:"format,omitempty"`
	Schema      []*Schema    `json:"schema,omitempty"`
	Constraints *Constraints `json:"constraints,omitempty"`
}

// Schema is an input descriptor schema of presentation exchange v1.
type Schema struct {
	URI      string `json:"uri"`
	Required bool   `json:"required,omitempty"`
}

// Constraints restrict the credentials matching an input descriptor.
type Constraints struct {
	LimitDisclosure *Preference `json:"limit_disclosure,omitempty"`
	Fields          []*Field    `json:"fields,omitempty"`
}

// Field selects a credential property by JSONPath and optionally checks it against a JSON schema filter.
type Field struct {
	ID       string          `json:"id,omitempty"`
	Path     []string        `json:"path"`
	Purpose  string          `json:"purpose,omitempty"`
	Name     string          `json:"name,omitempty"`
	Filter   json.RawMessage `json:"filter,omitempty"`
	Optional bool            `json:"optional,omitempty"`
}

// ParsePresentationDefinition decodes and validates a presentation definition.
func ParsePresentationDefinition(raw []byte) (*PresentationDefinition, error) {
	pd := &PresentationDefinition{}

	if err := json.Unmarshal(raw, pd); err != nil {
		return nil, fmt.Errorf("decode presentation definition: %w", err)
	}

	if err := pd.Validate(); err != nil {
		return nil, err
	}

	return pd, nil
}

// Validate checks the definition against the presentation exchange schema and checks that descriptor IDs
// are unique and that every group named by a submission requirement exists.
func (pd *PresentationDefinition) Validate() error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(definitionSchema),
		gojsonschema.NewGoLoader(pd),
	)
	if err != nil {
		return fmt.Errorf("validate presentation definition: %w", err)
	}

	if !result.Valid() {
		errs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			errs = append(errs, e.String())
		}

		return fmt.Errorf("invalid presentation definition: %s", strings.Join(errs, ", "))
	}

	ids := map[string]struct{}{}
	groups := map[string]struct{}{}

	for _, d := range pd.InputDescriptors {
		if _, ok := ids[d.ID]; ok {
			return fmt.Errorf("duplicate input descriptor id %q", d.ID)
		}

		ids[d.ID] = struct{}{}

		for _, g := range d.Group {
			groups[g] = struct{}{}
		}

		if err = d.compileFilters(); err != nil {
			return err
		}
	}

	for _, sr := range pd.SubmissionRequirements {
		if err = sr.validate(groups); err != nil {
			return err
		}
	}

	return nil
}

func (sr *SubmissionRequirement) validate(groups map[string]struct{}) error {
	if (sr.From == "") == (len(sr.FromNested) == 0) {
		return fmt.Errorf("submission requirement %q must have exactly one of from and from_nested", sr.Name)
	}

	if sr.From != "" {
		if _, ok := groups[sr.From]; !ok {
			return fmt.Errorf("submission requirement %q refers to unknown group %q", sr.Name, sr.From)
		}
	}

	for _, nested := range sr.FromNested {
		if err := nested.validate(groups); err != nil {
			return err
		}
	}

	return nil
}

func (d *InputDescriptor) compileFilters() error {
	if d.Constraints == nil {
		return nil
	}

	for _, f := range d.Constraints.Fields {
		if _, err := f.schema(); err != nil && !errors.Is(err, errNoFilter) {
			return fmt.Errorf("input descriptor %q: %w", d.ID, err)
		}
	}

	return nil
}

var errNoFilter = errors.New("no filter")

func (f *Field) schema() (*gojsonschema.Schema, error) {
	if len(f.Filter) == 0 {
		return nil, errNoFilter
	}

	s, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(f.Filter))
	if err != nil {
		return nil, fmt.Errorf("compile filter of field %v: %w", f.Path, err)
	}

	return s, nil
}

// LimitDisclosure reports whether the descriptor requires that only the constrained fields are disclosed.
func (d *InputDescriptor) LimitDisclosure() bool {
	return d.Constraints != nil && d.Constraints.LimitDisclosure != nil && *d.Constraints.LimitDisclosure == Required
}
