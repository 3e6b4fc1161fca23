/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package presexch

import (
	"fmt"

	"github.com/trustbloc/walletcore/pkg/credential"
	"github.com/trustbloc/walletcore/pkg/walleterror"
)

// SelectedDescriptor maps a selected credential to an input descriptor it is submitted for.
type SelectedDescriptor struct {
	DescriptorID string
	Credential   *credential.Credential
}

// ValidateSelection checks that the selected credentials satisfy the matched requirements. A credential
// is submitted for every input descriptor it matches. Mappings are returned in selection order, then in
// descriptor order.
func ValidateSelection(
	requirements []*MatchedSubmissionRequirement,
	selected []*credential.Credential,
) ([]*SelectedDescriptor, error) {
	if len(selected) == 0 {
		return nil, selectionError("no credentials selected")
	}

	descriptors := collectDescriptors(requirements, nil, map[string]bool{})
	assigned := map[string]bool{}
	result := make([]*SelectedDescriptor, 0, len(selected))

	for i, vc := range selected {
		if vc == nil {
			return nil, selectionError("selected credential at index %d is nil", i)
		}

		matched := false

		for _, d := range descriptors {
			if !containsCredential(d.MatchedVCs, vc) {
				continue
			}

			matched = true
			assigned[d.ID] = true
			result = append(result, &SelectedDescriptor{DescriptorID: d.ID, Credential: vc})
		}

		if !matched {
			return nil, selectionError("selected credential %s matches no input descriptor", vc.ID)
		}
	}

	for _, r := range requirements {
		if err := r.satisfiedBy(assigned); err != nil {
			return nil, walleterror.New(walleterror.SelectionError, err).WithComponent(walleterror.PresExchComponent)
		}
	}

	return result, nil
}

func (r *MatchedSubmissionRequirement) satisfiedBy(assigned map[string]bool) error {
	var total, satisfied int

	if len(r.Nested) > 0 {
		total = len(r.Nested)

		for _, n := range r.Nested {
			if n.satisfiedBy(assigned) == nil {
				satisfied++
			}
		}
	} else {
		total = len(r.Descriptors)

		for _, d := range r.Descriptors {
			if assigned[d.ID] {
				satisfied++
			}
		}
	}

	switch r.Rule {
	case All:
		if satisfied < total {
			return fmt.Errorf("submission requirement %q needs all %d inputs but %d are selected", r.Name, total, satisfied)
		}
	case Pick:
		if r.Count > 0 && satisfied != r.Count {
			return fmt.Errorf("submission requirement %q needs exactly %d inputs but %d are selected",
				r.Name, r.Count, satisfied)
		}

		if satisfied < r.Min {
			return fmt.Errorf("submission requirement %q needs at least %d inputs but %d are selected",
				r.Name, r.Min, satisfied)
		}

		if r.Max > 0 && satisfied > r.Max {
			return fmt.Errorf("submission requirement %q allows at most %d inputs but %d are selected",
				r.Name, r.Max, satisfied)
		}
	default:
		return fmt.Errorf("submission requirement %q has unknown rule %q", r.Name, r.Rule)
	}

	return nil
}

func collectDescriptors(
	requirements []*MatchedSubmissionRequirement,
	out []*MatchedInputDescriptor,
	seen map[string]bool,
) []*MatchedInputDescriptor {
	for _, r := range requirements {
		for _, d := range r.Descriptors {
			if !seen[d.ID] {
				seen[d.ID] = true
				out = append(out, d)
			}
		}

		out = collectDescriptors(r.Nested, out, seen)
	}

	return out
}

func containsCredential(vcs []*credential.Credential, vc *credential.Credential) bool {
	for _, c := range vcs {
		if c == vc || c.Serialize() == vc.Serialize() {
			return true
		}
	}

	return false
}

func selectionError(format string, args ...interface{}) error {
	return walleterror.Newf(walleterror.SelectionError, format, args...).WithComponent(walleterror.PresExchComponent)
}
