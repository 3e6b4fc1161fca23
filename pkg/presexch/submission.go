/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package presexch

import (
	"github.com/google/uuid"
)

// PresentationSubmission is the container for the descriptor_map:
// https://identity.foundation/presentation-exchange/#presentation-submission.
type PresentationSubmission struct {
	ID            string                    `json:"id"`
	DefinitionID  string                    `json:"definition_id"`
	DescriptorMap []*InputDescriptorMapping `json:"descriptor_map"`
}

// InputDescriptorMapping maps an input descriptor to the credential found at Path.
type InputDescriptorMapping struct {
	ID         string                  `json:"id,omitempty"`
	Format     string                  `json:"format,omitempty"`
	Path       string                  `json:"path,omitempty"`
	PathNested *InputDescriptorMapping `json:"path_nested,omitempty"`
}

// NewPresentationSubmission returns a submission for the definition with a random ID.
func (pd *PresentationDefinition) NewPresentationSubmission(mappings []*InputDescriptorMapping) *PresentationSubmission {
	if mappings == nil {
		mappings = []*InputDescriptorMapping{}
	}

	return &PresentationSubmission{
		ID:            uuid.NewString(),
		DefinitionID:  pd.ID,
		DescriptorMap: mappings,
	}
}
