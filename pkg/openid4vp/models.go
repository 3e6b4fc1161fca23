/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package openid4vp

import (
	"encoding/json"

	"github.com/trustbloc/walletcore/pkg/presexch"
)

type requestObject struct {
	JTI            string          `json:"jti"`
	IAT            int64           `json:"iat"`
	Exp            int64           `json:"exp"`
	Iss            string          `json:"iss"`
	ResponseType   string          `json:"response_type"`
	ResponseMode   string          `json:"response_mode"`
	ResponseURI    string          `json:"response_uri"`
	RedirectURI    string          `json:"redirect_uri"`
	Scope          string          `json:"scope"`
	Nonce          string          `json:"nonce"`
	ClientID       string          `json:"client_id"`
	ClientIDScheme string          `json:"client_id_scheme"`
	State          string          `json:"state"`
	ClientMetadata *clientMetadata `json:"client_metadata"`
	// Registration and Claims carry the client metadata and the definition in draft versions of the protocol.
	Registration           *clientMetadata `json:"registration"`
	PresentationDefinition json.RawMessage `json:"presentation_definition"`
	Claims                 *requestClaims  `json:"claims"`
}

type requestClaims struct {
	VPToken struct {
		PresentationDefinition json.RawMessage `json:"presentation_definition"`
	} `json:"vp_token"`
}

type clientMetadata struct {
	ClientName                  string          `json:"client_name"`
	ClientPurpose               string          `json:"client_purpose"`
	LogoURI                     string          `json:"logo_uri"`
	SubjectSyntaxTypesSupported []string        `json:"subject_syntax_types_supported"`
	VPFormats                   presexch.Format `json:"vp_formats"`
}

func (r *requestObject) metadata() *clientMetadata {
	switch {
	case r.ClientMetadata != nil:
		return r.ClientMetadata
	case r.Registration != nil:
		return r.Registration
	default:
		return &clientMetadata{}
	}
}

func (r *requestObject) responseURI() string {
	if r.ResponseURI != "" {
		return r.ResponseURI
	}

	return r.RedirectURI
}

func (r *requestObject) presentationDefinition() json.RawMessage {
	if len(r.PresentationDefinition) > 0 {
		return r.PresentationDefinition
	}

	if r.Claims != nil {
		return r.Claims.VPToken.PresentationDefinition
	}

	return nil
}

// VerifierDisplayData describes the verifier to the holder.
type VerifierDisplayData struct {
	DID     string `json:"did"`
	Name    string `json:"name,omitempty"`
	Purpose string `json:"purpose,omitempty"`
	LogoURI string `json:"logo_uri,omitempty"`
}

type vpTokenClaims struct {
	VP    json.RawMessage `json:"vp"`
	Nonce string          `json:"nonce"`
	Exp   int64           `json:"exp"`
	Iss   string          `json:"iss"`
	Aud   string          `json:"aud"`
	Nbf   int64           `json:"nbf"`
	Iat   int64           `json:"iat"`
	Jti   string          `json:"jti"`
}

type idTokenVPToken struct {
	PresentationSubmission *presexch.PresentationSubmission `json:"presentation_submission"`
}

type idTokenClaims struct {
	VPToken idTokenVPToken `json:"_vp_token"`
	Nonce   string         `json:"nonce"`
	Exp     int64          `json:"exp"`
	Iss     string         `json:"iss"`
	Aud     string         `json:"aud"`
	Sub     string         `json:"sub"`
	Nbf     int64          `json:"nbf"`
	Iat     int64          `json:"iat"`
	Jti     string         `json:"jti"`
}

type authorizedResponse struct {
	IDToken    string
	VPToken    string
	Submission *presexch.PresentationSubmission
	State      string
}
