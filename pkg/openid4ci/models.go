/*
Copyright Avast Software. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package openid4ci

import (
	"encoding/json"
)

const (
	PreAuthorizedCodeGrantType = "urn:ietf:params:oauth:grant-type:pre-authorized_code"
	AuthorizationCodeGrantType = "authorization_code"
)

// CredentialOffer is the offer an issuer hands to the wallet.
type CredentialOffer struct {
	CredentialIssuer           string   `json:"credential_issuer"`
	CredentialConfigurationIDs []string `json:"credential_configuration_ids,omitempty"`
	// Credentials is the pre-draft-13 form of CredentialConfigurationIDs. Entries are either
	// configuration IDs or {format, types} objects.
	Credentials []json.RawMessage `json:"credentials,omitempty"`
	Grants      Grants            `json:"grants"`
}

// Grants lists the grants the issuer is prepared to process.
type Grants struct {
	PreAuthorizedCode *PreAuthorizedCodeGrant `json:"urn:ietf:params:oauth:grant-type:pre-authorized_code,omitempty"`
	AuthorizationCode *AuthorizationCodeGrant `json:"authorization_code,omitempty"`
}

type PreAuthorizedCodeGrant struct {
	PreAuthorizedCode   string  `json:"pre-authorized_code"`
	TxCode              *TxCode `json:"tx_code,omitempty"`
	UserPINRequired     bool    `json:"user_pin_required,omitempty"`
	AuthorizationServer string  `json:"authorization_server,omitempty"`
}

// TxCode describes the transaction code (PIN) the user has to enter.
type TxCode struct {
	InputMode   string `json:"input_mode,omitempty"`
	Length      int    `json:"length,omitempty"`
	Description string `json:"description,omitempty"`
}

type AuthorizationCodeGrant struct {
	IssuerState         string `json:"issuer_state,omitempty"`
	AuthorizationServer string `json:"authorization_server,omitempty"`
}

// AuthorizeResult tells the caller what RequestCredential needs.
type AuthorizeResult struct {
	PINRequired bool
	TxCode      *TxCode
	// AuthorizationURL is set for the authorization code grant. The user completes authorization there and
	// the redirect is passed to RequestCredential with WithAuthorizationResponse.
	AuthorizationURL string
}

type legacyOfferedCredential struct {
	Format               string   `json:"format"`
	Types                []string `json:"types,omitempty"`
	CredentialDefinition *struct {
		Type []string `json:"type"`
	} `json:"credential_definition,omitempty"`
	VCT string `json:"vct,omitempty"`
}

type tokenResponse struct {
	AccessToken     string `json:"access_token"`
	TokenType       string `json:"token_type,omitempty"`
	ExpiresIn       int    `json:"expires_in,omitempty"`
	CNonce          string `json:"c_nonce,omitempty"`
	CNonceExpiresIn int    `json:"c_nonce_expires_in,omitempty"`
}

type oauthErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

type credentialRequest struct {
	Format               string                `json:"format,omitempty"`
	CredentialDefinition *credentialDefinition `json:"credential_definition,omitempty"`
	Types                []string              `json:"types,omitempty"`
	VCT                  string                `json:"vct,omitempty"`
	Proof                *jwtProof             `json:"proof,omitempty"`
}

type credentialDefinition struct {
	Context []string `json:"@context,omitempty"`
	Type    []string `json:"type"`
}

type jwtProof struct {
	ProofType string `json:"proof_type"`
	JWT       string `json:"jwt"`
}

type credentialResponse struct {
	Credential      json.RawMessage `json:"credential"`
	CNonce          string          `json:"c_nonce,omitempty"`
	CNonceExpiresIn int             `json:"c_nonce_expires_in,omitempty"`
}
