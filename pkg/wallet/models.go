/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package wallet

import (
	"encoding/json"

	"github.com/trustbloc/walletcore/pkg/did/wellknown"
)

// CreateDIDRequest selects the DID method and key type of a new DID.
type CreateDIDRequest struct {
	DIDMethodType string `json:"didMethodType"`
	KeyType       string `json:"keyType,omitempty"`
}

// CreateDIDResponse carries the new DID and its document.
type CreateDIDResponse struct {
	DID    string          `json:"did"`
	DIDDoc json.RawMessage `json:"didDoc"`
}

// FetchDIDRequest names a DID to resolve.
type FetchDIDRequest struct {
	DID string `json:"did"`
}

// FetchDIDResponse carries the resolved DID document.
type FetchDIDResponse struct {
	DIDDoc json.RawMessage `json:"didDoc"`
}

// AuthorizeRequest carries a credential offer, either as a URI or as a base64 QR code image.
type AuthorizeRequest struct {
	RequestURI string `json:"requestURI,omitempty"`
	QRCode     string `json:"qrCode,omitempty"`
}

// AuthorizeResponse identifies the issuance session and what the user has to provide next.
type AuthorizeResponse struct {
	SessionID        string `json:"sessionID"`
	UserPINRequired  bool   `json:"userPINRequired"`
	PINLength        int    `json:"pinLength,omitempty"`
	PINDescription   string `json:"pinDescription,omitempty"`
	AuthorizationURL string `json:"authorizationURL,omitempty"`
}

// SessionRequest names an existing session.
type SessionRequest struct {
	SessionID string `json:"sessionID"`
}

// IssuerURIResponse carries the credential issuer of an issuance session.
type IssuerURIResponse struct {
	IssuerURI string `json:"issuerURI"`
}

// RequestCredentialRequest completes an issuance session. DID defaults to the last DID created by
// the wallet.
type RequestCredentialRequest struct {
	SessionID             string `json:"sessionID"`
	DID                   string `json:"did,omitempty"`
	OTP                   string `json:"otp,omitempty"`
	AuthorizationResponse string `json:"authorizationResponse,omitempty"`
}

// CredentialsResponse carries serialized credentials.
type CredentialsResponse struct {
	Credentials []string `json:"credentials"`
}

// SerializeDisplayDataRequest lists the credentials to resolve display data for. The issuer is
// IssuerURI or, when empty, the issuer of the issuance session SessionID.
type SerializeDisplayDataRequest struct {
	IssuerURI   string   `json:"issuerURI,omitempty"`
	SessionID   string   `json:"sessionID,omitempty"`
	Credentials []string `json:"credentials"`
	Locale      string   `json:"locale,omitempty"`
}

// SerializeDisplayDataResponse carries the serialized resolved display data.
type SerializeDisplayDataResponse struct {
	DisplayData string `json:"displayData"`
}

// ResolveCredentialDisplayRequest carries display data produced by serializeDisplayData.
type ResolveCredentialDisplayRequest struct {
	DisplayData string `json:"displayData"`
}

// ResolveCredentialDisplayResponse is the flattened display of every credential.
type ResolveCredentialDisplayResponse struct {
	IssuerName  string               `json:"issuerName"`
	Credentials []*CredentialDisplay `json:"credentials"`
}

// CredentialDisplay is what a wallet UI shows for a credential.
type CredentialDisplay struct {
	OverviewName    string          `json:"overviewName"`
	Description     string          `json:"description,omitempty"`
	Logo            string          `json:"logo,omitempty"`
	TextColor       string          `json:"textColor,omitempty"`
	BackgroundColor string          `json:"backgroundColor,omitempty"`
	IssuerName      string          `json:"issuerName"`
	Claims          []*ClaimDisplay `json:"claims"`
}

// ClaimDisplay is a single labelled claim. Value is the masked value when a mask applies.
type ClaimDisplay struct {
	RawID     string `json:"rawID"`
	Label     string `json:"label"`
	ValueType string `json:"valueType,omitempty"`
	RawValue  string `json:"rawValue"`
	Value     string `json:"value,omitempty"`
	Order     *int   `json:"order,omitempty"`
	Locale    string `json:"locale,omitempty"`
}

// CredentialsRequest lists serialized credentials.
type CredentialsRequest struct {
	Credentials []string `json:"credentials"`
}

// CredIDResponse carries the ID of a credential.
type CredIDResponse struct {
	CredentialID string `json:"credentialID"`
}

// IssuerIDResponse carries the issuer of a credential.
type IssuerIDResponse struct {
	IssuerID string `json:"issuerID"`
}

// WellKnownDIDConfigRequest names the DID whose linked domains are checked.
type WellKnownDIDConfigRequest struct {
	IssuerID string `json:"issuerID"`
}

// WellKnownDIDConfigResponse is the linked domains check outcome.
type WellKnownDIDConfigResponse = wellknown.ValidationResult

// ProcessAuthorizationRequestRequest carries an authorization request, either as a URI or as a
// base64 QR code image. StoredCredentials are optionally matched right away.
type ProcessAuthorizationRequestRequest struct {
	AuthorizationRequest string   `json:"authorizationRequest,omitempty"`
	QRCode               string   `json:"qrCode,omitempty"`
	StoredCredentials    []string `json:"storedCredentials,omitempty"`
}

// ProcessAuthorizationRequestResponse identifies the presentation session. MatchedCredentials lists
// every stored credential that matches at least one input descriptor, in stored order.
type ProcessAuthorizationRequestResponse struct {
	SessionID          string   `json:"sessionID"`
	MatchedCredentials []string `json:"matchedCredentials,omitempty"`
}

// MatchRequest matches credentials within a presentation session.
type MatchRequest struct {
	SessionID   string   `json:"sessionID"`
	Credentials []string `json:"credentials"`
}

// MatchResponse lists the matched submission requirements.
type MatchResponse struct {
	Requirements []*SubmissionRequirement `json:"submissionRequirements"`
}

// SubmissionRequirement is a matched submission requirement.
type SubmissionRequirement struct {
	Name        string                   `json:"name,omitempty"`
	Purpose     string                   `json:"purpose,omitempty"`
	Rule        string                   `json:"rule"`
	Count       int                      `json:"count,omitempty"`
	Min         int                      `json:"min,omitempty"`
	Max         int                      `json:"max,omitempty"`
	Descriptors []*InputDescriptor       `json:"inputDescriptors,omitempty"`
	Nested      []*SubmissionRequirement `json:"nested,omitempty"`
}

// InputDescriptor is an input descriptor with its matching credentials.
type InputDescriptor struct {
	ID         string   `json:"id"`
	Name       string   `json:"name,omitempty"`
	Purpose    string   `json:"purpose,omitempty"`
	MatchedVCs []string `json:"matchedVCs"`
}

// PresentCredentialRequest selects the credentials to present.
type PresentCredentialRequest struct {
	SessionID   string   `json:"sessionID"`
	Credentials []string `json:"credentials"`
}

// VerifierDisplayDataResponse describes the verifier of a presentation session.
type VerifierDisplayDataResponse struct {
	DID     string `json:"did"`
	Name    string `json:"name,omitempty"`
	Purpose string `json:"purpose,omitempty"`
	LogoURI string `json:"logoURI,omitempty"`
}

// CredentialStatusResponse reports whether every credential passed status verification.
type CredentialStatusResponse struct {
	Verified bool `json:"verified"`
}

// ActivitiesResponse carries serialized activities, oldest first.
type ActivitiesResponse struct {
	Activities []string `json:"activities"`
}

// ParseActivitiesRequest carries serialized activities.
type ParseActivitiesRequest struct {
	Activities []string `json:"activities"`
}

// ParseActivitiesResponse carries the parsed activities.
type ParseActivitiesResponse struct {
	Activities []*ActivitySummary `json:"activities"`
}

// ActivitySummary is the flattened form of an activity.
type ActivitySummary struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Status    string `json:"status"`
	Client    string `json:"client"`
	Operation string `json:"operation"`
	Timestamp int64  `json:"timestamp"`
}

// VersionDetails describes the wallet build.
type VersionDetails struct {
	WalletVersion string `json:"walletVersion"`
	GitRevision   string `json:"gitRevision,omitempty"`
	BuildTime     string `json:"buildTime,omitempty"`
}

// Empty is the response of operations that return nothing.
type Empty struct{}
