/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package walleterror

// Code identifies a concrete failure.
type Code string

// Category groups codes so that callers can branch on the kind of failure.
type Category string

// Error codes.
const (
	ProtocolError           Code = "PROTOCOL_ERROR"
	StateError              Code = "STATE_ERROR"
	NetworkError            Code = "NETWORK_ERROR"
	MetadataFetchError      Code = "METADATA_FETCH_FAILED"
	StatusResolutionError   Code = "STATUS_RESOLUTION_FAILED"
	DIDResolutionError      Code = "DID_RESOLUTION_FAILED"
	InvalidPinError         Code = "INVALID_PIN"
	SelectionError          Code = "INVALID_SELECTION"
	MalformedCredential     Code = "MALFORMED_CREDENTIAL"
	ProofVerificationError  Code = "PROOF_VERIFICATION_FAILED"
	CredentialRevokedError  Code = "CREDENTIAL_REVOKED"
	TemplateMismatchError   Code = "TEMPLATE_MISMATCH"
	IndexError              Code = "INDEX_OUT_OF_BOUNDS"
	UnsupportedGrantError   Code = "UNSUPPORTED_GRANT_TYPE"
	IssuanceError           Code = "ISSUANCE_FAILED"
	SubmissionError         Code = "SUBMISSION_FAILED"
	InvalidArgumentError    Code = "INVALID_ARGUMENT"
	UnsupportedDIDMethod    Code = "UNSUPPORTED_DID_METHOD"
	SessionNotFoundError    Code = "SESSION_NOT_FOUND"
	UnknownOperationError   Code = "UNKNOWN_OPERATION"
	SystemError             Code = "SYSTEM_ERROR"
	ActivityLogError        Code = "ACTIVITY_LOG_FAILED"
	CredentialExpiredError  Code = "CREDENTIAL_EXPIRED"
	StatusListMismatchError Code = "STATUS_LIST_MISMATCH"
)

// Error categories.
const (
	CategoryProtocol           Category = "PROTOCOL"
	CategoryState              Category = "STATE"
	CategoryExternalDependency Category = "EXTERNAL_DEPENDENCY"
	CategoryInputRejected      Category = "INPUT_REJECTED"
	CategoryCredentialTrust    Category = "CREDENTIAL_TRUST"
	CategoryDisplayMetadata    Category = "DISPLAY_METADATA"
	CategoryIndex              Category = "INDEX"
	CategorySystem             Category = "SYSTEM"
)

//nolint:gochecknoglobals
var codeCategories = map[Code]Category{
	ProtocolError:           CategoryProtocol,
	UnsupportedGrantError:   CategoryProtocol,
	StateError:              CategoryState,
	SessionNotFoundError:    CategoryState,
	NetworkError:            CategoryExternalDependency,
	MetadataFetchError:      CategoryExternalDependency,
	StatusResolutionError:   CategoryExternalDependency,
	DIDResolutionError:      CategoryExternalDependency,
	IssuanceError:           CategoryExternalDependency,
	SubmissionError:         CategoryExternalDependency,
	InvalidPinError:         CategoryInputRejected,
	SelectionError:          CategoryInputRejected,
	InvalidArgumentError:    CategoryInputRejected,
	UnsupportedDIDMethod:    CategoryInputRejected,
	UnknownOperationError:   CategoryInputRejected,
	MalformedCredential:     CategoryCredentialTrust,
	ProofVerificationError:  CategoryCredentialTrust,
	CredentialRevokedError:  CategoryCredentialTrust,
	CredentialExpiredError:  CategoryCredentialTrust,
	StatusListMismatchError: CategoryCredentialTrust,
	TemplateMismatchError:   CategoryDisplayMetadata,
	IndexError:              CategoryIndex,
	ActivityLogError:        CategorySystem,
	SystemError:             CategorySystem,
}

// Category returns the category the code belongs to.
func (c Code) Category() Category {
	if category, ok := codeCategories[c]; ok {
		return category
	}

	return CategorySystem
}

// Component names the part of the wallet that raised an error.
type Component string

const (
	ActivityLogComponent   Component = "activity-logger"
	CredentialComponent    Component = "credential-parser"
	DIDCreatorComponent    Component = "did-creator"
	DIDResolverComponent   Component = "did-resolver"
	DisplayComponent       Component = "display-resolver"
	LinkedDomainsComponent Component = "linked-domains"
	OpenID4CIComponent     Component = "openid4ci"
	OpenID4VPComponent     Component = "openid4vp"
	PresExchComponent      Component = "presentation-exchange"
	StatusComponent        Component = "status-verifier"
	WalletComponent        Component = "wallet"
)
