package util

import "net/http"

// Kind classifies a failure independently of how it is rendered.
type Kind string

const (
	KindNoCredentials      Kind = "NO_CREDENTIALS"
	KindMalformedToken     Kind = "MALFORMED_TOKEN"
	KindInvalidSignature   Kind = "INVALID_SIGNATURE"
	KindTokenExpired       Kind = "TOKEN_EXPIRED"
	KindAccountMissing     Kind = "ACCOUNT_MISSING"
	KindAccountDeactivated Kind = "ACCOUNT_DEACTIVATED"
	KindLoaderTimeout      Kind = "LOADER_TIMEOUT"
	KindInvalidCredentials Kind = "INVALID_CREDENTIALS"
	KindForbidden          Kind = "FORBIDDEN"

	KindFileTooLarge        Kind = "FILE_TOO_LARGE"
	KindUnsupportedFileType Kind = "UNSUPPORTED_FILE_TYPE"
	KindFilenameTooLong     Kind = "FILENAME_TOO_LONG"
	KindUnexpectedField     Kind = "UNEXPECTED_FIELD"
	KindMissingFile         Kind = "MISSING_FILE"
	KindOpaqueStorageError  Kind = "STORAGE_ERROR"

	KindValidation  Kind = "VALIDATION_FAILED"
	KindNotFound    Kind = "NOT_FOUND"
	KindConflict    Kind = "CONFLICT"
	KindRateLimited Kind = "RATE_LIMITED"
	KindInternal    Kind = "INTERNAL_ERROR"
)

// External codes shared by several kinds.
const (
	CodeInvalidToken    = "INVALID_TOKEN"
	CodeUnauthenticated = "UNAUTHENTICATED"
	CodeInternal        = "INTERNAL_ERROR"
)

// Family groups kinds for precedence decisions.
type Family int

const (
	FamilyGeneric Family = iota
	FamilyServer
	FamilyFile
	FamilyAuth
)

// Family returns the failure family of k.
func (k Kind) Family() Family {
	switch k {
	case KindNoCredentials, KindMalformedToken, KindInvalidSignature, KindTokenExpired,
		KindAccountMissing, KindAccountDeactivated, KindInvalidCredentials:
		return FamilyAuth
	case KindFileTooLarge, KindUnsupportedFileType, KindFilenameTooLong, KindUnexpectedField, KindMissingFile:
		return FamilyFile
	case KindLoaderTimeout, KindOpaqueStorageError, KindInternal:
		return FamilyServer
	default:
		return FamilyGeneric
	}
}

// ExternalCode is the code clients see. Kinds that would leak account
// existence or internals collapse onto a shared code.
func (k Kind) ExternalCode() string {
	switch k {
	case KindMalformedToken, KindInvalidSignature:
		return CodeInvalidToken
	case KindAccountMissing, KindAccountDeactivated:
		return CodeUnauthenticated
	case KindLoaderTimeout, KindOpaqueStorageError, KindInternal:
		return CodeInternal
	default:
		return string(k)
	}
}

// HTTPStatus maps k to a response status.
func (k Kind) HTTPStatus() int {
	switch k.Family() {
	case FamilyAuth:
		return http.StatusUnauthorized
	case FamilyFile:
		return http.StatusBadRequest
	case FamilyServer:
		return http.StatusInternalServerError
	}
	switch k {
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusBadRequest
	}
}

// Sensitive reports whether details of k must stay server-side.
func (k Kind) Sensitive() bool {
	return k.Family() == FamilyServer
}
