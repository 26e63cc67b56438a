package errors

// ErrorCode represents an application-specific error code
type ErrorCode string

const (
	// Generic errors
	ErrUnknown         ErrorCode = "ERR_UNKNOWN"
	ErrInternal        ErrorCode = "ERR_INTERNAL"
	ErrInvalidArgument ErrorCode = "ERR_INVALID_ARGUMENT"
	ErrNotFound        ErrorCode = "ERR_NOT_FOUND"

	// Configuration errors
	ErrConfigInvalid      ErrorCode = "ERR_CONFIG_INVALID"
	ErrConfigLoadFailed   ErrorCode = "ERR_CONFIG_LOAD_FAILED"
	ErrConfigMissingField ErrorCode = "ERR_CONFIG_MISSING_FIELD"

	// Credential and key material errors
	ErrCredentialMalformed ErrorCode = "ERR_CREDENTIAL_MALFORMED"
	ErrKeyParseFailed      ErrorCode = "ERR_KEY_PARSE_FAILED"

	// Token errors
	ErrAuthenticationFailed  ErrorCode = "ERR_AUTHENTICATION_FAILED"
	ErrTokenGenerationFailed ErrorCode = "ERR_TOKEN_GENERATION_FAILED"

	// Remote data store errors
	ErrRemoteAPI          ErrorCode = "ERR_REMOTE_API"
	ErrRemoteUnreachable  ErrorCode = "ERR_REMOTE_UNREACHABLE"
	ErrRemoteResponseBody ErrorCode = "ERR_REMOTE_RESPONSE_BODY"

	// Mapping and validation errors
	ErrValidationFailed ErrorCode = "ERR_VALIDATION_FAILED"
	ErrInvalidFormat    ErrorCode = "ERR_INVALID_FORMAT"
	ErrMappingNotFound  ErrorCode = "ERR_MAPPING_NOT_FOUND"
	ErrMappingInvalid   ErrorCode = "ERR_MAPPING_INVALID"
)

// ErrorInfo contains metadata about an error code
type ErrorInfo struct {
	Code   ErrorCode
	Type   string
	Status int
	Title  string
}

// errorInfoMap maps error codes to their metadata
var errorInfoMap = map[ErrorCode]ErrorInfo{
	// Generic errors (500)
	ErrUnknown: {
		Code:   ErrUnknown,
		Type:   "https://hyperfleet.io/errors/unknown",
		Status: 500,
		Title:  "Unknown Error",
	},
	ErrInternal: {
		Code:   ErrInternal,
		Type:   "https://hyperfleet.io/errors/internal",
		Status: 500,
		Title:  "Internal Error",
	},

	// Client errors (400)
	ErrInvalidArgument: {
		Code:   ErrInvalidArgument,
		Type:   "https://hyperfleet.io/errors/invalid-argument",
		Status: 400,
		Title:  "Invalid Argument",
	},
	ErrValidationFailed: {
		Code:   ErrValidationFailed,
		Type:   "https://hyperfleet.io/errors/validation-failed",
		Status: 400,
		Title:  "Validation Failed",
	},
	ErrInvalidFormat: {
		Code:   ErrInvalidFormat,
		Type:   "https://hyperfleet.io/errors/invalid-format",
		Status: 400,
		Title:  "Invalid Format",
	},
	ErrMappingNotFound: {
		Code:   ErrMappingNotFound,
		Type:   "https://hyperfleet.io/errors/mapping-not-found",
		Status: 400,
		Title:  "Field Mapping Not Found",
	},

	// Not found errors (404)
	ErrNotFound: {
		Code:   ErrNotFound,
		Type:   "https://hyperfleet.io/errors/not-found",
		Status: 404,
		Title:  "Not Found",
	},

	// Authentication errors (401)
	ErrAuthenticationFailed: {
		Code:   ErrAuthenticationFailed,
		Type:   "https://hyperfleet.io/errors/authentication-failed",
		Status: 401,
		Title:  "Authentication Failed",
	},

	// Credential and key material errors (500)
	ErrCredentialMalformed: {
		Code:   ErrCredentialMalformed,
		Type:   "https://hyperfleet.io/errors/credential-malformed",
		Status: 500,
		Title:  "Malformed Credential",
	},
	ErrKeyParseFailed: {
		Code:   ErrKeyParseFailed,
		Type:   "https://hyperfleet.io/errors/key-parse-failed",
		Status: 500,
		Title:  "Private Key Parse Failed",
	},
	ErrTokenGenerationFailed: {
		Code:   ErrTokenGenerationFailed,
		Type:   "https://hyperfleet.io/errors/token-generation-failed",
		Status: 500,
		Title:  "Token Generation Failed",
	},

	// Remote data store errors (502/503)
	ErrRemoteAPI: {
		Code:   ErrRemoteAPI,
		Type:   "https://hyperfleet.io/errors/remote-api",
		Status: 502,
		Title:  "Remote API Error",
	},
	ErrRemoteUnreachable: {
		Code:   ErrRemoteUnreachable,
		Type:   "https://hyperfleet.io/errors/remote-unreachable",
		Status: 503,
		Title:  "Remote Store Unreachable",
	},
	ErrRemoteResponseBody: {
		Code:   ErrRemoteResponseBody,
		Type:   "https://hyperfleet.io/errors/remote-response-body",
		Status: 502,
		Title:  "Malformed Remote Response",
	},

	// Configuration errors (500)
	ErrConfigInvalid: {
		Code:   ErrConfigInvalid,
		Type:   "https://hyperfleet.io/errors/config-invalid",
		Status: 500,
		Title:  "Invalid Configuration",
	},
	ErrConfigLoadFailed: {
		Code:   ErrConfigLoadFailed,
		Type:   "https://hyperfleet.io/errors/config-load-failed",
		Status: 500,
		Title:  "Configuration Load Failed",
	},
	ErrConfigMissingField: {
		Code:   ErrConfigMissingField,
		Type:   "https://hyperfleet.io/errors/config-missing-field",
		Status: 500,
		Title:  "Missing Configuration Field",
	},
	ErrMappingInvalid: {
		Code:   ErrMappingInvalid,
		Type:   "https://hyperfleet.io/errors/mapping-invalid",
		Status: 500,
		Title:  "Invalid Field Mapping",
	},
}

// GetErrorInfo returns metadata for an error code
func GetErrorInfo(code ErrorCode) ErrorInfo {
	if info, ok := errorInfoMap[code]; ok {
		return info
	}
	return errorInfoMap[ErrUnknown]
}
