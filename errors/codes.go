package errors

// ErrorCode identifies an application error category in API responses.
type ErrorCode int32

const (
	ErrorCode_HTTP_OK           ErrorCode = 0
	ErrorCode_INTERNAL          ErrorCode = 1000
	ErrorCode_INVALID_ARGUMENT  ErrorCode = 1001
	ErrorCode_NOT_FOUND         ErrorCode = 1002
	ErrorCode_ALREADY_EXISTS    ErrorCode = 1003
	ErrorCode_PERMISSION_DENIED ErrorCode = 1004
	ErrorCode_UNAUTHENTICATED   ErrorCode = 1005
	ErrorCode_FORBIDDEN         ErrorCode = 1006
	ErrorCode_INVALID_PAYLOAD   ErrorCode = 1007

	ErrorCode_AUTH_INVALID_TOKEN       ErrorCode = 2000
	ErrorCode_AUTH_TOKEN_EXPIRED       ErrorCode = 2001
	ErrorCode_AUTH_INVALID_CREDENTIALS ErrorCode = 2002

	ErrorCode_CALL_NOT_FOUND      ErrorCode = 3000
	ErrorCode_CALL_INVALID_RATING ErrorCode = 3001
	ErrorCode_CALL_INVALID_STATUS ErrorCode = 3002

	ErrorCode_RECORDING_NOT_FOUND     ErrorCode = 4000
	ErrorCode_RECORDING_UPLOAD_FAILED ErrorCode = 4001
	ErrorCode_RECORDING_FETCH_FAILED  ErrorCode = 4002

	ErrorCode_BRIDGE_ENGINE_FAILED  ErrorCode = 5000
	ErrorCode_BRIDGE_SESSION_EXISTS ErrorCode = 5001
	ErrorCode_WEBHOOK_BAD_SIGNATURE ErrorCode = 5002

	ErrorCode_DB_QUERY_FAILED            ErrorCode = 6000
	ErrorCode_INTEGRATION_CACHE_FAILED   ErrorCode = 6001
	ErrorCode_INTEGRATION_STORAGE_FAILED ErrorCode = 6002
)

var codeNames = map[ErrorCode]string{
	ErrorCode_HTTP_OK:                    "OK",
	ErrorCode_INTERNAL:                   "INTERNAL",
	ErrorCode_INVALID_ARGUMENT:           "INVALID_ARGUMENT",
	ErrorCode_NOT_FOUND:                  "NOT_FOUND",
	ErrorCode_ALREADY_EXISTS:             "ALREADY_EXISTS",
	ErrorCode_PERMISSION_DENIED:          "PERMISSION_DENIED",
	ErrorCode_UNAUTHENTICATED:            "UNAUTHENTICATED",
	ErrorCode_FORBIDDEN:                  "FORBIDDEN",
	ErrorCode_INVALID_PAYLOAD:            "INVALID_PAYLOAD",
	ErrorCode_AUTH_INVALID_TOKEN:         "AUTH_INVALID_TOKEN",
	ErrorCode_AUTH_TOKEN_EXPIRED:         "AUTH_TOKEN_EXPIRED",
	ErrorCode_AUTH_INVALID_CREDENTIALS:   "AUTH_INVALID_CREDENTIALS",
	ErrorCode_CALL_NOT_FOUND:             "CALL_NOT_FOUND",
	ErrorCode_CALL_INVALID_RATING:        "CALL_INVALID_RATING",
	ErrorCode_CALL_INVALID_STATUS:        "CALL_INVALID_STATUS",
	ErrorCode_RECORDING_NOT_FOUND:        "RECORDING_NOT_FOUND",
	ErrorCode_RECORDING_UPLOAD_FAILED:    "RECORDING_UPLOAD_FAILED",
	ErrorCode_RECORDING_FETCH_FAILED:     "RECORDING_FETCH_FAILED",
	ErrorCode_BRIDGE_ENGINE_FAILED:       "BRIDGE_ENGINE_FAILED",
	ErrorCode_BRIDGE_SESSION_EXISTS:      "BRIDGE_SESSION_EXISTS",
	ErrorCode_WEBHOOK_BAD_SIGNATURE:      "WEBHOOK_BAD_SIGNATURE",
	ErrorCode_DB_QUERY_FAILED:            "DB_QUERY_FAILED",
	ErrorCode_INTEGRATION_CACHE_FAILED:   "INTEGRATION_CACHE_FAILED",
	ErrorCode_INTEGRATION_STORAGE_FAILED: "INTEGRATION_STORAGE_FAILED",
}

// String returns the symbolic name of the code.
func (c ErrorCode) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return "UNKNOWN"
}
