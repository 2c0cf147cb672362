package api

import "github.com/identkit/userhub/pkg/users"

// BaseResponse is the envelope shared by all successful API responses.
type BaseResponse[T any] struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    *T     `json:"data,omitempty"`
}

// ErrorResponse is the envelope for failed requests. Errors carries
// field-level validation failures when present.
type ErrorResponse struct {
	Code    int                `json:"code"`
	Message string             `json:"message"`
	Errors  []users.FieldError `json:"errors,omitempty"`
}

// Response aliases for the user endpoints.
type (
	UserResponse     = BaseResponse[users.User]
	UserListResponse = BaseResponse[[]users.User]
	LoginResponse    = BaseResponse[users.LoginResult]
)

// HealthResponse reports service liveness.
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}
