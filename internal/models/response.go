package models

// Коды ошибок API
const (
	ErrCodeBadRequest   = 40000
	ErrCodeValidation   = 40001
	ErrCodeUnauthorized = 40100
	ErrCodeTokenInvalid = 40101
	ErrCodeTokenExpired = 40102
	ErrCodeNotFound     = 40400
	ErrCodeRateLimited  = 42900
	ErrCodeUpstream     = 50200
	ErrCodeInternal     = 50000
)

// ErrorResponse - стандартная структура ответа об ошибке.
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}
