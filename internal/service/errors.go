package service

import "net/http"

// Error is the operation-level failure reported to HTTP clients. Code is a
// stable machine-readable class, Message a single human-readable line.
type Error struct {
	Code    string
	Message string
	Status  int
}

func (e *Error) Error() string {
	return e.Code + ": " + e.Message
}

func notFound(message string) *Error {
	return &Error{Code: "not_found", Message: message, Status: http.StatusNotFound}
}

func unauthorized(message string) *Error {
	return &Error{Code: "unauthorized", Message: message, Status: http.StatusUnauthorized}
}

func conflict(message string) *Error {
	return &Error{Code: "conflict", Message: message, Status: http.StatusConflict}
}

func badRequest(message string) *Error {
	return &Error{Code: "invalid_request", Message: message, Status: http.StatusBadRequest}
}
