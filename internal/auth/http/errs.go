package http

import (
	"net/http"

	"github.com/skillbase/skillbase/pkg/httpx"
)

// ErrorResponse is the uniform error body for every endpoint.
type ErrorResponse struct {
	Error       string `json:"error"`
	Description string `json:"error_description,omitempty"`
}

type apiError struct {
	status int
	code   string
	desc   string
}

func (e apiError) WriteError(w http.ResponseWriter) {
	httpx.WriteJSON(w, e.status, ErrorResponse{Error: e.code, Description: e.desc})
}

var (
	errInvalidBody        = apiError{http.StatusBadRequest, "invalid_request", "Invalid JSON body"}
	errInvalidCredentials = apiError{http.StatusUnauthorized, "invalid_credentials", "Email or password is incorrect"}
	errInvalidToken       = apiError{http.StatusUnauthorized, "invalid_token", "Invalid or missing token"}
	errAccessDenied       = apiError{http.StatusUnauthorized, "access_denied", "Session terminated"}
	errForbidden          = apiError{http.StatusForbidden, "forbidden", "Insufficient privileges"}
	errServerError        = apiError{http.StatusInternalServerError, "server_error", "Something went wrong"}
)
