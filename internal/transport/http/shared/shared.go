// Package shared holds the JSON helpers every handler uses.
package shared

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "equitygate/pkg/domain-errors"
	"equitygate/pkg/platform/sentinel"
)

// WriteJSON writes a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

// DecodeJSON decodes the request body into dst, rejecting unknown fields.
func DecodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return dErrors.New(dErrors.CodeInvalidInput, "invalid request body")
	}
	return nil
}

// WriteError translates domain errors into the JSON error envelope. Security
// violations surface as 403 without detail; the detail lives in the audit
// trail, not the response.
func WriteError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	code := dErrors.CodeInternal
	message := "internal error"

	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		status, code, message = http.StatusNotFound, dErrors.CodeNotFound, "not found"
	case errors.Is(err, sentinel.ErrConflict):
		status, code, message = http.StatusConflict, dErrors.CodeConflict, "conflict"
	default:
		code = dErrors.CodeOf(err)
		status = statusFor(code)
		message = safeMessage(code, err)
	}

	WriteJSON(w, status, map[string]string{
		"error":   string(code),
		"message": message,
	})
}

func statusFor(code dErrors.Code) int {
	switch code {
	case dErrors.CodeValidation, dErrors.CodeInvalidInput:
		return http.StatusBadRequest
	case dErrors.CodeAuthorizationDenied:
		return http.StatusForbidden
	case dErrors.CodeSecurityViolation:
		return http.StatusForbidden
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	case dErrors.CodeConflict, dErrors.CodeConcurrency:
		return http.StatusConflict
	case dErrors.CodeInvariantViolation:
		return http.StatusUnprocessableEntity
	case dErrors.CodeTimeout:
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

// safeMessage keeps the response terse for security violations and never
// echoes internal error text.
func safeMessage(code dErrors.Code, err error) string {
	switch code {
	case dErrors.CodeSecurityViolation:
		return "forbidden"
	case dErrors.CodeInternal:
		return "internal error"
	}
	return dErrors.Reason(err)
}
