package common

import (
	"encoding/json"
	"net/http"
)

// JSON writes the provided value to the response writer as JSON.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// ErrorBody builds the canonical error payload: message, default_code, the optional
// api tag and any echoed fields.
func ErrorBody(e *AppError) map[string]any {
	body := make(map[string]any, len(e.Fields)+3)
	for k, v := range e.Fields {
		body[k] = v
	}
	body["message"] = e.Message
	body["default_code"] = e.Code
	if e.API != "" {
		body["api"] = e.API
	}
	return body
}

// WriteError renders err. Errors that are not AppErrors become a generic 500 and
// the function reports false so the caller can log the cause.
func WriteError(w http.ResponseWriter, err error) bool {
	appErr, ok := AsAppError(err)
	if !ok {
		JSON(w, http.StatusInternalServerError, map[string]any{
			"message":      InternalMessage,
			"default_code": "error",
		})
		return false
	}
	status := appErr.HTTPStatus
	if status == 0 {
		status = http.StatusBadRequest
	}
	JSON(w, status, ErrorBody(appErr))
	return true
}
