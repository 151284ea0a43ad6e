package server

import (
	"encoding/json"
	"net/http"

	"github.com/matzehuels/mailframe/pkg/errors"
)

// errorBody is the JSON shape of every failed request.
type errorBody struct {
	Error struct {
		Code    errors.Code `json:"code"`
		Message string      `json:"message"`
	} `json:"error"`
}

func respond(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, err error) {
	var body errorBody
	body.Error.Code = errors.GetCode(err)
	if body.Error.Code == "" {
		body.Error.Code = errors.ErrCodeInternal
	}
	body.Error.Message = publicMessage(err)
	respond(w, statusFor(err), body)
}

// statusFor maps an error code to an HTTP status.
func statusFor(err error) int {
	switch errors.GetCode(err) {
	case errors.ErrCodeSelection,
		errors.ErrCodeInvalidInput,
		errors.ErrCodeInvalidDocument,
		errors.ErrCodeInvalidCode,
		errors.ErrCodeInvalidPath:
		return http.StatusBadRequest
	case errors.ErrCodeQuota:
		return http.StatusPaymentRequired
	case errors.ErrCodeUnauthorized:
		return http.StatusForbidden
	case errors.ErrCodeNotFound, errors.ErrCodeFileNotFound:
		return http.StatusNotFound
	case errors.ErrCodeUnsupported:
		return http.StatusNotImplemented
	}
	return http.StatusInternalServerError
}

// publicMessage hides the detail of internal failures.
func publicMessage(err error) string {
	switch errors.GetCode(err) {
	case "", errors.ErrCodeInternal:
		return "internal error"
	}
	return errors.UserMessage(err)
}

// decode reads a JSON body into v.
func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid request body")
	}
	return nil
}
