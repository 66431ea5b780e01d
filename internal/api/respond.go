package api

import (
	"encoding/json"
	"net/http"
)

// Envelope statuses.
const (
	statusSuccess = "success"
	statusPartial = "partial_success"
	statusError   = "error"
)

// Error codes surfaced to clients.
const (
	CodeBadRequest    = "bad_request"
	CodeConfiguration = "configuration_error"
	CodeNotFound      = "not_found"
	CodeService       = "service_error"
	CodePersistence   = "persistence_error"
	CodeInternal      = "internal_error"
)

type apiError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

type envelope struct {
	Status string      `json:"status"`
	Data   interface{} `json:"data,omitempty"`
	Error  *apiError   `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, env envelope) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(env)
}

func respond(w http.ResponseWriter, code int, data interface{}) {
	writeJSON(w, code, envelope{Status: statusSuccess, Data: data})
}

func respondPartial(w http.ResponseWriter, data interface{}, errCode, message string) {
	writeJSON(w, http.StatusOK, envelope{
		Status: statusPartial,
		Data:   data,
		Error:  &apiError{Code: errCode, Message: message},
	})
}

func respondError(w http.ResponseWriter, code int, errCode, message string) {
	writeJSON(w, code, envelope{
		Status: statusError,
		Error:  &apiError{Code: errCode, Message: message},
	})
}

// decode reads a JSON request body into v.
func decode(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
