package models

import "net/http"

// RelayRequest is an inbound request to forward to Canvas.
type RelayRequest struct {
	Method   string
	Path     string
	RawQuery string
	BaseURL  string
	APIKey   string
	Body     []byte
}

// RelayResponse carries the upstream reply back to the caller.
type RelayResponse struct {
	Status int
	Header http.Header
	Body   []byte
}

// RelayErrorBody is the JSON shape of relay-generated errors.
type RelayErrorBody struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// HealthStatus is the liveness payload.
type HealthStatus struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}
