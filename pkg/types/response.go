// Package types carries the JSON envelopes shared by every API response.
// Success payloads sit under "data", failures under "error" with a stable
// machine-readable code alongside the human message.
package types

type SuccessEnvelope struct {
	Data any `json:"data"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}
