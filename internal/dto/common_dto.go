package dto

type ErrorResponse struct {
	Error   bool   `json:"error"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
	// Email is set on responses where the caller needs it to resubmit,
	// e.g. requesting a fresh verification code.
	Email string `json:"email,omitempty"`
}

type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	DB        string `json:"db"`
}
