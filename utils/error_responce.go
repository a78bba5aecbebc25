package utils

// ErrorResponse is the failure envelope returned by every handler.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func Fail(message string) ErrorResponse {
	return ErrorResponse{Success: false, Message: message}
}
