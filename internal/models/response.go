package models

type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Error   string      `json:"error,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// SuccessResponse wraps data and a human readable message in the common
// envelope.
func SuccessResponse(data interface{}, message string) Response {
	return Response{
		Success: true,
		Message: message,
		Data:    data,
	}
}

// ErrorResponse is the body of every non-2xx JSON reply.
func ErrorResponse(err string) Response {
	return Response{
		Success: false,
		Error:   err,
	}
}
