package models

// ErrorResponse defines API error response format
type ErrorResponse struct {
	Success bool   `json:"success"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

// Response is the success envelope shared by all JSON endpoints.
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}

// OK wraps data in a success envelope.
func OK(data interface{}) *Response {
	return &Response{Success: true, Data: data}
}

// Fail builds an error envelope with a stable code.
func Fail(code, message string) *ErrorResponse {
	return &ErrorResponse{Success: false, Code: code, Message: message}
}
