package domain

// Envelope is the `{ body: ... }` wrapper most backend reads use.
type Envelope[T any] struct {
	Body T `json:"body"`
}

// Response standardizes gateway responses.
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Meta    interface{} `json:"meta,omitempty"`
}
