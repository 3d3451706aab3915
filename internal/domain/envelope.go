package domain

// StatusSuccess is the envelope status the backend uses for a successful call.
const StatusSuccess = "success"

// Envelope is the uniform wrapper around every backend response. Data must
// not be read unless OK reports true.
type Envelope[T any] struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    T      `json:"data"`
	Error   string `json:"error,omitempty"`
}

// OK reports whether the envelope carries a successful payload.
func (e Envelope[T]) OK() bool {
	return e.Status == StatusSuccess && e.Error == ""
}
