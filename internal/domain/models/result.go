package models

// Result is the outcome shape handed to callers of the inventory service.
// Failures are reported through Error rather than a Go error so that callers
// can render them directly.
type Result[T any] struct {
	Data  T      `json:"data"`
	Error string `json:"error,omitempty"`

	// Err keeps the underlying error for callers that need to classify it.
	Err error `json:"-"`
}

// OK wraps data into a successful result.
func OK[T any](data T) Result[T] {
	return Result[T]{Data: data}
}

// Fail builds a failed result carrying the fallback data and the error text.
func Fail[T any](data T, err error) Result[T] {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return Result[T]{Data: data, Error: msg, Err: err}
}

// Failed reports whether the result carries an error.
func (r Result[T]) Failed() bool { return r.Error != "" }
