package message

import "net/http"

// Method is an HTTP request method.
type Method string

// Common methods.
const (
	MethodGet     Method = http.MethodGet
	MethodHead    Method = http.MethodHead
	MethodPost    Method = http.MethodPost
	MethodPut     Method = http.MethodPut
	MethodPatch   Method = http.MethodPatch
	MethodDelete  Method = http.MethodDelete
	MethodOptions Method = http.MethodOptions
	MethodTrace   Method = http.MethodTrace
	MethodConnect Method = http.MethodConnect
)

func (m Method) String() string {
	return string(m)
}

// PermitsBody reports whether requests with this method conventionally carry a body.
func (m Method) PermitsBody() bool {
	switch m {
	case MethodGet, MethodHead, MethodOptions, MethodTrace, MethodConnect:
		return false
	default:
		return true
	}
}
