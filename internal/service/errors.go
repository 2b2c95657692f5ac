package service

// Stable error codes for client UIs. Each maps to a distinct remediation:
// star the repository, link a GitHub account, or log in again. Clients route
// on the code, never on the message text.
const (
	CodeStarRequired     = "star_required"
	CodeAccountNotLinked = "account_not_linked"
	CodeReauthRequired   = "reauth_required"
)

// HTTPError represents an error with an associated HTTP status code and a
// stable machine-readable code.
// TODO(future): it is probably not optimal to tie service errors to HTTP status codes. We should refactor this later. :)
type HTTPError struct {
	StatusCode int
	Code       string
	Wrapped    error
}

func (e HTTPError) Error() string {
	return e.Wrapped.Error()
}

func (e HTTPError) Unwrap() error {
	return e.Wrapped
}

func httpError(statusCode int, code string, err error) *HTTPError {
	return &HTTPError{
		StatusCode: statusCode,
		Code:       code,
		Wrapped:    err,
	}
}
