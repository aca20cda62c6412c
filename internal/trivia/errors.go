package trivia

import "fmt"

// tokenError marks an attempt that failed because the session token lease is
// no longer valid upstream; the token is replaced and the attempt retried.
type tokenError struct {
	code int
}

func (e *tokenError) Error() string {
	return fmt.Sprintf("session token invalid (code %d)", e.code)
}

// permanentError marks an upstream refusal that retrying cannot fix, such as
// no questions matching the requested filters.
type permanentError struct {
	code int
}

func (e *permanentError) Error() string {
	return fmt.Sprintf("upstream rejected request (code %d)", e.code)
}
