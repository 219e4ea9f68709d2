package practicum

import "fmt"

// Error taxonomy for one poll cycle. The poller treats all of these as
// cycle-level failures (the cursor is not advanced), but classifies them
// with errors.As for logging and notification text.

// AuthError reports an HTTP 401: the OAuth token was rejected.
type AuthError struct {
	Body string
}

func (e *AuthError) Error() string {
	return "authentication failed (401): token rejected by the API"
}

// BadRequestError reports an HTTP 400, usually a malformed from_date.
type BadRequestError struct {
	Code    string
	Message string
}

func (e *BadRequestError) Error() string {
	if e.Code != "" || e.Message != "" {
		return fmt.Sprintf("bad request (400): %s %s", e.Code, e.Message)
	}
	return "bad request (400)"
}

// StatusError reports any other non-200 response.
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected API status %d (%s)", e.Code, e.Status)
}

// ShapeError reports a response body that decoded but does not have the
// expected shape (missing keys or wrong types).
type ShapeError struct {
	Reason string
}

func (e *ShapeError) Error() string {
	return "invalid API response: " + e.Reason
}

// ItemError reports a malformed homework item (missing name or an
// unrecognized status code).
type ItemError struct {
	Reason string
}

func (e *ItemError) Error() string {
	return "invalid homework item: " + e.Reason
}
