package cafe24

import (
	"errors"
	"fmt"
)

// ErrFormNotFound is the cause of an AuthError when no login form strategy matched.
var ErrFormNotFound = errors.New("form not found")

// ErrProbeFailed is the cause of an AuthError when the account page did not look logged in.
var ErrProbeFailed = errors.New("account page does not look logged in")

// AuthError means the session could not be authenticated, it is fatal to a run.
type AuthError struct {
	Cause error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("cafe24 scraper: login failed: %s", e.Cause.Error())
}

func (e *AuthError) Unwrap() error {
	return e.Cause
}

// NetworkError means a listing page could not be fetched, it ends the crawl of that
// category but not of the others.
type NetworkError struct {
	Category string
	Page     int
	Cause    error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf(
		"cafe24 scraper: fetch %s page %d: %s",
		e.Category, e.Page, e.Cause.Error(),
	)
}

func (e *NetworkError) Unwrap() error {
	return e.Cause
}
