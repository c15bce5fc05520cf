package mpesa

import "fmt"

// ValidationError reports malformed caller input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// AuthError reports a failed OAuth token exchange with Daraja.
type AuthError struct {
	StatusCode int
	Err        error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("mpesa auth failed: %v", e.Err)
	}
	return fmt.Sprintf("mpesa auth failed: status %d", e.StatusCode)
}

func (e *AuthError) Unwrap() error { return e.Err }

// SubmitError reports a rejected STK push submission. Description carries
// the provider's error text when available.
type SubmitError struct {
	StatusCode  int
	Code        string
	Description string
	Err         error
}

func (e *SubmitError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("mpesa stk push rejected: %s", e.Description)
	}
	if e.Err != nil {
		return fmt.Sprintf("mpesa stk push failed: %v", e.Err)
	}
	return fmt.Sprintf("mpesa stk push failed: status %d", e.StatusCode)
}

func (e *SubmitError) Unwrap() error { return e.Err }

// QueryError reports a failed synchronous status query.
type QueryError struct {
	StatusCode  int
	Description string
	Err         error
}

func (e *QueryError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("mpesa status query rejected: %s", e.Description)
	}
	if e.Err != nil {
		return fmt.Sprintf("mpesa status query failed: %v", e.Err)
	}
	return fmt.Sprintf("mpesa status query failed: status %d", e.StatusCode)
}

func (e *QueryError) Unwrap() error { return e.Err }
