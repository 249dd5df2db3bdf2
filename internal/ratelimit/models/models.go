// Package models holds rate limiting policies and results.
package models

import "time"

// Policy caps requests per key within a sliding window.
type Policy struct {
	Name   string
	Limit  int
	Window time.Duration
}

// Result is the outcome of one admission check.
type Result struct {
	Allowed    bool      `json:"allowed"`
	Limit      int       `json:"limit"`
	Remaining  int       `json:"remaining"`
	ResetAt    time.Time `json:"reset_at"`
	RetryAfter int       `json:"retry_after,omitempty"` // seconds, only set when not allowed
}

// Denied builds a rejected result that retries once the oldest request in the
// window ages out.
func Denied(limit int, resetAt, now time.Time) *Result {
	retry := int(resetAt.Sub(now).Round(time.Second) / time.Second)
	if retry < 1 {
		retry = 1
	}
	return &Result{
		Allowed:    false,
		Limit:      limit,
		Remaining:  0,
		ResetAt:    resetAt,
		RetryAfter: retry,
	}
}

type ExceededResponse struct {
	Error      string `json:"error"`
	Message    string `json:"error_description"`
	RetryAfter int    `json:"retry_after"`
}
