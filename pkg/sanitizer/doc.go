// Package sanitizer normalizes free-text input before validation and storage.
//
// All functions are idempotent and never fail: malformed input comes back
// trimmed or empty and is left for the validators to reject.
package sanitizer
