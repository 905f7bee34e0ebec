package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"
)

func TestConstructors_StatusAndCode(t *testing.T) {
	tests := []struct {
		name   string
		err    *AppError
		code   string
		status int
	}{
		{"not found", NotFound("Practitioner"), CodeNotFound, http.StatusNotFound},
		{"validation", Validation("bad body", nil), CodeValidation, http.StatusUnprocessableEntity},
		{"invalid input", InvalidInput("malformed json"), CodeInvalidInput, http.StatusBadRequest},
		{"conflict", Conflict("schedule exists"), CodeConflict, http.StatusConflict},
		{"timeout", Timeout("request timed out"), CodeTimeout, http.StatusGatewayTimeout},
		{"rate limited", TooManyRequests("slow down"), CodeTooManyRequests, http.StatusTooManyRequests},
		{"no schedule", NoSchedule("missing"), CodeNoSchedule, http.StatusUnprocessableEntity},
		{"slot unavailable", SlotUnavailable("busy", nil), CodeSlotUnavailable, http.StatusConflict},
		{"exception window", InvalidExceptionWindow("overlap", nil), CodeInvalidException, http.StatusUnprocessableEntity},
		{"rule definition", InvalidRuleDefinition("bad hours", nil), CodeInvalidRuleDefinition, http.StatusUnprocessableEntity},
		{"configuration", Configuration("bad zone", errors.New("unknown")), CodeConfiguration, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.code {
				t.Errorf("expected code %s, got %s", tt.code, tt.err.Code)
			}
			if tt.err.StatusCode() != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, tt.err.StatusCode())
			}
		})
	}
}

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		appErr   *AppError
		expected string
	}{
		{
			name:     "no schedule",
			appErr:   NoSchedule("Dr. House has no schedule covering 2024-03-04"),
			expected: "NO_SCHEDULE_DEFINED: Dr. House has no schedule covering 2024-03-04",
		},
		{
			name:     "configuration with cause",
			appErr:   Configuration("invalid display time zone", errors.New("unknown time zone Mars/Base")),
			expected: "CONFIGURATION_ERROR: invalid display time zone (caused by: unknown time zone Mars/Base)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.appErr.Error()
			if got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestNoSchedule(t *testing.T) {
	err := NoSchedule("No schedule defined")

	if err.Message != "No schedule defined" {
		t.Errorf("expected message 'No schedule defined', got %s", err.Message)
	}
	if err.Details != nil {
		t.Errorf("expected no details, got %v", err.Details)
	}
	if err.Err != nil {
		t.Errorf("expected no cause, got %v", err.Err)
	}
}

func TestSlotUnavailable_Suggestions(t *testing.T) {
	suggestions := []string{"09:00–10:00", "14:00–16:30"}
	err := SlotUnavailable("The selected time is not available", suggestions)

	got, ok := err.Details["suggestions"].([]string)
	if !ok || len(got) != 2 {
		t.Fatalf("expected suggestions in details, got %v", err.Details)
	}

	var body ErrorResponse
	if jerr := json.Unmarshal(err.ToJSON(), &body); jerr != nil {
		t.Fatalf("ToJSON() produced invalid json: %v", jerr)
	}
	if body.Code != CodeSlotUnavailable {
		t.Errorf("expected code %s, got %s", CodeSlotUnavailable, body.Code)
	}
	list, ok := body.Details["suggestions"].([]any)
	if !ok || len(list) != 2 || list[1] != "14:00–16:30" {
		t.Errorf("unexpected suggestions in body: %v", body.Details)
	}
}

func TestSlotUnavailable_NoSuggestions(t *testing.T) {
	err := SlotUnavailable("The selected time is not available", nil)

	if err.Details != nil {
		t.Errorf("expected nil details, got %v", err.Details)
	}
	if strings.Contains(string(err.ToJSON()), "details") {
		t.Errorf("ToJSON() should omit empty details, got %s", err.ToJSON())
	}
}

func TestInvalidExceptionWindow(t *testing.T) {
	err := InvalidExceptionWindow("Exception overlaps an existing window", map[string]any{
		"conflictingId": "65f0c0ffee",
	})

	if err.Details["conflictingId"] != "65f0c0ffee" {
		t.Errorf("expected conflictingId in details, got %v", err.Details)
	}
	if !HasCode(fmt.Errorf("create exception: %w", err), CodeInvalidException) {
		t.Errorf("HasCode() should find %s through wrapping", CodeInvalidException)
	}
}

func TestInvalidRuleDefinition(t *testing.T) {
	err := InvalidRuleDefinition("Rule ends before it starts", map[string]any{
		"rule": 2,
	})

	if err.Details["rule"] != 2 {
		t.Errorf("expected rule index in details, got %v", err.Details)
	}
	if HasCode(err, CodeInvalidException) {
		t.Errorf("rule errors should not match the exception window code")
	}
}

func TestConfiguration_WrapsCause(t *testing.T) {
	_, cause := time.LoadLocation("Mars/Olympus_Mons")
	if cause == nil {
		t.Fatal("expected LoadLocation to fail")
	}
	err := Configuration("invalid display time zone", cause)

	if !errors.Is(err, cause) {
		t.Errorf("errors.Is should reach the load error")
	}
	if errors.Unwrap(err) != cause {
		t.Errorf("Unwrap() should return the load error")
	}
	if strings.Contains(string(err.ToJSON()), "Mars") {
		t.Errorf("ToJSON() should not leak the cause, got %s", err.ToJSON())
	}
}

func TestNotFoundWithID(t *testing.T) {
	err := NotFoundWithID("Practitioner", "12345")

	if err.Message != "Practitioner not found" {
		t.Errorf("expected message 'Practitioner not found', got %s", err.Message)
	}
	if err.Details["id"] != "12345" {
		t.Errorf("expected id '12345', got %v", err.Details["id"])
	}
	if err.Details["resource"] != "Practitioner" {
		t.Errorf("expected resource 'Practitioner', got %v", err.Details["resource"])
	}
}

func TestUnavailable(t *testing.T) {
	err := Unavailable("Calendar sync")

	if err.Code != CodeUnavailable {
		t.Errorf("expected code %s, got %s", CodeUnavailable, err.Code)
	}
	if err.HTTPStatus != http.StatusServiceUnavailable {
		t.Errorf("expected status %d, got %d", http.StatusServiceUnavailable, err.HTTPStatus)
	}
	if err.Message != "Calendar sync is temporarily unavailable" {
		t.Errorf("expected message to contain service name, got %s", err.Message)
	}
}

func TestAsAppError(t *testing.T) {
	appErr := SlotUnavailable("busy", nil)
	regularErr := errors.New("regular error")

	if result := AsAppError(appErr); result != appErr {
		t.Errorf("AsAppError() should return same AppError")
	}

	result := AsAppError(regularErr)
	if result.Code != CodeInternal || result.HTTPStatus != http.StatusInternalServerError {
		t.Errorf("AsAppError() should wrap regular error as internal error, got %s/%d", result.Code, result.HTTPStatus)
	}
	if result.Err != regularErr {
		t.Errorf("AsAppError() should wrap the original error")
	}
}

func TestIsAppError_Wrapped(t *testing.T) {
	wrapped := fmt.Errorf("resolve: %w", NoSchedule("no schedule"))

	if !IsAppError(wrapped) {
		t.Errorf("IsAppError() should see through fmt.Errorf wrapping")
	}
	if IsAppError(errors.New("plain")) {
		t.Errorf("IsAppError() should return false for regular error")
	}
	if !HasCode(wrapped, CodeNoSchedule) {
		t.Errorf("HasCode() should find %s in chain", CodeNoSchedule)
	}
	if HasCode(wrapped, CodeSlotUnavailable) {
		t.Errorf("HasCode() should not match a different code")
	}
	if got := AsAppError(wrapped); got.Code != CodeNoSchedule {
		t.Errorf("AsAppError() code = %s, want %s", got.Code, CodeNoSchedule)
	}
}
