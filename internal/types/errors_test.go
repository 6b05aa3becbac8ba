package types

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestErrorCode_Constants(t *testing.T) {
	tests := []struct {
		name     string
		code     ErrorCode
		expected string
	}{
		// Configuration errors
		{"CONFIG_LOAD_FAILED", CONFIG_LOAD_FAILED, "CONFIG_LOAD_FAILED"},
		{"CONFIG_PARSE_FAILED", CONFIG_PARSE_FAILED, "CONFIG_PARSE_FAILED"},
		{"CONFIG_VALIDATION_FAILED", CONFIG_VALIDATION_FAILED, "CONFIG_VALIDATION_FAILED"},
		{"CONFIG_NOT_FOUND", CONFIG_NOT_FOUND, "CONFIG_NOT_FOUND"},

		// Submission errors
		{"ENGINE_NOT_FOUND", ENGINE_NOT_FOUND, "ENGINE_NOT_FOUND"},
		{"TASK_INVALID", TASK_INVALID, "TASK_INVALID"},
		{"QUEUE_FULL", QUEUE_FULL, "QUEUE_FULL"},
		{"TASK_NOT_FOUND", TASK_NOT_FOUND, "TASK_NOT_FOUND"},

		// Execution errors
		{"ENGINE_EXECUTION_FAILED", ENGINE_EXECUTION_FAILED, "ENGINE_EXECUTION_FAILED"},
		{"ENGINE_PANIC", ENGINE_PANIC, "ENGINE_PANIC"},
		{"CALLBACK_FAILED", CALLBACK_FAILED, "CALLBACK_FAILED"},
		{"TASK_TIMEOUT", TASK_TIMEOUT, "TASK_TIMEOUT"},

		// Lifecycle errors
		{"ORCHESTRATOR_STOPPED", ORCHESTRATOR_STOPPED, "ORCHESTRATOR_STOPPED"},
		{"BUS_CLOSED", BUS_CLOSED, "BUS_CLOSED"},
		{"BUS_QUEUE_FULL", BUS_QUEUE_FULL, "BUS_QUEUE_FULL"},
		{"SHUTDOWN_TIMEOUT", SHUTDOWN_TIMEOUT, "SHUTDOWN_TIMEOUT"},

		// Initialization errors
		{"INIT_DIRS_FAILED", INIT_DIRS_FAILED, "INIT_DIRS_FAILED"},
		{"INIT_CONFIG_FAILED", INIT_CONFIG_FAILED, "INIT_CONFIG_FAILED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if string(tt.code) != tt.expected {
				t.Errorf("ErrorCode = %v, want %v", tt.code, tt.expected)
			}
		})
	}
}

func TestAnalysisError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *AnalysisError
		contains []string
	}{
		{
			name: "simple error without cause",
			err:  NewError(ENGINE_NOT_FOUND, "no engine registered for domain"),
			contains: []string{
				"[ENGINE_NOT_FOUND]",
				"no engine registered for domain",
			},
		},
		{
			name: "error with cause",
			err:  WrapError(ENGINE_EXECUTION_FAILED, "analysis failed", errors.New("division by zero")),
			contains: []string{
				"[ENGINE_EXECUTION_FAILED]",
				"analysis failed",
				"division by zero",
			},
		},
		{
			name: "retryable error",
			err:  NewRetryableError(QUEUE_FULL, "task queue at capacity"),
			contains: []string{
				"[QUEUE_FULL]",
				"task queue at capacity",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errMsg := tt.err.Error()
			for _, substring := range tt.contains {
				if !strings.Contains(errMsg, substring) {
					t.Errorf("Error() = %v, want to contain %v", errMsg, substring)
				}
			}
		})
	}
}

func TestAnalysisError_Unwrap(t *testing.T) {
	cause := errors.New("underlying failure")
	wrapped := WrapError(CALLBACK_FAILED, "callback raised", cause)

	if unwrapped := wrapped.Unwrap(); unwrapped != cause {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, cause)
	}

	if !errors.Is(wrapped, cause) {
		t.Error("errors.Is() should find the wrapped cause")
	}

	plain := NewError(TASK_NOT_FOUND, "no such task")
	if unwrapped := plain.Unwrap(); unwrapped != nil {
		t.Errorf("Unwrap() on causeless error = %v, want nil", unwrapped)
	}
}

func TestAnalysisError_Is(t *testing.T) {
	a := NewError(QUEUE_FULL, "queue full at 100")
	b := NewError(QUEUE_FULL, "different message, same code")
	c := NewError(TASK_NOT_FOUND, "no such task")

	if !errors.Is(a, b) {
		t.Error("errors with the same code should match via errors.Is")
	}
	if errors.Is(a, c) {
		t.Error("errors with different codes should not match")
	}
	if errors.Is(a, errors.New("plain error")) {
		t.Error("AnalysisError should not match a plain error")
	}
}

func TestAnalysisError_IsThroughWrapping(t *testing.T) {
	inner := NewError(ENGINE_NOT_FOUND, "latency domain unknown")
	outer := fmt.Errorf("submit failed: %w", inner)

	if !HasCode(outer, ENGINE_NOT_FOUND) {
		t.Error("HasCode should find the code through fmt.Errorf wrapping")
	}
	if HasCode(outer, QUEUE_FULL) {
		t.Error("HasCode should not report a code the chain does not carry")
	}

	var analysisErr *AnalysisError
	if !errors.As(outer, &analysisErr) {
		t.Fatal("errors.As should extract the AnalysisError")
	}
	if analysisErr.Code != ENGINE_NOT_FOUND {
		t.Errorf("extracted code = %v, want ENGINE_NOT_FOUND", analysisErr.Code)
	}
}

func TestAnalysisError_Retryable(t *testing.T) {
	if NewError(TASK_INVALID, "bad task").Retryable {
		t.Error("NewError should produce non-retryable errors")
	}
	if !NewRetryableError(BUS_QUEUE_FULL, "bus backed up").Retryable {
		t.Error("NewRetryableError should produce retryable errors")
	}
	if WrapError(ENGINE_PANIC, "recovered", errors.New("boom")).Retryable {
		t.Error("WrapError should produce non-retryable errors")
	}
}
