package types

import (
	"errors"
	"fmt"
	"testing"
)

func TestError_ChainingAndHelpers(t *testing.T) {
	t.Parallel()

	root := errors.New("root")
	err := NewError(ErrUpstreamError, "upstream failed").
		WithCause(root).
		WithHTTPStatus(502).
		WithRetryable(true).
		WithProvider("siliconflow")

	if GetErrorCode(err) != ErrUpstreamError {
		t.Fatalf("expected code %s, got %s", ErrUpstreamError, GetErrorCode(err))
	}
	if !IsRetryable(err) {
		t.Fatalf("expected retryable")
	}
	if !errors.Is(err, root) {
		t.Fatalf("expected errors.Is unwrap to root")
	}
	if got := err.Error(); got == "" {
		t.Fatalf("expected non-empty error string")
	}
}

func TestError_WrappedDetection(t *testing.T) {
	t.Parallel()

	inner := NewError(ErrSynthesisFailed, "model call failed").WithRetryable(false)
	wrapped := fmt.Errorf("pipeline: %w", inner)

	if !IsErrorCode(wrapped, ErrSynthesisFailed) {
		t.Fatalf("expected SYNTHESIS_FAILED through fmt.Errorf wrapping")
	}
	if GetErrorCode(wrapped) != ErrSynthesisFailed {
		t.Fatalf("expected code extraction through wrapping")
	}
	if IsRetryable(wrapped) {
		t.Fatalf("expected non-retryable")
	}
}

func TestError_NonStructured(t *testing.T) {
	t.Parallel()

	plain := errors.New("plain")
	if IsRetryable(plain) {
		t.Fatalf("plain errors are never retryable")
	}
	if GetErrorCode(plain) != "" {
		t.Fatalf("plain errors carry no code")
	}
}
