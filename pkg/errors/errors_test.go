package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestMetadataForKnownCodes(t *testing.T) {
	meta := MetadataFor(CodeProvider)
	if meta.HTTPStatus != http.StatusBadGateway {
		t.Fatalf("expected 502 for provider errors, got %d", meta.HTTPStatus)
	}
	if !meta.Retryable {
		t.Fatalf("provider errors must be retryable")
	}

	meta = MetadataFor(CodeSignature)
	if meta.HTTPStatus != http.StatusUnauthorized {
		t.Fatalf("expected 401 for signature errors, got %d", meta.HTTPStatus)
	}
	if meta.Retryable {
		t.Fatalf("signature errors must not be retryable")
	}
}

func TestMetadataForUnknownCodeFallsBack(t *testing.T) {
	meta := MetadataFor(Code("SOMETHING_ELSE"))
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal fallback, got %d", meta.HTTPStatus)
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := stdErrors.New("tcp reset")
	err := Wrap(CodeProvider, cause, "fetch payment")

	if !stdErrors.Is(err, cause) {
		t.Fatalf("expected wrapped cause to survive errors.Is")
	}
	if got := err.Error(); got != "PROVIDER_ERROR: fetch payment" {
		t.Fatalf("unexpected error string %q", got)
	}
}

func TestAsFindsTypedErrorInChain(t *testing.T) {
	inner := New(CodeNotFound, "record missing")
	wrapped := fmt.Errorf("handler: %w", inner)

	typed := As(wrapped)
	if typed == nil {
		t.Fatalf("expected typed error in chain")
	}
	if typed.Code() != CodeNotFound {
		t.Fatalf("expected NOT_FOUND, got %s", typed.Code())
	}
	if !IsCode(wrapped, CodeNotFound) {
		t.Fatalf("IsCode should match through wrapping")
	}
}

func TestWithDetails(t *testing.T) {
	err := New(CodeValidation, "bad edit").WithDetails(map[string]string{"numero_trackers": "must be at least 1"})
	details, ok := err.Details().(map[string]string)
	if !ok {
		t.Fatalf("expected details map")
	}
	if details["numero_trackers"] == "" {
		t.Fatalf("expected field detail to survive")
	}
}
