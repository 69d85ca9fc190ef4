package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestClassify_PassesThroughExistingAnchorError(t *testing.T) {
	orig := New(KindCapability, "no tools here")
	got := Classify(orig, "ollama", "llama3")
	if got != orig {
		t.Fatal("expected Classify to return an existing *AnchorError unchanged")
	}
}

func TestClassify_RecognizesConnectionRefused(t *testing.T) {
	got := Classify(errors.New("dial tcp 127.0.0.1:11434: connect: connection refused"), "ollama", "llama3")
	if got.Kind != KindConnection {
		t.Fatalf("expected connection_error, got %s", got.Kind)
	}
}

func TestClassify_RecognizesRateLimit(t *testing.T) {
	got := Classify(errors.New("429 too many requests"), "openrouter", "m")
	if got.Kind != KindRateLimit {
		t.Fatalf("expected rate_limit_error, got %s", got.Kind)
	}
}

func TestClassify_UnrecognizedFallsBackToAPIError(t *testing.T) {
	got := Classify(errors.New("something bizarre happened"), "openrouter", "m")
	if got.Kind != KindAPI {
		t.Fatalf("expected api_error fallback, got %s", got.Kind)
	}
}

func TestAnchorError_HTTPStatus(t *testing.T) {
	cases := map[Kind]int{
		KindValidation:     http.StatusBadRequest,
		KindAuthentication: http.StatusUnauthorized,
		KindModelNotFound:  http.StatusNotFound,
		KindRateLimit:      http.StatusTooManyRequests,
	}
	for kind, want := range cases {
		e := New(kind, "x")
		if got := e.HTTPStatus(); got != want {
			t.Errorf("HTTPStatus(%s) = %d, want %d", kind, got, want)
		}
	}
}

func TestAnchorError_Event(t *testing.T) {
	e := New(KindValidation, "bad request body")
	ev := e.Event()
	if ev.Type != string(KindValidation) || ev.Message != "bad request body" {
		t.Fatalf("unexpected event payload: %+v", ev)
	}
}

func TestAs_UnwrapsWrappedAnchorError(t *testing.T) {
	inner := New(KindTimeout, "timed out")
	wrapped := errors.New("context: " + inner.Error())
	if _, ok := As(wrapped); ok {
		t.Fatal("plain wrapped text should not unwrap to an AnchorError")
	}
	if ae, ok := As(inner); !ok || ae.Kind != KindTimeout {
		t.Fatal("expected As to recognize a direct *AnchorError")
	}
	if ae, ok := As(fmt.Errorf("context: %w", inner)); !ok || ae != inner {
		t.Fatal("expected As to unwrap an *AnchorError wrapped by fmt.Errorf")
	}
}
