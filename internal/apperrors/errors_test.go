package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestKindOfWrapped(t *testing.T) {
	base := New(KindTranslation, "translate", errors.New("quota exceeded"))
	wrapped := fmt.Errorf("analyze: %w", base)

	if got := KindOf(wrapped); got != KindTranslation {
		t.Fatalf("expected translation kind, got %s", got)
	}
	if !Is(wrapped, KindTranslation) {
		t.Fatalf("expected Is to match translation")
	}
	if KindOf(errors.New("plain")) != KindUnknown {
		t.Fatalf("expected unknown kind for plain error")
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		kind Kind
		want int
	}{
		{KindInvalidInput, http.StatusBadRequest},
		{KindTranslation, http.StatusBadGateway},
		{KindTranscription, http.StatusBadGateway},
		{KindNormalization, http.StatusUnprocessableEntity},
		{KindScoring, http.StatusInternalServerError},
		{KindUnknown, http.StatusInternalServerError},
	}
	for _, tc := range tests {
		t.Run(tc.kind.String(), func(t *testing.T) {
			if got := HTTPStatus(tc.kind); got != tc.want {
				t.Fatalf("expected %d got %d", tc.want, got)
			}
		})
	}
}

func TestErrorMessage(t *testing.T) {
	err := InvalidInput("validate", "empty text")
	if err.Error() != "validate: empty text" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}
