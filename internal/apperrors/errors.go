package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a pipeline failure so transports can report it.
type Kind int

const (
	KindUnknown Kind = iota
	KindInvalidInput
	KindTranslation
	KindTranscription
	KindNormalization
	KindScoring
	KindSupportGeneration
)

func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid_input"
	case KindTranslation:
		return "translation"
	case KindTranscription:
		return "transcription"
	case KindNormalization:
		return "normalization"
	case KindScoring:
		return "scoring"
	case KindSupportGeneration:
		return "support_generation"
	default:
		return "unknown"
	}
}

// Error is a failure raised at a named pipeline stage.
type Error struct {
	Kind  Kind
	Stage string
	Err   error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s failed", e.Stage, e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, stage string, err error) error {
	return &Error{Kind: kind, Stage: stage, Err: err}
}

func InvalidInput(stage, msg string) error {
	return &Error{Kind: KindInvalidInput, Stage: stage, Err: errors.New(msg)}
}

// KindOf returns the Kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// HTTPStatus maps a Kind to the status reported to callers.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindInvalidInput:
		return http.StatusBadRequest
	case KindTranslation, KindTranscription:
		return http.StatusBadGateway
	case KindNormalization:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
