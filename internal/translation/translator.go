// Package translation normalises request text into the pivot language.
package translation

import (
	"context"
	"errors"
	"strings"

	"github.com/spacesedan/emosupport/internal/utils"
)

// PivotLanguage is the language the classifier was trained on.
const PivotLanguage = "en"

var ErrEmptyTranslation = errors.New("translation service returned empty text")

type Translator interface {
	Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error)
}

// NormalizeTag lower-cases a language tag and keeps its primary subtag, so
// "en-US" and "EN_gb" both become "en". Empty tags mean the pivot language.
func NormalizeTag(tag string) string {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if i := strings.IndexAny(tag, "-_"); i >= 0 {
		tag = tag[:i]
	}
	if tag == "" {
		return PivotLanguage
	}
	return tag
}

func IsPivot(tag string) bool {
	return NormalizeTag(tag) == PivotLanguage
}

// StripQuotes removes double quotes wrapping the whole text.
func StripQuotes(text string) string {
	return strings.Trim(strings.TrimSpace(text), `"“”`)
}

// Retrying bounds each call to next with a timeout and retries failures.
type Retrying struct {
	next   Translator
	policy utils.RetryPolicy
}

func WithRetry(next Translator, policy utils.RetryPolicy) *Retrying {
	return &Retrying{next: next, policy: policy}
}

func (r *Retrying) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	return utils.Do(ctx, r.policy, "translate", func(ctx context.Context) (string, error) {
		out, err := r.next.Translate(ctx, text, sourceLang, targetLang)
		if err != nil {
			return "", err
		}
		if strings.TrimSpace(out) == "" {
			return "", ErrEmptyTranslation
		}
		return out, nil
	})
}
