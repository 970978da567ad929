package support

import (
	"fmt"
	"strings"

	"github.com/spacesedan/emosupport/internal/models"
)

var languageNames = map[string]string{
	"en": "English",
	"tr": "Turkish",
	"de": "German",
	"fr": "French",
	"es": "Spanish",
}

// Input is everything a support prompt is built from.
type Input struct {
	OriginalText string
	Language     string
	Primary      string
	Alternatives []models.AlternativeEmotion
}

// FormatAlternatives renders one "- emotion (%12.1)" line per alternative.
func FormatAlternatives(alts []models.AlternativeEmotion) string {
	lines := make([]string, 0, len(alts))
	for _, a := range alts {
		lines = append(lines, fmt.Sprintf("- %s (%%%.1f)", a.Emotion, a.Probability))
	}
	return strings.Join(lines, "\n")
}

func BuildPrompt(in Input) string {
	builder := &strings.Builder{}
	builder.WriteString("You are a psychological support assistant. The user's message:\n")
	fmt.Fprintf(builder, "\"%s\"\n\n", in.OriginalText)
	fmt.Fprintf(builder, "Detected primary emotion: %s\n", in.Primary)
	builder.WriteString("Other possible emotions:\n")
	if len(in.Alternatives) > 0 {
		builder.WriteString(FormatAlternatives(in.Alternatives))
	} else {
		builder.WriteString("- none")
	}
	builder.WriteString("\n\n")
	builder.WriteString("Give this person a short, understanding and supportive message. ")
	builder.WriteString("Also recommend music and films by naming specific songs and film titles; do not just say that listening to music or watching a film helps. ")
	builder.WriteString("Suggest one activity that could lift their mood.\n")
	fmt.Fprintf(builder, "Reply in %s.\n", languageName(in.Language))
	return builder.String()
}

func languageName(tag string) string {
	if name, ok := languageNames[tag]; ok {
		return name
	}
	if tag == "" {
		return "English"
	}
	return fmt.Sprintf("the language with code %q", tag)
}
