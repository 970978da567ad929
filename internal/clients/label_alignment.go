package clients

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spacesedan/emosupport/internal/emotion"
)

// alignScores reorders per-label values into catalog order. Labels are matched
// by name or by the positional LABEL_<n> form exported by some checkpoints.
func alignScores(c *emotion.Catalog, labels []string, values []float64) ([]float64, error) {
	if len(labels) != len(values) {
		return nil, fmt.Errorf("got %d labels for %d values", len(labels), len(values))
	}
	if len(values) != c.Len() {
		return nil, fmt.Errorf("model returned %d classes, catalog has %d", len(values), c.Len())
	}

	out := make([]float64, c.Len())
	seen := make([]bool, c.Len())
	for i, raw := range labels {
		idx, err := catalogIndex(c, raw)
		if err != nil {
			return nil, err
		}
		if seen[idx] {
			return nil, fmt.Errorf("label %q returned twice", raw)
		}
		seen[idx] = true
		out[idx] = values[i]
	}
	return out, nil
}

func catalogIndex(c *emotion.Catalog, raw string) (int, error) {
	name := strings.ToLower(strings.TrimSpace(raw))
	if idx, ok := c.Index(emotion.Label(name)); ok {
		return idx, nil
	}
	if n, ok := strings.CutPrefix(name, "label_"); ok {
		idx, err := strconv.Atoi(n)
		if err == nil && idx >= 0 && idx < c.Len() {
			return idx, nil
		}
	}
	return 0, fmt.Errorf("unknown label %q", raw)
}
