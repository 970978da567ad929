package emotion

import (
	"fmt"
	"math"
	"strings"
)

type Mode string

const (
	ModeSingleLabel Mode = "single"
	ModeMultiLabel  Mode = "multi"

	DefaultThreshold = 0.3
)

func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeSingleLabel:
		return ModeSingleLabel, nil
	case ModeMultiLabel:
		return ModeMultiLabel, nil
	default:
		return "", fmt.Errorf("unknown scoring mode %q", s)
	}
}

// Result is a scored distribution plus the decision taken on it.
type Result struct {
	Distribution Distribution
	Mode         Mode
	Primary      Label
	// Active lists labels above the threshold in multi-label mode, in catalog
	// order. In single-label mode it holds only the primary.
	Active []Label
	// Fallback is set when no label cleared the multi-label threshold and the
	// highest-scoring label was taken instead.
	Fallback bool
}

func (r Result) PrimaryProb() float64 { return r.Distribution.Prob(r.Primary) }

func (r Result) IsActive(l Label) bool {
	for _, a := range r.Active {
		if a == l {
			return true
		}
	}
	return false
}

// Policy converts raw logits into a Result.
type Policy interface {
	Mode() Mode
	Apply(c *Catalog, logits []float64) (Result, error)
}

func NewPolicy(mode Mode, threshold float64) (Policy, error) {
	switch mode {
	case ModeSingleLabel:
		return SingleLabel{}, nil
	case ModeMultiLabel:
		if threshold <= 0 || threshold >= 1 {
			return nil, fmt.Errorf("multi-label threshold must be in (0,1), got %v", threshold)
		}
		return MultiLabel{Threshold: threshold}, nil
	default:
		return nil, fmt.Errorf("unknown scoring mode %q", mode)
	}
}

// SingleLabel applies softmax and takes the argmax.
type SingleLabel struct{}

func (SingleLabel) Mode() Mode { return ModeSingleLabel }

func (SingleLabel) Apply(c *Catalog, logits []float64) (Result, error) {
	dist, err := NewDistribution(c, Softmax(logits))
	if err != nil {
		return Result{}, err
	}
	primary := c.At(dist.ArgMax())
	return Result{
		Distribution: dist,
		Mode:         ModeSingleLabel,
		Primary:      primary,
		Active:       []Label{primary},
	}, nil
}

// MultiLabel applies an independent sigmoid per class. A label is active when
// its score is strictly above Threshold.
type MultiLabel struct {
	Threshold float64
}

func (MultiLabel) Mode() Mode { return ModeMultiLabel }

func (m MultiLabel) Apply(c *Catalog, logits []float64) (Result, error) {
	probs := make([]float64, len(logits))
	for i, x := range logits {
		probs[i] = Sigmoid(x)
	}
	dist, err := NewDistribution(c, probs)
	if err != nil {
		return Result{}, err
	}

	res := Result{Distribution: dist, Mode: ModeMultiLabel}
	best := -1
	for i, p := range probs {
		if p <= m.Threshold {
			continue
		}
		res.Active = append(res.Active, c.At(i))
		if best < 0 || p > probs[best] {
			best = i
		}
	}
	if best < 0 {
		best = dist.ArgMax()
		res.Active = []Label{c.At(best)}
		res.Fallback = true
	}
	res.Primary = c.At(best)
	return res, nil
}

// Softmax is max-shifted so large logits do not overflow.
func Softmax(logits []float64) []float64 {
	out := make([]float64, len(logits))
	if len(logits) == 0 {
		return out
	}
	max := logits[0]
	for _, x := range logits[1:] {
		if x > max {
			max = x
		}
	}
	var sum float64
	for i, x := range logits {
		out[i] = math.Exp(x - max)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

func Sigmoid(x float64) float64 {
	if x >= 0 {
		return 1 / (1 + math.Exp(-x))
	}
	e := math.Exp(x)
	return e / (1 + e)
}

// Logit is the inverse of Sigmoid, with p clamped away from 0 and 1.
func Logit(p float64) float64 {
	const eps = 1e-7
	p = math.Min(math.Max(p, eps), 1-eps)
	return math.Log(p / (1 - p))
}
