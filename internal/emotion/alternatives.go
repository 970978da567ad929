package emotion

import "sort"

const DefaultMaxAlternatives = 2

// Ranked is a label with its probability in [0,1].
type Ranked struct {
	Label Label
	Prob  float64
}

// Ranking orders every label by descending probability. Exact ties keep
// catalog order.
func Ranking(d Distribution) []Ranked {
	out := make([]Ranked, d.Len())
	for i := range out {
		l, p := d.At(i)
		out[i] = Ranked{Label: l, Prob: p}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Prob > out[j].Prob })
	return out
}

// Selector picks the next-ranked labels after the primary.
type Selector struct {
	MaxCount int
	// Accept filters candidates. Nil accepts every label.
	Accept func(Label, float64) bool
}

func (s Selector) Select(d Distribution, primary Label) []Ranked {
	if s.MaxCount <= 0 {
		return nil
	}
	out := make([]Ranked, 0, s.MaxCount)
	for _, r := range Ranking(d) {
		if len(out) == s.MaxCount {
			break
		}
		if r.Label == primary {
			continue
		}
		if s.Accept != nil && !s.Accept(r.Label, r.Prob) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func SelectAlternatives(d Distribution, primary Label, maxCount int) []Ranked {
	return Selector{MaxCount: maxCount}.Select(d, primary)
}

// Alternatives selects alternatives suited to the result's mode: in
// multi-label mode only active labels qualify.
func (r Result) Alternatives(maxCount int) []Ranked {
	sel := Selector{MaxCount: maxCount}
	if r.Mode == ModeMultiLabel {
		sel.Accept = func(l Label, _ float64) bool { return r.IsActive(l) }
	}
	return sel.Select(r.Distribution, r.Primary)
}
