package emotion

import (
	"fmt"
	"math"
)

// Distribution holds one probability per catalog label, stored positionally.
type Distribution struct {
	catalog *Catalog
	probs   []float64
}

func NewDistribution(c *Catalog, probs []float64) (Distribution, error) {
	if len(probs) != c.Len() {
		return Distribution{}, fmt.Errorf("distribution has %d values, catalog has %d labels", len(probs), c.Len())
	}
	for i, p := range probs {
		if math.IsNaN(p) || p < 0 || p > 1 {
			return Distribution{}, fmt.Errorf("probability for %q out of range: %v", c.At(i), p)
		}
	}
	return Distribution{catalog: c, probs: append([]float64(nil), probs...)}, nil
}

func (d Distribution) Catalog() *Catalog { return d.catalog }

func (d Distribution) Len() int { return len(d.probs) }

func (d Distribution) At(i int) (Label, float64) {
	return d.catalog.At(i), d.probs[i]
}

// Prob returns the probability of l, or 0 when l is not in the catalog.
func (d Distribution) Prob(l Label) float64 {
	i, ok := d.catalog.Index(l)
	if !ok {
		return 0
	}
	return d.probs[i]
}

func (d Distribution) Sum() float64 {
	var s float64
	for _, p := range d.probs {
		s += p
	}
	return s
}

// ArgMax returns the index of the highest probability. Ties go to the lower index.
func (d Distribution) ArgMax() int {
	best := 0
	for i := 1; i < len(d.probs); i++ {
		if d.probs[i] > d.probs[best] {
			best = i
		}
	}
	return best
}

func (d Distribution) Map() map[Label]float64 {
	m := make(map[Label]float64, len(d.probs))
	for i, p := range d.probs {
		m[d.catalog.At(i)] = p
	}
	return m
}
