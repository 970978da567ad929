// Package emotion turns classifier logits into ranked emotion predictions.
package emotion

import (
	"errors"
	"fmt"
)

type Label string

// goEmotions is the label order of the GoEmotions classifier heads.
// Index i of the model output belongs to goEmotions[i].
var goEmotions = []Label{
	"admiration", "amusement", "anger", "annoyance", "approval", "caring", "confusion",
	"curiosity", "desire", "disappointment", "disapproval", "disgust", "embarrassment",
	"excitement", "fear", "gratitude", "grief", "joy", "love", "nervousness", "optimism",
	"pride", "realization", "relief", "remorse", "sadness", "surprise", "neutral",
}

// Catalog is an ordered, read-only set of labels.
type Catalog struct {
	labels []Label
	index  map[Label]int
}

func NewCatalog(labels []Label) (*Catalog, error) {
	if len(labels) == 0 {
		return nil, errors.New("catalog needs at least one label")
	}
	c := &Catalog{
		labels: make([]Label, len(labels)),
		index:  make(map[Label]int, len(labels)),
	}
	for i, l := range labels {
		if l == "" {
			return nil, fmt.Errorf("empty label at index %d", i)
		}
		if _, dup := c.index[l]; dup {
			return nil, fmt.Errorf("duplicate label %q", l)
		}
		c.labels[i] = l
		c.index[l] = i
	}
	return c, nil
}

// DefaultCatalog returns the 28-label GoEmotions catalog.
func DefaultCatalog() *Catalog {
	c, err := NewCatalog(goEmotions)
	if err != nil {
		panic(err)
	}
	return c
}

func (c *Catalog) Len() int { return len(c.labels) }

func (c *Catalog) At(i int) Label { return c.labels[i] }

func (c *Catalog) Index(l Label) (int, bool) {
	i, ok := c.index[l]
	return i, ok
}

// Labels returns a copy of the labels in catalog order.
func (c *Catalog) Labels() []Label {
	return append([]Label(nil), c.labels...)
}
