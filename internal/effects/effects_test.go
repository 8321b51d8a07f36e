package effects

import "testing"

type scale struct{ k float32 }

func (s scale) Process(l, r float32) (float32, float32) { return l * s.k, r * s.k }
func (scale) Reset()                                    {}

func TestChainAppliesInOrder(t *testing.T) {
	c := NewChain(scale{k: 2}, scale{k: 3})
	l, r := c.Process(1, 2)
	if l != 6 || r != 12 {
		t.Fatalf("got l=%v r=%v", l, r)
	}
}

func TestChainAdd(t *testing.T) {
	c := NewChain()
	c.Add(scale{k: 5})
	l, _ := c.Process(1, 1)
	if l != 5 {
		t.Fatalf("got %v", l)
	}
}
