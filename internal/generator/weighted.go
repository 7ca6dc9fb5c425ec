package generator

import (
	"math/rand"
	"sort"
)

// picker draws items with probability proportional to their weight using a
// cumulative-weight array and a single uniform draw.
type picker[T any] struct {
	items []T
	cum   []float64
}

func (p *picker[T]) add(item T, weight float64) {
	if weight <= 0 {
		return
	}
	total := 0.0
	if n := len(p.cum); n > 0 {
		total = p.cum[n-1]
	}
	p.items = append(p.items, item)
	p.cum = append(p.cum, total+weight)
}

func (p *picker[T]) empty() bool {
	return len(p.items) == 0
}

func (p *picker[T]) total() float64 {
	if len(p.cum) == 0 {
		return 0
	}
	return p.cum[len(p.cum)-1]
}

func (p *picker[T]) pick(rnd *rand.Rand) T {
	r := rnd.Float64() * p.total()
	idx := sort.Search(len(p.cum), func(i int) bool { return p.cum[i] > r })
	if idx >= len(p.items) {
		idx = len(p.items) - 1
	}
	return p.items[idx]
}

func pickUniform[T any](rnd *rand.Rand, items []T) T {
	return items[rnd.Intn(len(items))]
}
