package linesearch

import (
	"testing"

	"github.com/copyleftdev/descent/internal/optimization/testfunctions"
	"github.com/copyleftdev/descent/internal/optimization/vector"
)

// BenchmarkSearch measures one line search along -∇f from the Rosenbrock
// start point [1, -2].
func BenchmarkSearch(b *testing.B) {
	p := testfunctions.NewRosenbrock()
	x := []float64{1, -2}
	f0, err := p.Cost(x)
	if err != nil {
		b.Fatalf("cost: %v", err)
	}
	g0, err := p.Gradient(x)
	if err != nil {
		b.Fatalf("gradient: %v", err)
	}
	d := vector.Scale(g0, -1)

	searchers := []struct {
		name  string
		build func(Params) (Searcher, error)
	}{
		{"MoreThuente", func(prm Params) (Searcher, error) { return NewMoreThuente(prm) }},
		{"Backtracking", func(prm Params) (Searcher, error) { return NewBacktracking(prm) }},
	}

	for _, s := range searchers {
		b.Run(s.name, func(b *testing.B) {
			ls, err := s.build(DefaultParams())
			if err != nil {
				b.Fatalf("failed to create searcher: %v", err)
			}

			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := ls.Search(p, x, d, f0, g0); err != nil {
					b.Fatalf("search failed: %v", err)
				}
			}
		})
	}
}
