package linesearch

import (
	"github.com/copyleftdev/descent/internal/optimization"
)

// Method names accepted by NewByName.
const (
	MethodMoreThuente  = "more-thuente"
	MethodBacktracking = "backtracking"
)

// Methods lists the accepted method names.
func Methods() []string {
	return []string{MethodMoreThuente, MethodBacktracking}
}

// NewByName builds the named search. An empty name selects More–Thuente.
func NewByName(method string, params Params) (Searcher, error) {
	switch method {
	case "", MethodMoreThuente:
		s, err := NewMoreThuente(params)
		if err != nil {
			return nil, err
		}
		return s, nil
	case MethodBacktracking:
		s, err := NewBacktracking(params)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, optimization.NewErrorf(optimization.KindInvalidConfig,
			"unknown line search %q (available: %v)", method, Methods()).
			WithComponent("linesearch")
	}
}
