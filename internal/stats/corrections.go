package stats

import (
	"sort"
)

// Multiple-comparison corrections. Each takes an unordered list of p-values
// and returns adjusted p-values in the original input order.

// Bonferroni applies the Bonferroni correction: min(p*m, 1)
func Bonferroni(pValues []float64) []float64 {
	m := float64(len(pValues))
	out := make([]float64, len(pValues))
	for i, p := range pValues {
		out[i] = capUnit(p * m)
	}
	return out
}

// BenjaminiHochberg applies the step-up false discovery rate correction.
// Each adjusted value is the minimum of its own step p*m/rank and all
// less-significant steps' adjusted values.
func BenjaminiHochberg(pValues []float64) []float64 {
	m := len(pValues)
	if m == 0 {
		return nil
	}

	order := sortedOrder(pValues)
	adjusted := make([]float64, m)

	running := 1.0
	for rank := m - 1; rank >= 0; rank-- {
		idx := order[rank]
		step := pValues[idx] * float64(m) / float64(rank+1)
		if step < running {
			running = step
		}
		adjusted[idx] = capUnit(running)
	}
	return adjusted
}

// Holm applies the step-down correction. Each adjusted value is the maximum
// of its own step p*(m-rank) and the previous step's adjusted value, capped
// at 1.
func Holm(pValues []float64) []float64 {
	m := len(pValues)
	if m == 0 {
		return nil
	}

	order := sortedOrder(pValues)
	adjusted := make([]float64, m)

	running := 0.0
	for rank := 0; rank < m; rank++ {
		idx := order[rank]
		step := pValues[idx] * float64(m-rank)
		if step > running {
			running = step
		}
		adjusted[idx] = capUnit(running)
	}
	return adjusted
}

// sortedOrder returns indices that sort pValues ascending
func sortedOrder(pValues []float64) []int {
	order := make([]int, len(pValues))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return pValues[order[a]] < pValues[order[b]]
	})
	return order
}

func capUnit(p float64) float64 {
	if p > 1.0 {
		return 1.0
	}
	if p < 0.0 {
		return 0.0
	}
	return p
}
