package indicator

import "math"

// Returns — дневные доходности ряда цен.
func Returns(values []float64) []float64 {
	if len(values) < 2 {
		return nil
	}
	out := make([]float64, 0, len(values)-1)
	for i := 1; i < len(values); i++ {
		if values[i-1] <= 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, values[i]/values[i-1]-1)
	}
	return out
}

// Volatility — стандартное отклонение доходностей.
func Volatility(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	var mean float64
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))
	var ss float64
	for _, r := range returns {
		d := r - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(returns)-1))
}

// DrawdownSeries — просадка от бегущего максимума в каждой точке.
func DrawdownSeries(values []float64) []float64 {
	out := make([]float64, len(values))
	peak := math.Inf(-1)
	for i, v := range values {
		if v > peak {
			peak = v
		}
		if peak > 0 {
			out[i] = (peak - v) / peak
		}
	}
	return out
}

// MaxDrawdown — максимальная просадка ряда.
func MaxDrawdown(values []float64) float64 {
	var max float64
	for _, dd := range DrawdownSeries(values) {
		if dd > max {
			max = dd
		}
	}
	return max
}
