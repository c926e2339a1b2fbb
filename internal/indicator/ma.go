package indicator

import "math"

// SMA — скользящее среднее по close. Пока окно не набрано — NaN,
// значение по индексу i зависит только от точек <= i.
func SMA(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	if period <= 0 {
		period = 1
	}
	var sum float64
	for i, v := range values {
		sum += v
		if i >= period {
			sum -= values[i-period]
		}
		if i >= period-1 {
			out[i] = sum / float64(period)
		} else {
			out[i] = math.NaN()
		}
	}
	return out
}

// Ready сообщает, посчитано ли значение индикатора в данной точке.
func Ready(v float64) bool { return !math.IsNaN(v) }
