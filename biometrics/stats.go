package biometrics

import "math"

// sdnnUint16 computes the sample standard deviation of heart-rate (BPM)
// samples, used here as the SDNN heart-rate-variability metric.
func sdnnUint16(values []uint16) float64 {
	if len(values) < 2 {
		return 0
	}
	mean := meanUint16(values)
	n := float64(len(values))
	var sumSq float64
	for _, v := range values {
		d := float64(v) - mean
		sumSq += d * d
	}
	return math.Sqrt(sumSq / (n - 1))
}

func sdnnFloat64(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	mean := meanFloat64(values)
	n := float64(len(values))
	var sumSq float64
	for _, v := range values {
		d := v - mean
		sumSq += d * d
	}
	return math.Sqrt(sumSq / (n - 1))
}

func meanUint16(values []uint16) float64 {
	var sum float64
	for _, v := range values {
		sum += float64(v)
	}
	return sum / float64(len(values))
}

func meanFloat64(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// isPeriodic detects a period-2 alternation or a constant run in the most
// recent heart rate samples, the signature of a synthetic oscillator.
func isPeriodic(values []uint16) bool {
	if len(values) < 8 {
		return false
	}
	recent := lastN(values, 8)
	// reverse so recent[0] is the newest sample, matching the original
	// period-2 comparison over the most recent 8 readings.
	reversed := make([]uint16, len(recent))
	for i, v := range recent {
		reversed[len(recent)-1-i] = v
	}

	period2Match := 0
	for i := 0; i < 6; i++ {
		if reversed[i] == reversed[i+2] {
			period2Match++
		}
	}
	if period2Match >= 5 {
		return true
	}

	last10 := lastN(values, 10)
	unique := make(map[uint16]struct{}, len(last10))
	for _, v := range last10 {
		unique[v] = struct{}{}
	}
	return len(unique) <= 1
}

func lastN(values []uint16, n int) []uint16 {
	if len(values) <= n {
		return values
	}
	return values[len(values)-n:]
}

func floatBits(f float64) uint64 {
	return math.Float64bits(f)
}
