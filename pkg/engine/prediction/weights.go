package prediction

// ReassignWeight drops the weights of missing days and scales the rest so the total stays the same.
// Returned slice only has the available days, in order. Nil when every day is missing or has zero weight.
func ReassignWeight(weights []float64, missing map[int]bool) []float64 {
	total, remain := 0.0, 0.0
	for i, w := range weights {
		total += w
		if !missing[i] {
			remain += w
		}
	}
	if remain == 0 {
		return nil
	}

	out := make([]float64, 0, len(weights))
	for i, w := range weights {
		if missing[i] {
			continue
		}
		out = append(out, w/remain*total)
	}
	return out
}

// EstimateMissing isi hari yang perlu diestimasi dengan weighted mean hari yang punya data.
func EstimateMissing(values []float64, needEstimate []bool, weights []float64) []float64 {
	remain, weightedSum := 0.0, 0.0
	for i, v := range values {
		if needEstimate[i] {
			continue
		}
		remain += weights[i]
		weightedSum += v * weights[i]
	}

	estimate := 0.0
	if remain != 0 {
		estimate = weightedSum / remain
	}

	out := make([]float64, len(values))
	for i, v := range values {
		if needEstimate[i] {
			out[i] = estimate
		} else {
			out[i] = v
		}
	}
	return out
}

func Dot(values, weights []float64) float64 {
	s := 0.0
	for i := range values {
		s += values[i] * weights[i]
	}
	return s
}
