package shapes

// Sum adds its arguments. It is the callable proxy used by the "adder"
// scenario target.
func Sum(values ...float64) float64 {
	var total float64
	for _, v := range values {
		total += v
	}
	return total
}
