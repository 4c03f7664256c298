package geo

import "math"

// LinAbsNorm maps |value| onto [0,1] where best scores 1 and worst scores 0,
// then raises it to exp to make the falloff super-linear
func LinAbsNorm(value, best, worst, exp float64) float64 {
	scaled := (worst - math.Abs(value)) / (worst - best)
	clamped := math.Max(0, math.Min(scaled, 1))

	return math.Pow(clamped, exp)
}

// Clamp limits value to the closed range [lower, upper]
func Clamp(value, lower, upper float64) float64 {
	return math.Max(lower, math.Min(value, upper))
}
