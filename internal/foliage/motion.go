package foliage

import "math"

// triangle maps t (measured in legs) onto a back-and-forth wave in [0,1]:
// 0 at even legs, 1 at odd legs.
func triangle(t float64) float64 {
	s := math.Mod(t, 2)
	if s < 0 {
		s += 2
	}
	if s < 1 {
		return s
	}
	return 2 - s
}

// triangleIntegral is the integral of triangle(u/leg) du over [0, t].
func triangleIntegral(t, leg float64) float64 {
	if t <= 0 || leg <= 0 {
		return 0
	}
	cycles := math.Floor(t / (2 * leg))
	r := t - cycles*2*leg
	acc := cycles * leg
	if r < leg {
		return acc + r*r/(2*leg)
	}
	d := r - leg
	return acc + leg/2 + d - d*d/(2*leg)
}

func easeInOutCubic(t float64) float64 {
	switch {
	case t <= 0:
		return 0
	case t >= 1:
		return 1
	case t < 0.5:
		return 4 * t * t * t
	default:
		u := -2*t + 2
		return 1 - u*u*u/2
	}
}
