package mathx

// FloorDiv divides rounding toward negative infinity. b must be positive.
func FloorDiv(a, b int) int {
	q := a / b
	if a%b < 0 {
		q--
	}
	return q
}

// SnapDown rounds v down to the nearest multiple of unit.
func SnapDown(v, unit int) int {
	return FloorDiv(v, unit) * unit
}

// SnapUp rounds v up to the nearest multiple of unit.
func SnapUp(v, unit int) int {
	down := SnapDown(v, unit)
	if down == v {
		return v
	}
	return down + unit
}

func ClampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func Clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
