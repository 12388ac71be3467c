package domain

const kgToLb = 2.2046226218

// ConvertWeight converts a weight value between UnitKG and UnitLB.
// Returns v unchanged if from == to or if the units are unrecognised.
func ConvertWeight(v float64, from, to WeightUnit) float64 {
	if from == to {
		return v
	}
	if from == UnitKG && to == UnitLB {
		return v * kgToLb
	}
	if from == UnitLB && to == UnitKG {
		return v / kgToLb
	}
	return v
}
