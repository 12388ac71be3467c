package domain

import "fmt"

// Sex selects the regression constants and, for the 3-site protocol, the
// measured sites.
type Sex string

const (
	SexMale   Sex = "male"
	SexFemale Sex = "female"
)

// ParseSex accepts "male" or "female".
func ParseSex(s string) (Sex, error) {
	switch Sex(s) {
	case SexMale, SexFemale:
		return Sex(s), nil
	}
	return "", fmt.Errorf("sex must be %q or %q", SexMale, SexFemale)
}

// Method tags how a composition record was obtained.
type Method string

const (
	MethodThreePoint Method = "three_point"
	MethodSevenPoint Method = "seven_point"
	MethodOther      Method = "other"
)

// Valid reports whether m is one of the known methods.
func (m Method) Valid() bool {
	switch m {
	case MethodThreePoint, MethodSevenPoint, MethodOther:
		return true
	}
	return false
}

// WeightUnit is the unit a weight magnitude is expressed in.
type WeightUnit string

const (
	UnitKG WeightUnit = "kg"
	UnitLB WeightUnit = "lb"
)

// ParseWeightUnit accepts "kg" or "lb".
func ParseWeightUnit(s string) (WeightUnit, error) {
	switch WeightUnit(s) {
	case UnitKG, UnitLB:
		return WeightUnit(s), nil
	}
	return "", fmt.Errorf("unit must be %q or %q", UnitKG, UnitLB)
}

// SkinfoldSite is an anatomical location measured with a caliper.
type SkinfoldSite string

const (
	SiteChest       SkinfoldSite = "chest"
	SiteMidaxillary SkinfoldSite = "midaxillary"
	SiteTriceps     SkinfoldSite = "triceps"
	SiteSubscapular SkinfoldSite = "subscapular"
	SiteAbdomen     SkinfoldSite = "abdomen"
	SiteSuprailiac  SkinfoldSite = "suprailiac"
	SiteThigh       SkinfoldSite = "thigh"
)
