// Package bodyfat implements the Jackson-Pollock skinfold regressions and the
// Siri conversion from body density to body-fat percentage.
//
// The functions do not validate their inputs. Pathological inputs can yield
// a non-positive density and therefore a non-finite or negative percentage;
// use Valid before trusting a result.
package bodyfat

import (
	"math"

	"bodycomp/internal/domain"
)

// Siri converts body density (g/cm³) to body-fat percentage.
func Siri(bd float64) float64 {
	return 495/bd - 450
}

// ThreeSiteDensity returns body density for the 3-site protocol. The sites
// are chest/abdomen/thigh for men and triceps/suprailiac/thigh for women;
// only their sum matters.
func ThreeSiteDensity(s1, s2, s3, age float64, sex domain.Sex) float64 {
	s := s1 + s2 + s3
	if sex == domain.SexFemale {
		return 1.0994921 - 0.0009929*s + 0.0000023*s*s - 0.0001392*age
	}
	return 1.10938 - 0.0008267*s + 0.0000016*s*s - 0.0002574*age
}

// ThreeSite returns the body-fat percentage for the 3-site protocol.
func ThreeSite(s1, s2, s3, age float64, sex domain.Sex) float64 {
	return Siri(ThreeSiteDensity(s1, s2, s3, age, sex))
}

// SevenSiteDensity returns body density for the 7-site protocol.
func SevenSiteDensity(chest, midaxillary, triceps, subscapular, abdomen, suprailiac, thigh, age float64, sex domain.Sex) float64 {
	s := chest + midaxillary + triceps + subscapular + abdomen + suprailiac + thigh
	if sex == domain.SexFemale {
		return 1.0970 - 0.00046971*s + 0.00000056*s*s - 0.00012828*age
	}
	return 1.112 - 0.00043499*s + 0.00000055*s*s - 0.00028826*age
}

// SevenSite returns the body-fat percentage for the 7-site protocol.
func SevenSite(chest, midaxillary, triceps, subscapular, abdomen, suprailiac, thigh, age float64, sex domain.Sex) float64 {
	return Siri(SevenSiteDensity(chest, midaxillary, triceps, subscapular, abdomen, suprailiac, thigh, age, sex))
}

// Valid reports whether pct is a usable percentage: finite and strictly
// between 0 and 100.
func Valid(pct float64) bool {
	return !math.IsNaN(pct) && !math.IsInf(pct, 0) && pct > 0 && pct < 100
}
