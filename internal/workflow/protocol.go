package workflow

import (
	"fmt"

	"bodycomp/internal/bodyfat"
	"bodycomp/internal/domain"
)

// Protocol describes one skinfold scheme: which sites are collected for
// each sex and which regression turns them into a percentage.
type Protocol struct {
	Name     string
	Method   domain.Method
	sites    func(domain.Sex) []domain.SkinfoldSite
	estimate func(values []float64, age float64, sex domain.Sex) float64
}

// Sites returns the measured sites, in entry order, for sex.
func (p Protocol) Sites(sex domain.Sex) []domain.SkinfoldSite {
	return p.sites(sex)
}

// SiteCount is the number of text buffers a workflow keeps.
func (p Protocol) SiteCount() int {
	return len(p.sites(domain.SexMale))
}

// Estimate runs the protocol's regression. len(values) must equal SiteCount.
func (p Protocol) Estimate(values []float64, age float64, sex domain.Sex) float64 {
	return p.estimate(values, age, sex)
}

var (
	threeSiteMale   = []domain.SkinfoldSite{domain.SiteChest, domain.SiteAbdomen, domain.SiteThigh}
	threeSiteFemale = []domain.SkinfoldSite{domain.SiteTriceps, domain.SiteSuprailiac, domain.SiteThigh}
	sevenSites      = []domain.SkinfoldSite{
		domain.SiteChest,
		domain.SiteMidaxillary,
		domain.SiteTriceps,
		domain.SiteSubscapular,
		domain.SiteAbdomen,
		domain.SiteSuprailiac,
		domain.SiteThigh,
	}
)

// ThreeSite is the Jackson-Pollock 3-site protocol.
var ThreeSite = Protocol{
	Name:   "three_site",
	Method: domain.MethodThreePoint,
	sites: func(sex domain.Sex) []domain.SkinfoldSite {
		if sex == domain.SexFemale {
			return threeSiteFemale
		}
		return threeSiteMale
	},
	estimate: func(v []float64, age float64, sex domain.Sex) float64 {
		return bodyfat.ThreeSite(v[0], v[1], v[2], age, sex)
	},
}

// SevenSite is the Jackson-Pollock 7-site protocol. Both sexes measure the
// same sites.
var SevenSite = Protocol{
	Name:   "seven_site",
	Method: domain.MethodSevenPoint,
	sites: func(domain.Sex) []domain.SkinfoldSite {
		return sevenSites
	},
	estimate: func(v []float64, age float64, sex domain.Sex) float64 {
		return bodyfat.SevenSite(v[0], v[1], v[2], v[3], v[4], v[5], v[6], age, sex)
	},
}

// ProtocolByName resolves "three_site" or "seven_site".
func ProtocolByName(name string) (Protocol, error) {
	switch name {
	case ThreeSite.Name:
		return ThreeSite, nil
	case SevenSite.Name:
		return SevenSite, nil
	}
	return Protocol{}, fmt.Errorf("protocol must be %q or %q", ThreeSite.Name, SevenSite.Name)
}
