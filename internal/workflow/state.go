package workflow

import (
	"math"
	"strconv"
	"strings"

	"bodycomp/internal/domain"
)

// Phase is the workflow's position in its state machine.
type Phase string

const (
	PhaseEditing     Phase = "editing"
	PhaseComplete    Phase = "complete"
	PhaseCalculating Phase = "calculating"
	PhaseResult      Phase = "result"
	PhaseFailed      Phase = "failed"
	PhaseClosed      Phase = "closed"
)

// Site is one skinfold text buffer together with its parsed value.
type Site struct {
	Site  domain.SkinfoldSite `json:"site"`
	Text  string              `json:"text"`
	Value float64             `json:"value"`
	Valid bool                `json:"valid"`
}

// State is a snapshot of a workflow. Snapshots are values; a State obtained
// from Workflow.State or Subscribe is never modified afterwards.
type State struct {
	Protocol      string                    `json:"protocol"`
	Phase         Phase                     `json:"phase"`
	AgeText       string                    `json:"ageText"`
	Age           int                       `json:"age"`
	Sex           domain.Sex                `json:"sex"`
	Sites         []Site                    `json:"sites"`
	Note          string                    `json:"note"`
	Complete      bool                      `json:"complete"`
	Result        *domain.CompositionRecord `json:"result"`
	Calculating   bool                      `json:"calculating"`
	ErrorMessage  string                    `json:"errorMessage"`
	AllowPersist  bool                      `json:"allowPersist"`
	ResultVisible bool                      `json:"resultVisible"`
}

func initialState(p Protocol, sex domain.Sex, allowPersist bool) State {
	labels := p.Sites(sex)
	sites := make([]Site, len(labels))
	for i, l := range labels {
		sites[i] = Site{Site: l}
	}
	return State{
		Protocol:     p.Name,
		Phase:        PhaseEditing,
		Sex:          sex,
		Sites:        sites,
		AllowPersist: allowPersist,
	}
}

func (s State) cloneSites() State {
	sites := make([]Site, len(s.Sites))
	copy(sites, s.Sites)
	s.Sites = sites
	return s
}

// revalidate recomputes Complete and moves the phase between Editing and
// Complete after a field edit.
func (s State) revalidate() State {
	complete := s.Age > 0
	for _, site := range s.Sites {
		if !site.Valid {
			complete = false
		}
	}
	s.Complete = complete
	s.Calculating = false
	if complete {
		s.Phase = PhaseComplete
	} else {
		s.Phase = PhaseEditing
	}
	return s
}

func (s State) values() []float64 {
	v := make([]float64, len(s.Sites))
	for i, site := range s.Sites {
		v[i] = site.Value
	}
	return v
}

func digitsOnly(text string) string {
	var b strings.Builder
	for _, r := range text {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// decimalOnly keeps digits and the first decimal point.
func decimalOnly(text string) string {
	var b strings.Builder
	dot := false
	for _, r := range text {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' && !dot:
			dot = true
			b.WriteRune(r)
		}
	}
	return b.String()
}

func parseAge(text string) (int, bool) {
	n, err := strconv.Atoi(text)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

func parseSkinfold(text string) (float64, bool) {
	v, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsInf(v, 0) || math.IsNaN(v) || v <= 0 {
		return 0, false
	}
	return v, true
}
