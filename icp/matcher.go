// ABOUTME: Ideal customer profile matching over the user's known companies
// ABOUTME: Scores each company on weighted criteria and ranks them deterministically
package icp

import (
	"math"
	"sort"
	"strings"

	"github.com/harperreed/introengine/apperr"
	"github.com/harperreed/introengine/models"
)

// Criterion weights; they sum to 1.0.
const (
	WeightIndustry   = 0.35
	WeightSize       = 0.25
	WeightTechnology = 0.15
	WeightLocation   = 0.15
	WeightMaturity   = 0.10
)

// MinScore is the lowest icp_score that still qualifies a company for path
// discovery and outbound generation.
const MinScore = 20

// neutral is used when the company side of a criterion is unknown.
const neutral = 50

var maturityLevel = map[string]int{
	models.MaturityLow:    0,
	models.MaturityMedium: 1,
	models.MaturityHigh:   2,
}

// Breakdown holds the per-criterion scores, each in [0,100].
type Breakdown struct {
	Industry   int `json:"industry"`
	Size       int `json:"size"`
	Technology int `json:"technology"`
	Location   int `json:"location"`
	Maturity   int `json:"maturity"`
}

type RankedTarget struct {
	Company   models.Company `json:"company"`
	Score     int            `json:"score"`
	Breakdown Breakdown      `json:"breakdown"`
	Qualified bool           `json:"qualified"`
}

// Score computes a single company's icp_score and its breakdown.
func Score(def models.ICPDefinition, company models.Company) (int, Breakdown) {
	b := Breakdown{
		Industry:   industryScore(def.Industries, company.Industry),
		Size:       sizeScore(def.MinEmployees, def.MaxEmployees, company.Employees),
		Technology: technologyScore(def.Technologies, company.Technologies),
		Location:   locationScore(def.Locations, company.Location),
		Maturity:   maturityScore(def.DigitalMaturity, company.DigitalMaturity),
	}
	total := WeightIndustry*float64(b.Industry) +
		WeightSize*float64(b.Size) +
		WeightTechnology*float64(b.Technology) +
		WeightLocation*float64(b.Location) +
		WeightMaturity*float64(b.Maturity)
	return models.ClampScore(int(math.Round(total))), b
}

// MatchTargets scores and ranks every company: score descending, then name,
// then id. It has no side effects; persisting icp_score is up to the caller.
func MatchTargets(def models.ICPDefinition, companies []models.Company) []RankedTarget {
	ranked := make([]RankedTarget, 0, len(companies))
	for _, c := range companies {
		score, breakdown := Score(def, c)
		ranked = append(ranked, RankedTarget{
			Company:   c,
			Score:     score,
			Breakdown: breakdown,
			Qualified: score >= MinScore,
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		an, bn := strings.ToLower(a.Company.Name), strings.ToLower(b.Company.Name)
		if an != bn {
			return an < bn
		}
		return a.Company.ID.String() < b.Company.ID.String()
	})
	return ranked
}

// Qualified filters ranked targets down to those at or above MinScore,
// preserving order.
func Qualified(ranked []RankedTarget) []RankedTarget {
	out := make([]RankedTarget, 0, len(ranked))
	for _, r := range ranked {
		if r.Qualified {
			out = append(out, r)
		}
	}
	return out
}

func industryScore(want []string, industry string) int {
	if len(want) == 0 {
		return 100
	}
	if FoldContains(want, industry) {
		return 100
	}
	return 0
}

func sizeScore(minEmp, maxEmp, employees *int) int {
	if minEmp == nil && maxEmp == nil {
		return 100
	}
	if employees == nil {
		return neutral
	}
	e := float64(*employees)
	if maxEmp != nil && e > float64(*maxEmp) {
		m := float64(*maxEmp)
		if m <= 0 {
			return 0
		}
		return decay((e - m) / m)
	}
	if minEmp != nil && e < float64(*minEmp) {
		m := float64(*minEmp)
		return decay((m - e) / m)
	}
	return 100
}

// decay maps a relative distance outside the size bounds to a score that
// reaches zero once the distance equals the bound itself.
func decay(distance float64) int {
	return models.ClampScore(int(math.Round(100 * (1 - distance))))
}

func technologyScore(want, have []string) int {
	if len(want) == 0 {
		return 100
	}
	haveSet := models.FoldSet(have)
	wantSet := models.FoldSet(want)
	if len(wantSet) == 0 {
		return 100
	}
	overlap := 0
	for t := range wantSet {
		if haveSet[t] {
			overlap++
		}
	}
	return models.ClampScore(int(math.Round(100 * float64(overlap) / float64(len(wantSet)))))
}

func locationScore(want []string, location string) int {
	if len(want) == 0 {
		return 100
	}
	loc := strings.ToLower(strings.TrimSpace(location))
	if loc == "" {
		return 0
	}
	for _, w := range want {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" && strings.Contains(loc, w) {
			return 100
		}
	}
	return 0
}

func maturityScore(want, have string) int {
	w, ok := maturityLevel[strings.ToLower(strings.TrimSpace(want))]
	if !ok {
		return 100
	}
	h, ok := maturityLevel[strings.ToLower(strings.TrimSpace(have))]
	if !ok {
		return neutral
	}
	switch d := w - h; {
	case d == 0:
		return 100
	case d == 1 || d == -1:
		return 50
	default:
		return 0
	}
}

// FoldContains reports whether s is in set, ignoring case and surrounding space.
func FoldContains(set []string, s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	for _, v := range set {
		if strings.EqualFold(strings.TrimSpace(v), s) {
			return true
		}
	}
	return false
}

// ValidateICP normalises an ICP definition in place and rejects malformed ones.
func ValidateICP(def *models.ICPDefinition) error {
	const op = "validate_icp"
	if def.MinEmployees != nil && *def.MinEmployees < 0 {
		return apperr.Validation(op, "min_employees must not be negative")
	}
	if def.MaxEmployees != nil && *def.MaxEmployees <= 0 {
		return apperr.Validation(op, "max_employees must be positive")
	}
	if def.MinEmployees != nil && def.MaxEmployees != nil && *def.MinEmployees > *def.MaxEmployees {
		return apperr.Validation(op, "min_employees (%d) is greater than max_employees (%d)", *def.MinEmployees, *def.MaxEmployees)
	}
	m := strings.ToLower(strings.TrimSpace(def.DigitalMaturity))
	if m != "" {
		if _, ok := maturityLevel[m]; !ok {
			return apperr.Validation(op, "digital_maturity must be one of low, medium, high (got %q)", def.DigitalMaturity)
		}
	}
	def.DigitalMaturity = m
	def.Industries = cleanList(def.Industries)
	def.Technologies = cleanList(def.Technologies)
	def.Locations = cleanList(def.Locations)
	def.TargetRoles = cleanList(def.TargetRoles)
	return nil
}

// cleanList trims entries and drops blanks and case-insensitive duplicates.
func cleanList(in []string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, v := range in {
		v = strings.TrimSpace(v)
		k := strings.ToLower(v)
		if v == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, v)
	}
	return out
}
