// ABOUTME: Multi-dimension opportunity scoring: fit, buying signal, intro strength, lead potential
// ABOUTME: Pure scoring function plus an engine that rescores a user's active opportunities
package scoring

import (
	"math"
	"strings"
	"unicode"

	"github.com/harperreed/introengine/icp"
	"github.com/harperreed/introengine/models"
)

// Composite weights; they sum to 1.0.
const (
	WeightIndustryFit   = 0.25
	WeightBuyingSignal  = 0.20
	WeightIntroStrength = 0.35
	WeightLeadPotential = 0.20
)

const (
	neutralSignal  = 50
	signalBase     = 40
	outboundIntro  = 15
	otherSignal    = 10
	defaultSenior  = 40
	unknownSizeVal = 50
)

var signalWeight = map[string]float64{
	models.SignalFunding:          35,
	models.SignalHiring:           25,
	models.SignalLeadershipChange: 20,
	models.SignalExpansion:        20,
	models.SignalTechAdoption:     15,
}

var tierBase = map[models.OpportunityType]float64{
	models.TypeDirect:      90,
	models.TypeSecondLevel: 70,
	models.TypeInferred:    45,
}

// Context is everything ScoreOpportunity reads besides the opportunity.
// Contact and Connection are nil when the opportunity has none.
type Context struct {
	Target     models.Company
	ICP        models.ICPDefinition
	Contact    *models.Contact
	Connection *models.Connection
}

// ScoreOpportunity computes the four sub-scores and the weighted total.
func ScoreOpportunity(opp models.Opportunity, sc Context) models.Scores {
	icpScore, breakdown := icp.Score(sc.ICP, sc.Target)

	s := models.Scores{
		IndustryFit:   round(0.6*float64(breakdown.Industry) + 0.4*float64(icpScore)),
		BuyingSignal:  BuyingSignal(sc.Target.Signals),
		IntroStrength: IntroStrength(opp.Type, sc.Connection),
		LeadPotential: LeadPotential(sc.Target, sc.Contact),
	}
	s.Total = Total(s)
	return s
}

// Total combines sub-scores with the composite weights.
func Total(s models.Scores) int {
	return round(WeightIndustryFit*float64(s.IndustryFit) +
		WeightBuyingSignal*float64(s.BuyingSignal) +
		WeightIntroStrength*float64(s.IntroStrength) +
		WeightLeadPotential*float64(s.LeadPotential))
}

// BuyingSignal is neutral without signals and grows with their weighted strength.
func BuyingSignal(signals []models.Signal) int {
	if len(signals) == 0 {
		return neutralSignal
	}
	sum := float64(signalBase)
	for _, sig := range signals {
		w, ok := signalWeight[strings.ToLower(strings.TrimSpace(sig.Kind))]
		if !ok {
			w = otherSignal
		}
		sum += w * float64(models.ClampScore(sig.Strength)) / 100
	}
	return round(math.Min(100, sum))
}

// IntroStrength rates how warm the path is. Intro types blend the tier base
// with connection strength; a missing connection counts as the default.
func IntroStrength(typ models.OpportunityType, conn *models.Connection) int {
	base, ok := tierBase[typ]
	if !ok {
		return outboundIntro
	}
	strength := models.DefaultStrength
	if conn != nil {
		strength = models.ClampScore(conn.Strength)
	}
	return round(0.7*base + 0.3*float64(strength))
}

// LeadPotential blends company size with the contact's seniority.
func LeadPotential(target models.Company, contact *models.Contact) int {
	title := ""
	if contact != nil {
		title = contact.Title
	}
	return round(0.6*float64(sizeValue(target.Employees)) + 0.4*float64(Seniority(title)))
}

func sizeValue(employees *int) int {
	if employees == nil {
		return unknownSizeVal
	}
	switch n := *employees; {
	case n >= 1000:
		return 100
	case n >= 250:
		return 80
	case n >= 50:
		return 60
	case n >= 10:
		return 40
	default:
		return 20
	}
}

var (
	cLevel   = map[string]bool{"ceo": true, "cto": true, "cfo": true, "coo": true, "cmo": true, "cio": true, "cpo": true, "cro": true, "chief": true, "founder": true, "cofounder": true}
	vpLevel  = map[string]bool{"vp": true, "svp": true, "evp": true}
	headLvl  = map[string]bool{"head": true, "director": true}
	mgrLevel = map[string]bool{"manager": true, "lead": true}
)

// Seniority maps a job title to a 0..100 seniority value.
func Seniority(title string) int {
	words := strings.FieldsFunc(strings.ToLower(title), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	has := func(set map[string]bool) bool {
		for _, w := range words {
			if set[w] {
				return true
			}
		}
		return false
	}
	vice := strings.Contains(strings.ToLower(title), "vice president")

	switch {
	case has(cLevel):
		return 100
	case has(vpLevel) || vice:
		return 85
	case has(headLvl):
		return 70
	case has(mgrLevel):
		return 55
	default:
		return defaultSenior
	}
}

func round(v float64) int {
	return models.ClampScore(int(math.Round(v)))
}
