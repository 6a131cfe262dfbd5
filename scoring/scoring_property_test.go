package scoring

import (
	"testing"

	"github.com/google/uuid"
	"github.com/harperreed/introengine/models"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

type scoringCase struct {
	opp models.Opportunity
	ctx Context
}

func genSignal() gopter.Gen {
	return gopter.CombineGens(
		gen.OneConstOf(models.SignalFunding, models.SignalHiring, models.SignalLeadershipChange,
			models.SignalExpansion, models.SignalTechAdoption, "press"),
		gen.IntRange(-50, 150),
	).Map(func(v []interface{}) models.Signal {
		return models.Signal{Kind: v[0].(string), Strength: v[1].(int)}
	})
}

func genCase() gopter.Gen {
	return gopter.CombineGens(
		gen.OneConstOf(models.TypeDirect, models.TypeSecondLevel, models.TypeInferred, models.TypeOutbound),
		gen.OneConstOf("SaaS", "Fintech", "Retail", ""),
		gen.IntRange(-1, 20000),
		gen.SliceOf(genSignal()),
		gen.IntRange(-1, 100),
		gen.OneConstOf("CEO", "VP Sales", "Head of Data", "Product Manager", "Engineer", ""),
	).Map(func(v []interface{}) scoringCase {
		typ := v[0].(models.OpportunityType)
		target := models.Company{ID: uuid.New(), Name: "Target", Industry: v[1].(string), Signals: v[3].([]models.Signal)}
		if n := v[2].(int); n >= 0 {
			target.Employees = &n
		}
		c := scoringCase{
			opp: models.Opportunity{Type: typ, TargetID: target.ID},
			ctx: Context{Target: target, ICP: saasICP},
		}
		if typ.IsIntro() {
			contact := models.Contact{ID: uuid.New(), Title: v[5].(string)}
			c.opp.ContactID = &contact.ID
			c.ctx.Contact = &contact
			if s := v[4].(int); s >= 0 {
				c.ctx.Connection = &models.Connection{ContactID: contact.ID, Strength: s}
			}
		}
		return c
	})
}

func inRange(v int) bool { return v >= 0 && v <= 100 }

func TestScoringProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 300
	properties := gopter.NewProperties(parameters)

	properties.Property("every score is within [0,100]", prop.ForAll(
		func(c scoringCase) bool {
			s := ScoreOpportunity(c.opp, c.ctx)
			return inRange(s.IndustryFit) && inRange(s.BuyingSignal) && inRange(s.IntroStrength) &&
				inRange(s.LeadPotential) && inRange(s.Total)
		},
		genCase(),
	))

	properties.Property("total is the weighted combination of the sub-scores", prop.ForAll(
		func(c scoringCase) bool {
			s := ScoreOpportunity(c.opp, c.ctx)
			return s.Total == Total(s)
		},
		genCase(),
	))

	properties.Property("scoring is deterministic", prop.ForAll(
		func(c scoringCase) bool {
			return ScoreOpportunity(c.opp, c.ctx) == ScoreOpportunity(c.opp, c.ctx)
		},
		genCase(),
	))

	properties.Property("a warm path always rates warmer than outbound", prop.ForAll(
		func(c scoringCase) bool {
			if !c.opp.Type.IsIntro() {
				return true
			}
			return IntroStrength(c.opp.Type, c.ctx.Connection) > IntroStrength(models.TypeOutbound, nil)
		},
		genCase(),
	))

	properties.TestingRun(t)
}
