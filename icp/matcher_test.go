// ABOUTME: Tests for ICP matching and validation
// ABOUTME: Covers each scoring dimension and the size decay
package icp

import (
	"testing"

	"github.com/google/uuid"
	"github.com/harperreed/introengine/apperr"
	"github.com/harperreed/introengine/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intp(v int) *int { return &v }

func saasICP() models.ICPDefinition {
	return models.ICPDefinition{Industries: []string{"SaaS"}, MinEmployees: intp(50), MaxEmployees: intp(500)}
}

func TestScoreInsideBounds(t *testing.T) {
	a := models.Company{Name: "Company A", Industry: "saas", Employees: intp(200)}

	score, b := Score(saasICP(), a)
	assert.Equal(t, 100, b.Industry)
	assert.Equal(t, 100, b.Size)
	assert.GreaterOrEqual(t, score, 80)
	assert.Equal(t, 100, score)
}

func TestSizeDecayOutsideBounds(t *testing.T) {
	b := models.Company{Name: "Company B", Industry: "SaaS", Employees: intp(600)}

	score, breakdown := Score(saasICP(), b)
	assert.Equal(t, 80, breakdown.Size)
	assert.Less(t, score, 100)
	assert.Greater(t, score, 0)
	assert.Equal(t, 95, score)

	huge := models.Company{Name: "Huge", Industry: "SaaS", Employees: intp(5000)}
	_, breakdown = Score(saasICP(), huge)
	assert.Equal(t, 0, breakdown.Size, "beyond the cutoff the size term is zero")

	tiny := models.Company{Name: "Tiny", Industry: "SaaS", Employees: intp(25)}
	_, breakdown = Score(saasICP(), tiny)
	assert.Equal(t, 50, breakdown.Size)

	unknown := models.Company{Name: "Unknown", Industry: "SaaS"}
	_, breakdown = Score(saasICP(), unknown)
	assert.Equal(t, 50, breakdown.Size)
}

func TestCriteria(t *testing.T) {
	def := models.ICPDefinition{
		Technologies:    []string{"Go", "Postgres"},
		Locations:       []string{"Berlin"},
		DigitalMaturity: "high",
	}
	c := models.Company{
		Name:            "Mixed",
		Technologies:    []string{"go", "react"},
		Location:        "Berlin, Germany",
		DigitalMaturity: "medium",
	}

	_, b := Score(def, c)
	assert.Equal(t, 100, b.Industry, "no industry constraint")
	assert.Equal(t, 100, b.Size, "no size constraint")
	assert.Equal(t, 50, b.Technology)
	assert.Equal(t, 100, b.Location)
	assert.Equal(t, 50, b.Maturity)

	c.DigitalMaturity = "low"
	c.Location = "Paris"
	_, b = Score(def, c)
	assert.Equal(t, 0, b.Maturity)
	assert.Equal(t, 0, b.Location)
}

func TestMatchTargetsOrderingAndThreshold(t *testing.T) {
	def := models.ICPDefinition{
		Industries:   []string{"SaaS"},
		MaxEmployees: intp(100),
		Locations:    []string{"Berlin"},
		Technologies: []string{"go"},
	}
	companies := []models.Company{
		{ID: uuid.New(), Name: "beta", Industry: "SaaS", Employees: intp(40), Location: "Berlin", Technologies: []string{"go"}},
		{ID: uuid.New(), Name: "Alpha", Industry: "SaaS", Employees: intp(40), Location: "Berlin", Technologies: []string{"go"}},
		{ID: uuid.New(), Name: "Nope", Industry: "Retail", Employees: intp(1000), Location: "Lima"},
		{ID: uuid.New(), Name: "Mid", Industry: "SaaS"},
	}

	ranked := MatchTargets(def, companies)
	require.Len(t, ranked, 4)
	assert.Equal(t, "Alpha", ranked[0].Company.Name)
	assert.Equal(t, "beta", ranked[1].Company.Name)
	assert.Equal(t, "Mid", ranked[2].Company.Name)
	assert.Equal(t, "Nope", ranked[3].Company.Name)
	assert.Equal(t, 100, ranked[0].Score)
	assert.Equal(t, 58, ranked[2].Score)
	assert.Equal(t, 10, ranked[3].Score)

	assert.True(t, ranked[2].Qualified)
	assert.False(t, ranked[3].Qualified, "score %d should be below %d", ranked[3].Score, MinScore)

	q := Qualified(ranked)
	assert.Len(t, q, 3)
}

func TestValidateICP(t *testing.T) {
	def := &models.ICPDefinition{
		Industries:      []string{" SaaS ", "saas", "", "Fintech"},
		DigitalMaturity: "HIGH",
	}
	require.NoError(t, ValidateICP(def))
	assert.Equal(t, []string{"SaaS", "Fintech"}, def.Industries)
	assert.Equal(t, "high", def.DigitalMaturity)

	err := ValidateICP(&models.ICPDefinition{MinEmployees: intp(600), MaxEmployees: intp(500)})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	err = ValidateICP(&models.ICPDefinition{MinEmployees: intp(-1)})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	err = ValidateICP(&models.ICPDefinition{DigitalMaturity: "bleeding-edge"})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}
