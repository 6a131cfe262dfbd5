// ABOUTME: YAML form of the ideal customer profile
// ABOUTME: Lets a profile be kept in a file, loaded strictly and exported back
package icp

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/harperreed/introengine/apperr"
	"github.com/harperreed/introengine/models"
	"gopkg.in/yaml.v3"
)

type profileFile struct {
	Industries      []string `yaml:"industries,omitempty"`
	MinEmployees    *int     `yaml:"min_employees,omitempty"`
	MaxEmployees    *int     `yaml:"max_employees,omitempty"`
	Technologies    []string `yaml:"technologies,omitempty"`
	DigitalMaturity string   `yaml:"digital_maturity,omitempty"`
	Locations       []string `yaml:"locations,omitempty"`
	TargetRoles     []string `yaml:"target_roles,omitempty"`
	PainPoints      string   `yaml:"pain_points,omitempty"`
	Triggers        string   `yaml:"triggers,omitempty"`
	AntiCriteria    string   `yaml:"anti_criteria,omitempty"`
}

// ParseYAML reads a profile document. Unknown keys are rejected so a typo
// does not silently widen the profile. The result is validated.
func ParseYAML(data []byte) (*models.ICPDefinition, error) {
	const op = "parse_icp"
	var f profileFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, apperr.Validation(op, "profile file is empty")
		}
		return nil, apperr.Validation(op, "invalid profile: %v", err)
	}

	def := &models.ICPDefinition{
		Industries:      f.Industries,
		MinEmployees:    f.MinEmployees,
		MaxEmployees:    f.MaxEmployees,
		Technologies:    f.Technologies,
		DigitalMaturity: f.DigitalMaturity,
		Locations:       f.Locations,
		TargetRoles:     f.TargetRoles,
		PainPoints:      f.PainPoints,
		Triggers:        f.Triggers,
		AntiCriteria:    f.AntiCriteria,
	}
	if err := ValidateICP(def); err != nil {
		return nil, err
	}
	return def, nil
}

// MarshalYAML renders a profile in the form ParseYAML reads.
func MarshalYAML(def *models.ICPDefinition) ([]byte, error) {
	out, err := yaml.Marshal(profileFile{
		Industries:      def.Industries,
		MinEmployees:    def.MinEmployees,
		MaxEmployees:    def.MaxEmployees,
		Technologies:    def.Technologies,
		DigitalMaturity: def.DigitalMaturity,
		Locations:       def.Locations,
		TargetRoles:     def.TargetRoles,
		PainPoints:      def.PainPoints,
		Triggers:        def.Triggers,
		AntiCriteria:    def.AntiCriteria,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal profile: %w", err)
	}
	return out, nil
}
