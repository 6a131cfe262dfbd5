// ABOUTME: Connection strength bookkeeping driven by logged interactions
// ABOUTME: Maps numeric strength to the weak/medium/strong labels used in output
package models

import "time"

// RelationshipStrength labels.
const (
	StrengthWeak   = "weak"
	StrengthMedium = "medium"
	StrengthStrong = "strong"
)

// DefaultStrength is assumed for contacts with no connection record.
const DefaultStrength = 50

var interactionBump = map[string]int{
	InteractionMeeting: 8,
	InteractionCall:    6,
	InteractionEvent:   4,
	InteractionMessage: 3,
	InteractionEmail:   2,
}

// ValidInteractionType reports whether kind is a known interaction type.
func ValidInteractionType(kind string) bool {
	_, ok := interactionBump[kind]
	return ok
}

// RecordInteraction bumps strength by interaction weight and tracks recency.
func (c *Connection) RecordInteraction(kind string, at time.Time) {
	c.InteractionCount++
	if c.LastInteractionAt == nil || at.After(*c.LastInteractionAt) {
		t := at.UTC()
		c.LastInteractionAt = &t
	}
	c.Strength = ClampScore(c.Strength + interactionBump[kind])
	c.UpdatedAt = time.Now().UTC()
}

// StrengthLabel buckets the numeric strength.
func (c Connection) StrengthLabel() string {
	switch {
	case c.Strength >= 70:
		return StrengthStrong
	case c.Strength >= 40:
		return StrengthMedium
	default:
		return StrengthWeak
	}
}

// ClampScore bounds v to [0,100].
func ClampScore(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
