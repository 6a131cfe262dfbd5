// ABOUTME: Terminal styles for command output
// ABOUTME: Colored badges for opportunity status, type and score
package cli

import (
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/harperreed/introengine/models"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39"))

	okStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("10"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("11")).
			Bold(true)

	errStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9"))

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)
)

var statusColors = map[models.Status]string{
	models.StatusSuggested:      "245",
	models.StatusNew:            "252",
	models.StatusContacted:      "39",
	models.StatusIntroRequested: "11",
	models.StatusMeetingBooked:  "170",
	models.StatusDemoScheduled:  "13",
	models.StatusWon:            "10",
	models.StatusLost:           "9",
}

var typeColors = map[models.OpportunityType]string{
	models.TypeDirect:      "10",
	models.TypeSecondLevel: "14",
	models.TypeInferred:    "13",
	models.TypeOutbound:    "208",
}

func statusBadge(s models.Status) string {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(statusColors[s])).Render(string(s))
}

func typeBadge(t models.OpportunityType) string {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(typeColors[t])).Render(string(t))
}

// scoreBadge colors a 0-100 score by band.
func scoreBadge(score int) string {
	switch {
	case score >= 70:
		return okStyle.Render(strconv.Itoa(score))
	case score >= 40:
		return warnStyle.Render(strconv.Itoa(score))
	default:
		return mutedStyle.Render(strconv.Itoa(score))
	}
}
