package ai

import (
	"fmt"
	"strings"

	"github.com/mr1hm/go-disaster-v2v/internal/models"
)

const SystemPrompt = `You are a disaster-response assistant for drivers and fleet operators.
Be concise and practical. Prioritize life safety, then route and vehicle safety.`

// Enhancement is the structured reply to EnhanceMessagePrompt.
type Enhancement struct {
	EnhancedMessage string `json:"enhanced_message"`
	Insight         string `json:"insight"`
	Priority        string `json:"priority"`
}

// DisasterAnalysis is the structured reply to DisasterAnalysisPrompt.
type DisasterAnalysis struct {
	Summary         string   `json:"summary"`
	RiskLevel       string   `json:"risk_level"`
	Recommendations []string `json:"recommendations"`
}

// EmergencyPlan is the structured reply to EmergencyPlanPrompt.
type EmergencyPlan struct {
	Steps    []string `json:"steps"`
	Supplies []string `json:"supplies"`
	Contacts []string `json:"contacts"`
}

func ChatPrompt(message, details string) string {
	if strings.TrimSpace(details) == "" {
		return message
	}
	return fmt.Sprintf("Context:\n%s\n\nQuestion:\n%s", details, message)
}

func DisasterAnalysisPrompt(d models.Disaster) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Analyze this %s event and its risk to people and road travel nearby.\n\n", d.Type)
	fmt.Fprintf(&b, "Title: %s\n", d.Title)
	fmt.Fprintf(&b, "Severity: %s\n", d.Severity)
	fmt.Fprintf(&b, "Location: %.4f, %.4f", d.Latitude, d.Longitude)
	if d.Place != "" {
		fmt.Fprintf(&b, " (%s)", d.Place)
	}
	b.WriteString("\n")
	if d.Magnitude > 0 {
		fmt.Fprintf(&b, "Magnitude: %.1f\n", d.Magnitude)
	}
	if d.WindSpeed > 0 {
		fmt.Fprintf(&b, "Wind speed: %.1f m/s\n", d.WindSpeed)
	}
	if !d.Timestamp.IsZero() {
		fmt.Fprintf(&b, "Time: %s\n", d.Timestamp.UTC().Format("2006-01-02 15:04 MST"))
	}
	b.WriteString(`
Reply with only a JSON object:
{"summary": "...", "risk_level": "low|moderate|high|critical", "recommendations": ["..."]}`)
	return b.String()
}

func EmergencyPlanPrompt(location, household string, hazards []string) string {
	return fmt.Sprintf(`Write an emergency plan for a household.

Location: %s
Household: %s
Hazards: %s

Reply with only a JSON object:
{"steps": ["..."], "supplies": ["..."], "contacts": ["..."]}`,
		location, household, strings.Join(hazards, ", "))
}

func EnhanceMessagePrompt(body, details string) string {
	if strings.TrimSpace(details) == "" {
		details = "none"
	}
	return fmt.Sprintf(`Rewrite this vehicle-to-vehicle message so it is clear and actionable for other drivers.
Keep it under 200 characters. Add one short safety insight.

Message: %s
Context: %s

Reply with only a JSON object:
{"enhanced_message": "...", "insight": "...", "priority": "low|normal|high|critical"}`, body, details)
}
