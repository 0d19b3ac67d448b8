package ingestion

import (
	"strings"

	"github.com/mr1hm/go-disaster-v2v/internal/models"
)

// OpenWeather condition ids.
const (
	weatherThunderstormMin = 200
	weatherThunderstormMax = 232
	weatherSquall          = 771
	weatherTornado         = 781
)

// Wind thresholds in m/s, Beaufort 6, 7 and 10.
const (
	windStrongBreeze = 10.8
	windNearGale     = 13.9
	windStorm        = 24.5
)

func EarthquakeSeverity(magnitude float64) models.Severity {
	switch {
	case magnitude >= 7.0:
		return models.SeverityCritical
	case magnitude >= 6.0:
		return models.SeverityHigh
	case magnitude >= 4.5:
		return models.SeverityModerate
	default:
		return models.SeverityLow
	}
}

// WeatherSeverity grades wind speed, then raises the result for
// thunderstorms and tornadoes. Moderate starts at the same wind speed that
// makes a reading notable.
func WeatherSeverity(windSpeed float64, conditionID int) models.Severity {
	var sev models.Severity
	switch {
	case windSpeed > windStorm:
		sev = models.SeverityCritical
	case windSpeed > windNearGale:
		sev = models.SeverityHigh
	case windSpeed >= windStrongBreeze:
		sev = models.SeverityModerate
	default:
		sev = models.SeverityLow
	}

	if conditionID == weatherTornado {
		return models.SeverityCritical
	}
	if isThunderstorm(conditionID) && sev < models.SeverityModerate {
		return models.SeverityModerate
	}
	return sev
}

func TsunamiSeverity(magnitude float64) models.Severity {
	switch {
	case magnitude >= 7.5:
		return models.SeverityCritical
	case magnitude >= 6.5:
		return models.SeverityHigh
	default:
		return models.SeverityModerate
	}
}

func AlertLevelSeverity(level string) models.Severity {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "red":
		return models.SeverityCritical
	case "orange":
		return models.SeverityHigh
	case "green":
		return models.SeverityModerate
	default:
		return models.SeverityLow
	}
}

func isThunderstorm(conditionID int) bool {
	return conditionID >= weatherThunderstormMin && conditionID <= weatherThunderstormMax
}

// isNotableWeather reports whether a weather reading is worth recording.
func isNotableWeather(windSpeed float64, conditionID int) bool {
	return windSpeed >= windStrongBreeze ||
		isThunderstorm(conditionID) ||
		conditionID == weatherTornado ||
		conditionID == weatherSquall
}
