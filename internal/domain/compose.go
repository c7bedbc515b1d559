package domain

import (
	"fmt"
	"strings"
	"time"
)

const timeLayout = "2006-01-02 15:04"

// ComposeInput carries everything the composer needs. Fetch failures are
// passed in rather than handled upstream: a nil ForecastErr/IncidentsErr
// means the matching data is trustworthy, a non-nil one degrades that
// section to an explicit unavailability marker.
type ComposeInput struct {
	GeneratedAt time.Time
	District    string
	Road        string

	Forecast    []ForecastPoint
	ForecastErr error

	Groups       map[string][]Incident
	IncidentsErr error

	Keywords      []string // section order follows this slice
	RainThreshold int      // percent; 0 lists every hour instead
	MaxPerSegment int      // 0 means unlimited
}

// Compose renders the context block handed to the conversation gateway.
// Output is deterministic for identical input: section order follows
// in.Keywords, incident order within a section follows in.Groups. Compose
// never fails; missing upstream data is rendered, not propagated.
func Compose(in ComposeInput) ContextBlock {
	var b strings.Builder

	fmt.Fprintf(&b, "Corridor conditions for %s, generated %s\n",
		in.Road, in.GeneratedAt.Format(timeLayout))

	b.WriteString("\n")
	composeForecast(&b, in)
	b.WriteString("\n")
	composeIncidents(&b, in)

	return ContextBlock{
		Text:               b.String(),
		GeneratedAt:        in.GeneratedAt,
		ForecastAvailable:  in.ForecastErr == nil,
		IncidentsAvailable: in.IncidentsErr == nil,
	}
}

func composeForecast(b *strings.Builder, in ComposeInput) {
	if in.ForecastErr != nil {
		fmt.Fprintf(b, "## Rainfall probability, %s\n", in.District)
		b.WriteString("Weather data unavailable.\n")
		return
	}

	fmt.Fprintf(b, "## Rainfall probability, %s, next %d hours\n", in.District, len(in.Forecast))

	if in.RainThreshold <= 0 {
		for _, p := range in.Forecast {
			fmt.Fprintf(b, "- %s: %s\n", p.Label, formatProbability(p.Probability))
		}
		return
	}

	wet := 0
	for _, p := range in.Forecast {
		if p.Probability != nil && *p.Probability >= in.RainThreshold {
			fmt.Fprintf(b, "- %s: %d%%\n", p.Label, *p.Probability)
			wet++
		}
	}
	if wet == 0 {
		fmt.Fprintf(b, "No hour reaches %d%% rain probability; no significant rain expected.\n", in.RainThreshold)
	}
}

func composeIncidents(b *strings.Builder, in ComposeInput) {
	fmt.Fprintf(b, "## Incidents on %s, by segment\n", in.Road)

	if in.IncidentsErr != nil {
		b.WriteString("Incident data unavailable.\n")
		return
	}

	for _, kw := range in.Keywords {
		fmt.Fprintf(b, "### %s\n", kw)

		group := in.Groups[kw]
		if in.MaxPerSegment > 0 && len(group) > in.MaxPerSegment {
			group = group[:in.MaxPerSegment]
		}
		if len(group) == 0 {
			b.WriteString("No current incidents.\n")
			continue
		}
		for _, inc := range group {
			writeIncidentLine(b, inc)
		}
	}
}

func writeIncidentLine(b *strings.Builder, inc Incident) {
	fmt.Fprintf(b, "- [%s] %s", formatTime(inc.EffectiveAt), inc.Title)
	if inc.Description != "" && inc.Description != inc.Title {
		fmt.Fprintf(b, ": %s", inc.Description)
	}

	var details []string
	if inc.Direction != "" {
		details = append(details, inc.Direction)
	}
	if inc.SectionStart != "" || inc.SectionEnd != "" {
		details = append(details, inc.SectionStart+"-"+inc.SectionEnd)
	}
	if inc.Impact.Severity != "" {
		details = append(details, "severity "+inc.Impact.Severity)
	}
	if inc.Impact.BlockedLanes != "" {
		details = append(details, "blocked lanes "+inc.Impact.BlockedLanes)
	}
	if len(details) > 0 {
		fmt.Fprintf(b, " (%s)", strings.Join(details, "; "))
	}
	b.WriteString("\n")
}

func formatProbability(p *int) string {
	if p == nil {
		return "n/a"
	}
	return fmt.Sprintf("%d%%", *p)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "time unknown"
	}
	return t.Format(timeLayout)
}
