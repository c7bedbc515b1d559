package domain

import "time"

// ForecastPoint is one hourly rainfall-probability sample for the configured
// district. Probability is nil when the bureau publishes no estimate for that
// hour; a present value is within [0,100].
type ForecastPoint struct {
	Hour        int    `json:"hour"`        // ordinal position, 0-23
	Label       string `json:"label"`       // feed's display label, e.g. "08/30 14:00"
	Probability *int   `json:"probability"` // percent, nil when absent
}

// Impact describes the traffic impact attached to an incident entry.
type Impact struct {
	Description  string `json:"description,omitempty"`
	Severity     string `json:"severity,omitempty"`
	BlockedLanes string `json:"blocked_lanes,omitempty"`
}

// Incident is one parsed entry from the highway incident feed. Incidents are
// built fresh on every fetch and never mutated after parsing.
type Incident struct {
	ID           string    `json:"event_id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Road         string    `json:"road"`
	Direction    string    `json:"direction,omitempty"`
	SectionStart string    `json:"section_start"`
	SectionEnd   string    `json:"section_end"`
	Impact       Impact    `json:"impact"`
	Source       string    `json:"source,omitempty"`
	EffectiveAt  time.Time `json:"effective_at"`
	PublishedAt  time.Time `json:"published_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// MatchText returns the text a segment keyword is matched against: the
// section names plus title and description, joined with newlines. The section
// names carry the agreed segment vocabulary; title and description catch
// entries that name a segment only in prose.
func (i Incident) MatchText() string {
	return i.SectionStart + "\n" + i.SectionEnd + "\n" + i.Title + "\n" + i.Description
}

// ContextBlock is the composed background text handed to the conversation
// gateway. It is a value: rebuilt on every initialization, never mutated.
type ContextBlock struct {
	Text               string    `json:"text"`
	GeneratedAt        time.Time `json:"generated_at"`
	ForecastAvailable  bool      `json:"forecast_available"`
	IncidentsAvailable bool      `json:"incidents_available"`
}
