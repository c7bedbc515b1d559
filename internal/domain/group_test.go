package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain name unchanged", "路竹", "路竹"},
		{"ascii brackets stripped", "楠梓(北)", "楠梓北"},
		{"fullwidth brackets stripped", "楠梓（北）", "楠梓北"},
		{"corner brackets stripped", "「仁德」系統", "仁德系統"},
		{"spaces removed", " 仁德 服務區 ", "仁德服務區"},
		{"ideographic space removed", "仁德　系統", "仁德系統"},
		{"empty input", "", ""},
		{"only brackets and spaces", "（ ）", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeName(tt.input))
		})
	}
}

func TestGroupBySegment_EveryKeywordPresent(t *testing.T) {
	groups := GroupBySegment(nil, []string{"仁德", "路竹"})

	require.Len(t, groups, 2)
	assert.NotNil(t, groups["仁德"])
	assert.NotNil(t, groups["路竹"])
	assert.Empty(t, groups["仁德"])
	assert.Empty(t, groups["路竹"])
}

func TestGroupBySegment_MatchesSectionNames(t *testing.T) {
	incidents := []Incident{
		{ID: "1", Title: "事故", SectionStart: "仁德", SectionEnd: "路竹"},
		{ID: "2", Title: "施工", SectionStart: "岡山", SectionEnd: "楠梓（北）"},
	}

	groups := GroupBySegment(incidents, []string{"仁德", "路竹", "楠梓(北)", "高科"})

	assert.Equal(t, []string{"1"}, ids(groups["仁德"]))
	assert.Equal(t, []string{"1"}, ids(groups["路竹"]))
	assert.Equal(t, []string{"2"}, ids(groups["楠梓(北)"]))
	assert.Empty(t, groups["高科"])
}

func TestGroupBySegment_MatchesTitleAndDescription(t *testing.T) {
	incidents := []Incident{
		{ID: "1", Title: "Segment A closure"},
		{ID: "2", Description: "lane reduced near Segment B"},
	}

	groups := GroupBySegment(incidents, []string{"Segment A", "Segment B"})

	require.Len(t, groups["Segment A"], 1)
	assert.Equal(t, "1", groups["Segment A"][0].ID)
	require.Len(t, groups["Segment B"], 1)
	assert.Equal(t, "2", groups["Segment B"][0].ID)
}

func TestGroupBySegment_MultiKeywordIncidentDuplicated(t *testing.T) {
	incidents := []Incident{
		{ID: "1", SectionStart: "仁德", SectionEnd: "岡山"},
	}

	groups := GroupBySegment(incidents, []string{"仁德", "岡山"})

	assert.Equal(t, []string{"1"}, ids(groups["仁德"]))
	assert.Equal(t, []string{"1"}, ids(groups["岡山"]))
}

func TestGroupBySegment_AppearsOncePerGroup(t *testing.T) {
	// Keyword present in several fields of the same incident must not
	// produce duplicates within one group.
	incidents := []Incident{
		{ID: "1", Title: "仁德路段事故", Description: "仁德系統回堵", SectionStart: "仁德"},
	}

	groups := GroupBySegment(incidents, []string{"仁德"})

	assert.Equal(t, []string{"1"}, ids(groups["仁德"]))
}

func TestGroupBySegment_PreservesSourceOrder(t *testing.T) {
	incidents := []Incident{
		{ID: "new", SectionStart: "路竹"},
		{ID: "mid", SectionEnd: "路竹"},
		{ID: "old", Description: "路竹段壅塞"},
	}

	groups := GroupBySegment(incidents, []string{"路竹"})

	assert.Equal(t, []string{"new", "mid", "old"}, ids(groups["路竹"]))
}

func TestGroupBySegment_NoCrossFieldMatch(t *testing.T) {
	// "高科" must not be assembled from the end of one field plus the
	// start of the next.
	incidents := []Incident{
		{ID: "1", SectionStart: "岡山高", SectionEnd: "科技站"},
	}

	groups := GroupBySegment(incidents, []string{"高科"})

	assert.Empty(t, groups["高科"])
}

func TestGroupBySegment_BlankKeywordMatchesNothing(t *testing.T) {
	incidents := []Incident{{ID: "1", Title: "anything"}}

	groups := GroupBySegment(incidents, []string{"（）"})

	require.Contains(t, groups, "（）")
	assert.Empty(t, groups["（）"])
}

func ids(incidents []Incident) []string {
	out := make([]string, 0, len(incidents))
	for _, inc := range incidents {
		out = append(out, inc.ID)
	}
	return out
}
