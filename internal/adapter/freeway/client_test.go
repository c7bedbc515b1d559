package freeway

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsaiiuo/traffic-agent/internal/domain"
	"github.com/tsaiiuo/traffic-agent/internal/observability"
)

const sampleFeed = `<?xml version="1.0" encoding="UTF-8"?>
<News>
  <LiveEvents>
    <LiveEvent>
      <EventID>EV-1</EventID>
      <EventTitle>事故排除中</EventTitle>
      <Description>外側車道封閉</Description>
      <EffectiveTime>2026-08-30T09:10:00+08:00</EffectiveTime>
      <PublishTime>2026-08-30T09:05:00+08:00</PublishTime>
      <LastUpdateTime>2026-08-30T09:20:00+08:00</LastUpdateTime>
      <Source>1968</Source>
      <Location>
        <FreeExpressHighway>
          <Road>國道一號</Road>
          <Direction>南下</Direction>
          <SectionStart>仁德</SectionStart>
          <SectionEnd>路竹</SectionEnd>
        </FreeExpressHighway>
      </Location>
      <Impact>
        <Description>車多壅塞</Description>
        <Severity>2</Severity>
        <BlockedLanes>1</BlockedLanes>
      </Impact>
    </LiveEvent>
    <LiveEvent>
      <EventID>EV-2</EventID>
      <EventTitle>施工</EventTitle>
      <EffectiveTime>2026-08-30T11:00:00+08:00</EffectiveTime>
      <Location>
        <FreeExpressHighway>
          <Road>國道一號</Road>
          <Direction>北上</Direction>
          <SectionStart>岡山</SectionStart>
          <SectionEnd>楠梓（北）</SectionEnd>
        </FreeExpressHighway>
      </Location>
    </LiveEvent>
    <LiveEvent>
      <EventID>EV-3</EventID>
      <EventTitle>其他國道事件</EventTitle>
      <EffectiveTime>2026-08-30T12:00:00+08:00</EffectiveTime>
      <Location>
        <FreeExpressHighway>
          <Road>國道三號</Road>
        </FreeExpressHighway>
      </Location>
    </LiveEvent>
    <LiveEvent>
      <EventID>EV-1</EventID>
      <EventTitle>事故排除中（重複）</EventTitle>
      <EffectiveTime>2026-08-30T09:10:00+08:00</EffectiveTime>
      <Location>
        <FreeExpressHighway>
          <Road>國道一號</Road>
        </FreeExpressHighway>
      </Location>
    </LiveEvent>
    <LiveEvent>
      <EventID></EventID>
      <EventTitle></EventTitle>
    </LiveEvent>
  </LiveEvents>
</News>`

func testClient(feedURL string) *Client {
	return NewClient(feedURL, "國道一號", 5*time.Second,
		observability.NewMetricsForTesting(),
		slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func feedServer(body string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		io.WriteString(w, body) //nolint:errcheck
	}))
}

func TestFetchIncidents_ParsesFilteredFeed(t *testing.T) {
	srv := feedServer(sampleFeed)
	defer srv.Close()

	incidents, err := testClient(srv.URL).FetchIncidents(context.Background())
	require.NoError(t, err)

	// EV-3 is another road, the duplicate EV-1 is dropped, the blank
	// entry is skipped: two incidents remain, newest first.
	require.Len(t, incidents, 2)
	assert.Equal(t, "EV-2", incidents[0].ID)
	assert.Equal(t, "EV-1", incidents[1].ID)

	first := incidents[1]
	assert.Equal(t, "事故排除中", first.Title)
	assert.Equal(t, "外側車道封閉", first.Description)
	assert.Equal(t, "國道一號", first.Road)
	assert.Equal(t, "南下", first.Direction)
	assert.Equal(t, "仁德", first.SectionStart)
	assert.Equal(t, "路竹", first.SectionEnd)
	assert.Equal(t, "車多壅塞", first.Impact.Description)
	assert.Equal(t, "2", first.Impact.Severity)
	assert.Equal(t, "1", first.Impact.BlockedLanes)
	assert.Equal(t, "1968", first.Source)

	loc := time.FixedZone("", 8*3600)
	assert.True(t, first.EffectiveAt.Equal(time.Date(2026, 8, 30, 9, 10, 0, 0, loc)))
	assert.True(t, first.PublishedAt.Equal(time.Date(2026, 8, 30, 9, 5, 0, 0, loc)))
	assert.True(t, first.UpdatedAt.Equal(time.Date(2026, 8, 30, 9, 20, 0, 0, loc)))
}

func TestFetchIncidents_UndatedEntriesSortLast(t *testing.T) {
	feed := `<News><LiveEvents>
		<LiveEvent><EventID>undated</EventID><EventTitle>t</EventTitle>
			<Location><FreeExpressHighway><Road>國道一號</Road></FreeExpressHighway></Location></LiveEvent>
		<LiveEvent><EventID>dated</EventID><EventTitle>t</EventTitle>
			<EffectiveTime>2026-08-30T08:00:00+08:00</EffectiveTime>
			<Location><FreeExpressHighway><Road>國道一號</Road></FreeExpressHighway></Location></LiveEvent>
	</LiveEvents></News>`
	srv := feedServer(feed)
	defer srv.Close()

	incidents, err := testClient(srv.URL).FetchIncidents(context.Background())
	require.NoError(t, err)
	require.Len(t, incidents, 2)
	assert.Equal(t, "dated", incidents[0].ID)
	assert.Equal(t, "undated", incidents[1].ID)
}

func TestFetchIncidents_LenientTimestampLayouts(t *testing.T) {
	feed := `<News><LiveEvents>
		<LiveEvent><EventID>a</EventID><EventTitle>t</EventTitle>
			<EffectiveTime>2026-08-30 08:00:00</EffectiveTime>
			<Location><FreeExpressHighway><Road>國道一號</Road></FreeExpressHighway></Location></LiveEvent>
		<LiveEvent><EventID>b</EventID><EventTitle>t</EventTitle>
			<EffectiveTime>not a time</EffectiveTime>
			<Location><FreeExpressHighway><Road>國道一號</Road></FreeExpressHighway></Location></LiveEvent>
	</LiveEvents></News>`
	srv := feedServer(feed)
	defer srv.Close()

	incidents, err := testClient(srv.URL).FetchIncidents(context.Background())
	require.NoError(t, err)
	require.Len(t, incidents, 2)
	assert.Equal(t, "a", incidents[0].ID)
	assert.False(t, incidents[0].EffectiveAt.IsZero())
	assert.True(t, incidents[1].EffectiveAt.IsZero())
}

func TestFetchIncidents_EmptyLiveEvents(t *testing.T) {
	srv := feedServer(`<News><LiveEvents></LiveEvents></News>`)
	defer srv.Close()

	incidents, err := testClient(srv.URL).FetchIncidents(context.Background())
	require.NoError(t, err)
	assert.Empty(t, incidents)
}

func TestFetchIncidents_BrokenDocumentIsParseError(t *testing.T) {
	srv := feedServer(`<News><LiveEvents><LiveEvent><EventID>`)
	defer srv.Close()

	_, err := testClient(srv.URL).FetchIncidents(context.Background())
	require.ErrorIs(t, err, domain.ErrFeedParse)
}

func TestFetchIncidents_ServerErrorIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).FetchIncidents(context.Background())
	require.ErrorIs(t, err, domain.ErrFeedUnavailable)
}

func TestParseFeedTime(t *testing.T) {
	assert.True(t, parseFeedTime("").IsZero())
	assert.True(t, parseFeedTime("garbage").IsZero())
	assert.False(t, parseFeedTime("2026/08/30 08:00:00").IsZero())
	assert.False(t, parseFeedTime(" 2026-08-30T08:00:00+08:00 ").IsZero())
}

func TestParse_SkipsEntryWithoutIDAndTitle(t *testing.T) {
	c := testClient("http://unused")
	incidents, err := c.parse(strings.NewReader(sampleFeed))
	require.NoError(t, err)
	for _, inc := range incidents {
		assert.True(t, inc.ID != "" || inc.Title != "")
	}
}
