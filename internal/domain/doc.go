// Package domain models the two corridor data feeds and the context block
// composed from them.
//
// # Incident Feed
//
// Highway incidents come from the freeway bureau's News.xml document:
//
//	<News>
//	  <LiveEvents>
//	    <LiveEvent>
//	      <EventID>...</EventID>
//	      <EventTitle>...</EventTitle>
//	      <Description>...</Description>
//	      <EffectiveTime>2006-01-02T15:04:05+08:00</EffectiveTime>
//	      <Location><FreeExpressHighway>
//	        <Road>國道一號</Road>
//	        <Direction>南下</Direction>
//	        <SectionStart>仁德</SectionStart>
//	        <SectionEnd>路竹</SectionEnd>
//	      </FreeExpressHighway></Location>
//	      <Impact><Description/><Severity/><BlockedLanes/></Impact>
//	      ...
//	    </LiveEvent>
//	  </LiveEvents>
//	</News>
//
// Entries for other roads are dropped at fetch time. Entries sharing an
// EventID are deduplicated (the feed occasionally republishes updates under
// the same ID). The fetched sequence is ordered by EffectiveTime, newest
// first, with undated entries last.
//
// # Forecast Feed
//
// Rainfall probability comes from the weather bureau's town-forecast JSON
// document, keyed by district name. Each district carries up to 24 hourly
// probability-of-precipitation values in percent. The bureau omits the value
// for hours it has no estimate for; those points carry a nil probability
// rather than zero.
//
// # Name Normalization
//
// Section names and segment keywords are normalized before matching:
// whitespace (including ideographic space U+3000) is removed and bracket
// characters are stripped, both ASCII and CJK forms:
//
//	( ) [ ] { } （ ） 【 】 「 」 『 』 〈 〉 《 》
//
// so that "楠梓(北)" in configuration matches "楠梓（北）" in the feed.
//
// # Keyword Grouping
//
// An incident belongs to a segment group when the normalized keyword is a
// substring of the incident's normalized match text (title, description and
// both section names). Matching is exact-rune substring containment; no case
// folding is applied, since segment names are CJK. An incident matching
// several keywords is placed in every matching group. Every configured
// keyword appears in the result, empty when nothing matched, so callers can
// report "no current incidents" per segment.
package domain
