package domain

import "errors"

// Error taxonomy for the context pipeline. Fetch errors wrap one of the feed
// sentinels so the composer can degrade the matching section; gateway errors
// surface to the HTTP layer unrecovered.
var (
	// ErrFeedUnavailable marks a network, timeout or HTTP-status failure
	// while retrieving a feed.
	ErrFeedUnavailable = errors.New("feed unavailable")

	// ErrFeedParse marks a retrieved feed whose structure did not match
	// expectations (missing district, malformed document).
	ErrFeedParse = errors.New("feed parse failed")

	// ErrGateway marks a conversation-gateway (model service) failure.
	ErrGateway = errors.New("gateway failure")

	// ErrNoSession is returned for a chat turn on a conversation that was
	// never initialized.
	ErrNoSession = errors.New("conversation not initialized")
)
