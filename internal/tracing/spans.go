package tracing

// Attribute keys.
const (
	AttrSectionID    = "section.id"
	AttrSectionFile  = "section.data_file"
	AttrSectionState = "section.state"
	AttrSectionCount = "section.count"

	AttrHTTPMethod = "http.method"
	AttrHTTPRoute  = "http.route"
	AttrHTTPStatus = "http.status_code"
	AttrRequestID  = "http.request_id"

	AttrOriginAllowed = "relay.origin_allowed"
	AttrOAuthError    = "relay.oauth_error"

	AttrRepo   = "github.repo"
	AttrBranch = "github.branch"
)

// Span names.
const (
	SpanDiscover    = "site.discover"
	SpanLoadAll     = "sections.load"
	SpanSectionLoad = "section.load"
	SpanSectionSave = "section.save"
	SpanPrefixHTTP  = "http."
)

// Event names.
const (
	EventCandidateFailed = "candidate.failed"
	EventSectionSkipped  = "section.skipped"
	EventStaleResult     = "result.stale"
)
