package models

import "time"

// SuggestionMode discriminates how a suggestion was presented in the editor.
type SuggestionMode string

const (
	ModeCodeBlock     SuggestionMode = "CODE_BLOCK"
	ModeLineByLine    SuggestionMode = "LINE_BY_LINE"
	ModeCodeSelection SuggestionMode = "CODE_SELECTION"
)

// EventTag identifies one kind of interaction with an AI code suggestion.
type EventTag string

// Fixed event vocabulary. Selection mode has no reject tag.
const (
	EventCodeBlockAccept     EventTag = "CODE_BLOCK_ACCEPT"
	EventCodeBlockReject     EventTag = "CODE_BLOCK_REJECT"
	EventLineByLineAccept    EventTag = "LINE_BY_LINE_ACCEPT"
	EventLineByLineReject    EventTag = "LINE_BY_LINE_REJECT"
	EventCodeSelectionAccept EventTag = "CODE_SELECTION_ACCEPT"
)

// AcceptEvents and RejectEvents are the two disjoint semantic classes of
// event tags. Tags in neither set are excluded from every count.
var (
	AcceptEvents = map[EventTag]struct{}{
		EventCodeBlockAccept:     {},
		EventLineByLineAccept:    {},
		EventCodeSelectionAccept: {},
	}
	RejectEvents = map[EventTag]struct{}{
		EventCodeBlockReject:  {},
		EventLineByLineReject: {},
	}
)

// IsAccept reports whether the tag belongs to the ACCEPT class.
func (t EventTag) IsAccept() bool {
	_, ok := AcceptEvents[t]
	return ok
}

// IsReject reports whether the tag belongs to the REJECT class.
func (t EventTag) IsReject() bool {
	_, ok := RejectEvents[t]
	return ok
}

// Mode returns the suggestion mode the tag belongs to, or "" for unknown tags.
func (t EventTag) Mode() SuggestionMode {
	switch t {
	case EventCodeBlockAccept, EventCodeBlockReject:
		return ModeCodeBlock
	case EventLineByLineAccept, EventLineByLineReject:
		return ModeLineByLine
	case EventCodeSelectionAccept:
		return ModeCodeSelection
	}
	return ""
}

// ActivityLog is one recorded interaction with an AI code suggestion.
// Logs are immutable facts: written once at ingestion, never updated.
type ActivityLog struct {
	ID         string         `db:"id" json:"id"`
	UserID     string         `db:"user_id" json:"user_id"`
	Event      EventTag       `db:"event" json:"event"`
	Mode       SuggestionMode `db:"mode" json:"mode"`
	HasBug     *bool          `db:"has_bug" json:"has_bug,omitempty"`
	ClassID    *string        `db:"class_id" json:"class_id,omitempty"`
	DurationMS int            `db:"duration_ms" json:"duration_ms"`
	CreatedAt  time.Time      `db:"created_at" json:"created_at"`
}

// KnownBug reports whether the suggestion was known to contain a bug.
// An absent has_bug counts as "no known bug".
func (l ActivityLog) KnownBug() bool {
	return l.HasBug != nil && *l.HasBug
}

// ActivityLogFilter scopes activity log queries.
type ActivityLogFilter struct {
	UserID    string
	ClassID   string
	Mode      SuggestionMode
	From      *time.Time
	To        *time.Time
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
