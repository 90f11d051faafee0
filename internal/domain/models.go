package domain

// Priority values accepted for an action item.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// Status values for an action item. Status only changes as the result of a
// dispatch attempt against a tracker.
const (
	StatusPending = "pending"
	StatusCreated = "created"
	StatusFailed  = "failed"
)

// ActionItem is a candidate task extracted from a meeting transcript.
type ActionItem struct {
	Title        string `json:"title"`
	Description  string `json:"description,omitempty"`
	OwnerEmail   string `json:"ownerEmail,omitempty"`
	DueDate      string `json:"dueDate,omitempty"`
	Priority     string `json:"priority,omitempty"`
	Source       string `json:"source,omitempty"`
	TimestampSec int64  `json:"timestampSec,omitempty"`
	Status       string `json:"status"`
}

// TranscriptSegment is one recognized piece of speech within a session.
type TranscriptSegment struct {
	Text       string  `json:"text"`
	Timestamp  int64   `json:"timestamp"`
	IsPartial  bool    `json:"isPartial"`
	Confidence float64 `json:"confidence,omitempty"`
}

// SessionRecord is the persisted form of a finished session. It is written
// once on save and treated as immutable afterwards.
type SessionRecord struct {
	ID           string              `json:"id"`
	Title        string              `json:"title"`
	Summary      string              `json:"summary"`
	StartTime    int64               `json:"startTime"`
	EndTime      int64               `json:"endTime,omitempty"`
	Duration     int64               `json:"duration,omitempty"`
	Participants []string            `json:"participants,omitempty"`
	ActionItems  []ActionItem        `json:"actionItems"`
	Transcript   []TranscriptSegment `json:"transcript,omitempty"`
}

// DispatchResult is the outcome of sending one action item to one tracker.
// Results are produced one-to-one with the input batch, in input order.
type DispatchResult struct {
	Title      string `json:"title"`
	ID         string `json:"id,omitempty"`
	Identifier string `json:"identifier,omitempty"`
	RowID      string `json:"rowId,omitempty"`
	URL        string `json:"url,omitempty"`
	Success    bool   `json:"success"`
	Error      string `json:"error,omitempty"`
}
