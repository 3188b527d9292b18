package models

import "time"

// TicketStatusClosed is the host status code of a closed ticket.
const TicketStatusClosed = 6

// SurveyType identifies how a satisfaction survey is delivered.
type SurveyType int

const (
	SurveyTypeInternal SurveyType = 1
)

func (t SurveyType) Valid() bool {
	return t == SurveyTypeInternal
}

func (t SurveyType) String() string {
	switch t {
	case SurveyTypeInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// CategoryConfig is the survey configuration row of one ITIL category.
type CategoryConfig struct {
	CategoryID   int64      `json:"category_id"`
	CategoryName string     `json:"category_name"`
	SurveyType   SurveyType `json:"survey_type"`
	SampleRate   int        `json:"sample_rate_percent"`
	DelayDays    int        `json:"delay_days"`
	// Watermark is the close time of the last ticket considered; nil means never run.
	Watermark *time.Time `json:"last_processed_close_time,omitempty"`
}

type ClosedTicket struct {
	TicketID   int64
	CategoryID int64
	CloseTime  time.Time
}

type SurveyRecord struct {
	TicketID     int64
	CategoryID   int64
	SurveyType   SurveyType
	CreationTime time.Time
}

// TicketQuery selects eligible tickets of one category, ordered by (close_time, id).
type TicketQuery struct {
	CategoryID int64
	Watermark  *time.Time
	// DueBy excludes tickets closed after it; zero disables the bound.
	DueBy time.Time
	// After resumes a paged read strictly after the given ticket.
	After *ClosedTicket
	Limit int
}

type TaskLogEntry struct {
	RunID     string
	Task      string
	Level     string
	Volume    int
	Content   string
	CreatedAt time.Time
}
