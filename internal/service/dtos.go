package service

import (
	"fmt"
	"time"

	"github.com/godilite/catsurvey/internal/repository/models"
)

// CategoryReport summarizes one category of a sampling run.
type CategoryReport struct {
	CategoryID   int64      `json:"category_id"`
	CategoryName string     `json:"category_name"`
	Skipped      bool       `json:"skipped,omitempty"`
	Considered   int        `json:"considered"`
	Created      int        `json:"created"`
	Failed       int        `json:"failed"`
	Watermark    *time.Time `json:"watermark,omitempty"`
	Error        string     `json:"error,omitempty"`
}

type RunReport struct {
	RunID      string           `json:"run_id"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
	Created    int              `json:"created"`
	Categories []CategoryReport `json:"categories"`
	Error      string           `json:"error,omitempty"`

	// TaskLogError is set when the run finished but its task log could not be saved.
	TaskLogError string `json:"task_log_error,omitempty"`
}

// Failure describes one surfaced error. TicketID is zero when no ticket is involved.
type Failure struct {
	Kind       error
	CategoryID int64
	TicketID   int64
	Err        error
}

func (f Failure) Error() string {
	if f.TicketID != 0 {
		return fmt.Sprintf("%v: category %d: ticket %d: %v", f.Kind, f.CategoryID, f.TicketID, f.Err)
	}
	if f.CategoryID != 0 {
		return fmt.Sprintf("%v: category %d: %v", f.Kind, f.CategoryID, f.Err)
	}
	return fmt.Sprintf("%v: %v", f.Kind, f.Err)
}

func (f Failure) Unwrap() []error {
	return []error{f.Kind, f.Err}
}

// ConfigUpdate carries a partial edit of a category configuration. Nil fields are left unchanged.
type ConfigUpdate struct {
	CategoryID     int64
	SurveyType     *models.SurveyType
	SampleRate     *int
	DelayDays      *int
	Watermark      *time.Time
	ClearWatermark bool
}
