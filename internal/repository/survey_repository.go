package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/godilite/catsurvey/internal/repository/models"
)

type SurveyRepository struct {
	db *sql.DB
}

func NewSurveyRepository(db *sql.DB) *SurveyRepository {
	return &SurveyRepository{db: db}
}

// CreateSurvey inserts a satisfaction survey. It returns false without error when
// the ticket already has one.
func (r *SurveyRepository) CreateSurvey(ctx context.Context, rec models.SurveyRecord) (bool, error) {
	const query = `
		INSERT INTO ticket_satisfactions (ticket_id, itil_category_id, type, date_begin)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(ticket_id) DO NOTHING
	`

	res, err := r.db.ExecContext(ctx, query, rec.TicketID, rec.CategoryID, rec.SurveyType, formatTime(rec.CreationTime))
	if err != nil {
		return false, fmt.Errorf("exec CreateSurvey: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected CreateSurvey: %w", err)
	}
	return n == 1, nil
}

func (r *SurveyRepository) ListSurveys(ctx context.Context, categoryID int64) ([]models.SurveyRecord, error) {
	const query = `
		SELECT ticket_id, itil_category_id, type, date_begin
		FROM ticket_satisfactions
		WHERE itil_category_id = ?
		ORDER BY ticket_id
	`

	rows, err := r.db.QueryContext(ctx, query, categoryID)
	if err != nil {
		return nil, fmt.Errorf("query ListSurveys: %w", err)
	}
	defer rows.Close()

	var surveys []models.SurveyRecord
	for rows.Next() {
		var (
			rec   models.SurveyRecord
			begin string
		)
		if err := rows.Scan(&rec.TicketID, &rec.CategoryID, &rec.SurveyType, &begin); err != nil {
			return nil, fmt.Errorf("scan ListSurveys row: %w", err)
		}
		if rec.CreationTime, err = parseTime(begin); err != nil {
			return nil, fmt.Errorf("scan ListSurveys row: %w", err)
		}
		surveys = append(surveys, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ListSurveys: %w", err)
	}
	return surveys, nil
}
