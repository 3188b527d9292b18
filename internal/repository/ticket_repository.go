package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/godilite/catsurvey/internal/repository/models"
)

const defaultTicketPageSize = 500

type TicketRepository struct {
	db *sql.DB
}

func NewTicketRepository(db *sql.DB) *TicketRepository {
	return &TicketRepository{db: db}
}

// ListEligibleTickets returns one page of closed, non-deleted tickets of a category that
// have no satisfaction survey yet, ordered by close time then id.
func (r *TicketRepository) ListEligibleTickets(ctx context.Context, q models.TicketQuery) ([]models.ClosedTicket, error) {
	var sb strings.Builder
	sb.WriteString(`
		SELECT t.id, t.itil_category_id, t.close_time
		FROM tickets AS t
		LEFT JOIN ticket_satisfactions AS s ON s.ticket_id = t.id
		WHERE t.itil_category_id = ?
			AND t.is_deleted = 0
			AND t.status = ?
			AND t.close_time IS NOT NULL
			AND s.id IS NULL`)
	args := []any{q.CategoryID, models.TicketStatusClosed}

	if q.Watermark != nil {
		sb.WriteString(` AND t.close_time > ?`)
		args = append(args, formatTime(*q.Watermark))
	}
	if !q.DueBy.IsZero() {
		sb.WriteString(` AND t.close_time <= ?`)
		args = append(args, formatTime(q.DueBy))
	}
	if q.After != nil {
		after := formatTime(q.After.CloseTime)
		sb.WriteString(` AND (t.close_time > ? OR (t.close_time = ? AND t.id > ?))`)
		args = append(args, after, after, q.After.TicketID)
	}

	limit := q.Limit
	if limit <= 0 {
		limit = defaultTicketPageSize
	}
	sb.WriteString(` ORDER BY t.close_time ASC, t.id ASC LIMIT ?`)
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("query ListEligibleTickets: %w", err)
	}
	defer rows.Close()

	tickets := make([]models.ClosedTicket, 0, limit)
	for rows.Next() {
		var (
			t         models.ClosedTicket
			closeTime string
		)
		if err := rows.Scan(&t.TicketID, &t.CategoryID, &closeTime); err != nil {
			return nil, fmt.Errorf("scan ListEligibleTickets row: %w", err)
		}
		if t.CloseTime, err = parseTime(closeTime); err != nil {
			return nil, fmt.Errorf("scan ListEligibleTickets row: %w", err)
		}
		tickets = append(tickets, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ListEligibleTickets: %w", err)
	}
	return tickets, nil
}
