package db

import (
	"context"

	"tenderflow/internal/apperr"
	"tenderflow/models"
)

// InsertEvent appends e. It returns created=false when an event with the same id
// was already recorded.
func (s *Storage) InsertEvent(ctx context.Context, e *models.TenderEvent) (bool, error) {
	query := `
        INSERT INTO tender_request_events
            (id, tender_request_id, type, actor_user_id, at, level, comment, metadata)
        VALUES
            ($1, $2, $3, $4, $5, $6, $7, $8)
        ON CONFLICT (id) DO NOTHING`
	res, err := s.db.ExecContext(ctx, query,
		e.ID, e.TenderRequestID, e.Type, e.ActorUserID, e.At, e.Level, e.Comment, e.Metadata)
	if err != nil {
		return false, translate("insert event", "event", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, apperr.Infrastructure("insert event", err)
	}
	return n == 1, nil
}

func (s *Storage) ListEventsByRequest(ctx context.Context, tenderRequestID string) ([]models.TenderEvent, error) {
	query := `
        SELECT id, tender_request_id, type, actor_user_id, at, level, comment, metadata
        FROM tender_request_events
        WHERE tender_request_id=$1
        ORDER BY at DESC, seq DESC`
	events := []models.TenderEvent{}
	if err := s.db.SelectContext(ctx, &events, query, tenderRequestID); err != nil {
		return nil, translate("list events", "event", err)
	}
	return events, nil
}
