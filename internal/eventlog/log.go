// Package eventlog records the immutable audit trail of tender requests.
package eventlog

import (
	"context"
	"strings"

	"tenderflow/internal/apperr"
	"tenderflow/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// namespace seeds deterministic event ids.
var namespace = uuid.MustParse("5b0f8a7e-3f2d-4c0b-9a57-0d6a3c1e9b42")

type Repository interface {
	InsertEvent(ctx context.Context, e *models.TenderEvent) (bool, error)
	ListEventsByRequest(ctx context.Context, tenderRequestID string) ([]models.TenderEvent, error)
}

type Log struct {
	repo   Repository
	logger *zap.Logger
}

func New(repo Repository, logger *zap.Logger) *Log {
	return &Log{repo: repo, logger: logger}
}

// EventID derives the id of the event of type typ produced by one attempt of a
// transition on a tender request. Re-appending with the same id is a no-op.
func EventID(tenderRequestID, attempt string, typ models.EventType) string {
	name := strings.Join([]string{tenderRequestID, attempt, string(typ)}, "|")
	return uuid.NewSHA1(namespace, []byte(name)).String()
}

// Append writes one event. Only required fields are checked; storage failures are
// returned to the caller unretried.
func (l *Log) Append(ctx context.Context, e *models.TenderEvent) error {
	switch {
	case e.TenderRequestID == "":
		return apperr.Validation("event tenderRequestId is required")
	case !models.ValidEventType(e.Type):
		return apperr.Validation("invalid event type %q", e.Type)
	case e.ActorUserID == "":
		return apperr.Validation("event actorUserId is required")
	case e.At.IsZero():
		return apperr.Validation("event at is required")
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}

	created, err := l.repo.InsertEvent(ctx, e)
	if err != nil {
		return apperr.Infrastructure("append event", err)
	}
	if !created {
		l.logger.Debug("event already recorded",
			zap.String("event_id", e.ID),
			zap.String("tender_request_id", e.TenderRequestID),
			zap.String("type", string(e.Type)))
	}
	return nil
}

// ListByRequest returns the events of a tender request, most recent first.
func (l *Log) ListByRequest(ctx context.Context, tenderRequestID string) ([]models.TenderEvent, error) {
	if _, err := uuid.Parse(tenderRequestID); err != nil {
		return nil, apperr.Validation("invalid tenderRequestId %q", tenderRequestID)
	}
	events, err := l.repo.ListEventsByRequest(ctx, tenderRequestID)
	if err != nil {
		return nil, apperr.Infrastructure("list events", err)
	}
	return events, nil
}
