// Package workflow sequences every state-changing operation on a tender request:
// the entity write lands first, its audit events follow.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tenderflow/internal/apperr"
	"tenderflow/internal/eventlog"
	"tenderflow/models"

	"go.uber.org/zap"
)

type RequestStore interface {
	Create(ctx context.Context, in models.TenderRequestInput) (*models.TenderRequest, error)
	Get(ctx context.Context, id string) (*models.TenderRequest, error)
	Save(ctx context.Context, t *models.TenderRequest) error
	CheckUser(ctx context.Context, field, id string) error
	Now() time.Time
}

type Recorder interface {
	Append(ctx context.Context, e *models.TenderEvent) error
}

type Config struct {
	// MaxAttempts bounds the read-compute-write cycles of one decision.
	MaxAttempts int
	// AppendAttempts bounds the retries of one idempotent event append.
	AppendAttempts int
}

type Engine struct {
	store  RequestStore
	events Recorder
	cfg    Config
	logger *zap.Logger
}

func NewEngine(store RequestStore, events Recorder, cfg Config, logger *zap.Logger) *Engine {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 3
	}
	if cfg.AppendAttempts < 1 {
		cfg.AppendAttempts = 3
	}
	return &Engine{store: store, events: events, cfg: cfg, logger: logger}
}

// Create stores a new tender request and records its CREATED event.
func (e *Engine) Create(ctx context.Context, in models.TenderRequestInput) (*models.TenderRequest, error) {
	t, err := e.store.Create(ctx, in)
	if err != nil {
		return nil, err
	}
	ev := models.TenderEvent{
		ID:              eventlog.EventID(t.ID, "created", models.EventCreated),
		TenderRequestID: t.ID,
		Type:            models.EventCreated,
		ActorUserID:     t.CreatedBy,
		At:              t.CreatedAt,
	}
	if err := e.record(ctx, &ev); err != nil {
		return nil, err
	}
	e.logger.Info("tender request created",
		zap.String("tender_request_id", t.ID),
		zap.String("department_id", t.DepartmentID),
		zap.String("code", t.Code))
	return t, nil
}

// Review applies an approve/reject decision and returns the refreshed request.
func (e *Engine) Review(ctx context.Context, id string, rv models.Review) (*models.TenderRequest, error) {
	if rv.Decision != models.DecisionApprove && rv.Decision != models.DecisionReject {
		return nil, apperr.Validation("invalid decision %q", rv.Decision)
	}
	if err := e.store.CheckUser(ctx, "actorUserId", rv.ActorUserID); err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 1; attempt <= e.cfg.MaxAttempts; attempt++ {
		cur, err := e.store.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		tr, err := Decide(*cur, rv, e.store.Now())
		if err != nil {
			return nil, err
		}

		next := tr.Next
		if err := e.store.Save(ctx, &next); err != nil {
			if errors.Is(err, apperr.ErrStaleVersion) {
				lastErr = err
				e.logger.Debug("review lost version race, retrying",
					zap.String("tender_request_id", id), zap.Int("attempt", attempt))
				continue
			}
			return nil, err
		}

		// The version the write produced identifies this transition.
		transitionID := fmt.Sprintf("v%d", next.Version)
		for i := range tr.Events {
			ev := tr.Events[i]
			ev.ID = eventlog.EventID(id, transitionID, ev.Type)
			if err := e.record(ctx, &ev); err != nil {
				return nil, err
			}
		}

		e.logger.Info("tender request reviewed",
			zap.String("tender_request_id", id),
			zap.String("decision", string(rv.Decision)),
			zap.String("actor_user_id", rv.ActorUserID),
			zap.Int("old_level", cur.CurrentLevel),
			zap.Int("new_level", next.CurrentLevel),
			zap.String("old_status", string(cur.Status)),
			zap.String("new_status", string(next.Status)))
		return &next, nil
	}
	return nil, lastErr
}

// record appends ev, retrying infrastructure failures. Event ids are deterministic,
// so a retry after an unacknowledged write cannot duplicate the record.
func (e *Engine) record(ctx context.Context, ev *models.TenderEvent) error {
	var err error
	for attempt := 1; attempt <= e.cfg.AppendAttempts; attempt++ {
		err = e.events.Append(ctx, ev)
		if err == nil || !errors.Is(err, apperr.ErrInfrastructure) {
			break
		}
		e.logger.Warn("event append failed",
			zap.String("event_id", ev.ID),
			zap.String("type", string(ev.Type)),
			zap.Int("attempt", attempt),
			zap.Error(err))
		if ctx.Err() != nil {
			break
		}
	}
	if err != nil {
		e.logger.Error("tender request state advanced without audit event",
			zap.String("tender_request_id", ev.TenderRequestID),
			zap.String("event_id", ev.ID),
			zap.String("type", string(ev.Type)),
			zap.Error(err))
		return fmt.Errorf("record %s event: %w", ev.Type, err)
	}
	return nil
}
