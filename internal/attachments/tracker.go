// Package attachments tracks the documents attached to tender requests. Attach and
// remove do not look at the request status.
package attachments

import (
	"context"
	"errors"
	"strings"
	"time"

	"tenderflow/internal/apperr"
	"tenderflow/internal/eventlog"
	"tenderflow/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Repository interface {
	CreateRequestFile(ctx context.Context, f *models.RequestFile) error
	GetRequestFile(ctx context.Context, id string) (*models.RequestFile, error)
	ListRequestFiles(ctx context.Context, tenderRequestID string) ([]models.RequestFile, error)
	DeleteRequestFile(ctx context.Context, id string) error
}

type RequestGetter interface {
	Get(ctx context.Context, id string) (*models.TenderRequest, error)
}

type Recorder interface {
	Append(ctx context.Context, e *models.TenderEvent) error
}

type Tracker struct {
	repo     Repository
	requests RequestGetter
	events   Recorder
	now      func() time.Time
	attempts int
	logger   *zap.Logger
}

// NewTracker builds a Tracker. appendAttempts bounds the retries of one FILE_* event append.
func NewTracker(repo Repository, requests RequestGetter, events Recorder, now func() time.Time, appendAttempts int, logger *zap.Logger) *Tracker {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	if appendAttempts < 1 {
		appendAttempts = 3
	}
	return &Tracker{repo: repo, requests: requests, events: events, now: now, attempts: appendAttempts, logger: logger}
}

func (t *Tracker) Attach(ctx context.Context, tenderRequestID string, in models.RequestFileInput) (*models.RequestFile, error) {
	if err := validateInput(&in); err != nil {
		return nil, err
	}
	req, err := t.requests.Get(ctx, tenderRequestID)
	if err != nil {
		return nil, err
	}

	f := &models.RequestFile{
		ID:              uuid.NewString(),
		TenderRequestID: req.ID,
		S3Key:           in.S3Key,
		Bucket:          in.Bucket,
		FileName:        in.FileName,
		ContentType:     in.ContentType,
		Size:            in.Size,
		UploadedBy:      in.UploadedBy,
		CreatedAt:       t.now(),
	}
	if err := t.repo.CreateRequestFile(ctx, f); err != nil {
		return nil, apperr.Infrastructure("create request file", err)
	}

	actor := req.CreatedBy
	if f.UploadedBy != nil {
		actor = *f.UploadedBy
	}
	if err := t.record(ctx, f, models.EventFileAttached, actor); err != nil {
		return nil, err
	}
	return f, nil
}

// List returns the files of a tender request, most recent first.
func (t *Tracker) List(ctx context.Context, tenderRequestID string) ([]models.RequestFile, error) {
	if _, err := uuid.Parse(tenderRequestID); err != nil {
		return nil, apperr.Validation("invalid tenderRequestId %q", tenderRequestID)
	}
	files, err := t.repo.ListRequestFiles(ctx, tenderRequestID)
	if err != nil {
		return nil, apperr.Infrastructure("list request files", err)
	}
	return files, nil
}

func (t *Tracker) Remove(ctx context.Context, fileID string) error {
	if _, err := uuid.Parse(fileID); err != nil {
		return apperr.Validation("invalid fileId %q", fileID)
	}
	f, err := t.repo.GetRequestFile(ctx, fileID)
	if err != nil {
		return apperr.Infrastructure("get request file", err)
	}
	actor, err := t.removalActor(ctx, f)
	if err != nil {
		return err
	}
	if err := t.repo.DeleteRequestFile(ctx, fileID); err != nil {
		return apperr.Infrastructure("delete request file", err)
	}
	return t.record(ctx, f, models.EventFileRemoved, actor)
}

// removalActor is the uploader, else the creator of the owning request, else the
// system actor when the request no longer exists.
func (t *Tracker) removalActor(ctx context.Context, f *models.RequestFile) (string, error) {
	if f.UploadedBy != nil && *f.UploadedBy != "" {
		return *f.UploadedBy, nil
	}
	req, err := t.requests.Get(ctx, f.TenderRequestID)
	switch {
	case err == nil:
		return req.CreatedBy, nil
	case errors.Is(err, apperr.ErrNotFound):
		return models.SystemActor, nil
	default:
		return "", err
	}
}

func (t *Tracker) record(ctx context.Context, f *models.RequestFile, typ models.EventType, actor string) error {
	meta := models.Metadata{"fileId": f.ID, "s3Key": f.S3Key}
	if f.FileName != nil {
		meta["fileName"] = *f.FileName
	}
	ev := &models.TenderEvent{
		ID:              eventlog.EventID(f.TenderRequestID, f.ID, typ),
		TenderRequestID: f.TenderRequestID,
		Type:            typ,
		ActorUserID:     actor,
		At:              t.now(),
		Metadata:        meta,
	}
	var err error
	for attempt := 1; attempt <= t.attempts; attempt++ {
		err = t.events.Append(ctx, ev)
		if err == nil || !errors.Is(err, apperr.ErrInfrastructure) || ctx.Err() != nil {
			break
		}
		t.logger.Warn("file event append failed",
			zap.String("event_id", ev.ID),
			zap.String("type", string(typ)),
			zap.Int("attempt", attempt),
			zap.Error(err))
	}
	if err != nil {
		t.logger.Error("file change recorded without audit event",
			zap.String("file_id", f.ID),
			zap.String("tender_request_id", f.TenderRequestID),
			zap.String("type", string(typ)),
			zap.Error(err))
		return err
	}
	return nil
}

func validateInput(in *models.RequestFileInput) error {
	in.S3Key = strings.TrimSpace(in.S3Key)
	if in.S3Key == "" {
		in.S3Key = strings.TrimSpace(in.URL)
	}
	if in.S3Key == "" {
		return apperr.Validation("s3Key is required")
	}
	if in.Size != nil && *in.Size < 0 {
		return apperr.Validation("size must not be negative")
	}
	if in.UploadedBy != nil {
		if *in.UploadedBy == "" {
			in.UploadedBy = nil
		} else if _, err := uuid.Parse(*in.UploadedBy); err != nil {
			return apperr.Validation("invalid uploadedBy %q", *in.UploadedBy)
		}
	}
	return nil
}
