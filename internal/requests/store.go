// Package requests guards the tender request entity: field limits, references
// and the currentLevel <= requiredLevels invariant. It writes no audit events.
package requests

import (
	"context"
	"errors"
	"time"
	"unicode/utf8"

	"tenderflow/internal/apperr"
	"tenderflow/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const levelInvariant = "currentLevel cannot exceed requiredLevels"

type Repository interface {
	CreateTenderRequest(ctx context.Context, t *models.TenderRequest) error
	GetTenderRequest(ctx context.Context, id string) (*models.TenderRequest, error)
	ListTenderRequests(ctx context.Context, f models.TenderRequestFilter) ([]models.TenderRequest, error)
	UpdateTenderRequest(ctx context.Context, t *models.TenderRequest) error
	DeleteTenderRequest(ctx context.Context, id string) error
}

// References answers existence questions about entities owned elsewhere.
type References interface {
	DepartmentExists(ctx context.Context, id string) (bool, error)
	UserExists(ctx context.Context, id string) (bool, error)
}

type Options struct {
	// MaxAttempts bounds the read-merge-write retries of Patch.
	MaxAttempts int
	Now         func() time.Time
}

type Store struct {
	repo        Repository
	refs        References
	maxAttempts int
	now         func() time.Time
	logger      *zap.Logger
}

func NewStore(repo Repository, refs References, opts Options, logger *zap.Logger) *Store {
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 3
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	return &Store{
		repo:        repo,
		refs:        refs,
		maxAttempts: opts.MaxAttempts,
		now:         opts.Now,
		logger:      logger,
	}
}

// Now is the clock shared with the components composed around the store.
func (s *Store) Now() time.Time {
	return s.now()
}

func (s *Store) Create(ctx context.Context, in models.TenderRequestInput) (*models.TenderRequest, error) {
	if in.Status == "" {
		in.Status = models.StatusDraft
	}
	if err := validateInput(in); err != nil {
		return nil, err
	}
	if err := s.checkDepartment(ctx, in.DepartmentID); err != nil {
		return nil, err
	}
	if err := s.CheckUser(ctx, "createdBy", in.CreatedBy); err != nil {
		return nil, err
	}
	if in.CurrentLevel > in.RequiredLevels {
		return nil, apperr.Invariant(levelInvariant)
	}

	now := s.now()
	t := &models.TenderRequest{
		ID:             uuid.NewString(),
		DepartmentID:   in.DepartmentID,
		CreatedBy:      in.CreatedBy,
		Code:           in.Code,
		Category:       in.Category,
		Status:         in.Status,
		RequiredLevels: in.RequiredLevels,
		CurrentLevel:   in.CurrentLevel,
		Version:        1,
		CreatedAt:      now,
		ModifiedAt:     now,
	}
	if err := s.repo.CreateTenderRequest(ctx, t); err != nil {
		if errors.Is(err, apperr.ErrConflict) {
			return nil, apperr.Conflict("code already exists in department")
		}
		return nil, apperr.Infrastructure("create tender request", err)
	}
	return s.readBack(ctx, t), nil
}

func (s *Store) Get(ctx context.Context, id string) (*models.TenderRequest, error) {
	if err := validID("id", id); err != nil {
		return nil, err
	}
	t, err := s.repo.GetTenderRequest(ctx, id)
	if err != nil {
		return nil, apperr.Infrastructure("get tender request", err)
	}
	return t, nil
}

func (s *Store) List(ctx context.Context, f models.TenderRequestFilter) ([]models.TenderRequest, error) {
	if f.DepartmentID != "" {
		if err := validID("departmentId", f.DepartmentID); err != nil {
			return nil, err
		}
	}
	if f.Status != "" && !models.ValidStatus(f.Status) {
		return nil, apperr.Validation("invalid status %q", f.Status)
	}
	if f.Category != "" && !models.ValidCategory(f.Category) {
		return nil, apperr.Validation("invalid category %q", f.Category)
	}
	list, err := s.repo.ListTenderRequests(ctx, f)
	if err != nil {
		return nil, apperr.Infrastructure("list tender requests", err)
	}
	return list, nil
}

// Patch applies only the fields present in p. An empty or no-op patch returns the
// stored entity untouched.
func (s *Store) Patch(ctx context.Context, id string, p models.TenderRequestPatch) (*models.TenderRequest, error) {
	if err := validID("id", id); err != nil {
		return nil, err
	}
	if err := validatePatch(p); err != nil {
		return nil, err
	}
	if p.IsEmpty() {
		return s.Get(ctx, id)
	}
	if p.DepartmentID != nil {
		if err := s.checkDepartment(ctx, *p.DepartmentID); err != nil {
			return nil, err
		}
	}

	var lastErr error
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		cur, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		next, changed := p.ApplyTo(*cur)
		if !changed {
			return cur, nil
		}
		if next.CurrentLevel > next.RequiredLevels {
			return nil, apperr.Invariant(levelInvariant)
		}
		next.ModifiedAt = s.now()

		err = s.Save(ctx, &next)
		if err == nil {
			return s.readBack(ctx, &next), nil
		}
		if !errors.Is(err, apperr.ErrStaleVersion) {
			return nil, err
		}
		lastErr = err
		s.logger.Debug("patch lost version race, retrying",
			zap.String("tender_request_id", id), zap.Int("attempt", attempt))
	}
	return nil, lastErr
}

// Save performs the version-guarded write of t, which must carry the version it
// was read at. It re-checks the level invariant before touching storage.
func (s *Store) Save(ctx context.Context, t *models.TenderRequest) error {
	if t.CurrentLevel < 0 || t.CurrentLevel > t.RequiredLevels {
		return apperr.Invariant(levelInvariant)
	}
	if err := s.repo.UpdateTenderRequest(ctx, t); err != nil {
		if errors.Is(err, apperr.ErrConflict) && !errors.Is(err, apperr.ErrStaleVersion) {
			return apperr.Conflict("code already exists in department")
		}
		return apperr.Infrastructure("update tender request", err)
	}
	return nil
}

// readBack returns the stored row of t, which carries joined columns such as the
// department name. The written entity is returned if the read fails.
func (s *Store) readBack(ctx context.Context, t *models.TenderRequest) *models.TenderRequest {
	got, err := s.repo.GetTenderRequest(ctx, t.ID)
	if err != nil {
		s.logger.Warn("read back after write failed",
			zap.String("tender_request_id", t.ID), zap.Error(err))
		return t
	}
	return got
}

func (s *Store) Delete(ctx context.Context, id string) error {
	if err := validID("id", id); err != nil {
		return err
	}
	if err := s.repo.DeleteTenderRequest(ctx, id); err != nil {
		return apperr.Infrastructure("delete tender request", err)
	}
	return nil
}

// CheckUser fails with a validation error unless id names an existing user.
func (s *Store) CheckUser(ctx context.Context, field, id string) error {
	if err := validID(field, id); err != nil {
		return err
	}
	ok, err := s.refs.UserExists(ctx, id)
	if err != nil {
		return apperr.Infrastructure("check user", err)
	}
	if !ok {
		return apperr.Validation("invalid reference: %s", field)
	}
	return nil
}

func (s *Store) checkDepartment(ctx context.Context, id string) error {
	ok, err := s.refs.DepartmentExists(ctx, id)
	if err != nil {
		return apperr.Infrastructure("check department", err)
	}
	if !ok {
		return apperr.Validation("invalid reference: departmentId")
	}
	return nil
}

func validID(field, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return apperr.Validation("invalid %s %q", field, id)
	}
	return nil
}

func validCode(code string) error {
	if n := utf8.RuneCountInString(code); n < 1 || n > models.MaxCodeLength {
		return apperr.Validation("code is required and max length %d", models.MaxCodeLength)
	}
	return nil
}

func validRequiredLevels(n int) error {
	if n < models.MinRequiredLevels || n > models.MaxRequiredLevels {
		return apperr.Validation("requiredLevels must be between %d and %d",
			models.MinRequiredLevels, models.MaxRequiredLevels)
	}
	return nil
}

func validateInput(in models.TenderRequestInput) error {
	if err := validID("departmentId", in.DepartmentID); err != nil {
		return err
	}
	if err := validID("createdBy", in.CreatedBy); err != nil {
		return err
	}
	if err := validCode(in.Code); err != nil {
		return err
	}
	if !models.ValidCategory(in.Category) {
		return apperr.Validation("invalid category %q", in.Category)
	}
	if !models.ValidStatus(in.Status) {
		return apperr.Validation("invalid status %q", in.Status)
	}
	if err := validRequiredLevels(in.RequiredLevels); err != nil {
		return err
	}
	if in.CurrentLevel < 0 {
		return apperr.Validation("currentLevel must not be negative")
	}
	return nil
}

func validatePatch(p models.TenderRequestPatch) error {
	if p.DepartmentID != nil {
		if err := validID("departmentId", *p.DepartmentID); err != nil {
			return err
		}
	}
	if p.Code != nil {
		if err := validCode(*p.Code); err != nil {
			return err
		}
	}
	if p.Category != nil && !models.ValidCategory(*p.Category) {
		return apperr.Validation("invalid category %q", *p.Category)
	}
	if p.Status != nil && !models.ValidStatus(*p.Status) {
		return apperr.Validation("invalid status %q", *p.Status)
	}
	if p.RequiredLevels != nil {
		if err := validRequiredLevels(*p.RequiredLevels); err != nil {
			return err
		}
	}
	if p.CurrentLevel != nil && *p.CurrentLevel < 0 {
		return apperr.Validation("currentLevel must not be negative")
	}
	return nil
}
