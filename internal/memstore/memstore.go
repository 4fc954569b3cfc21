// Package memstore keeps tender requests, events and files in process memory. It
// mirrors the constraints of the PostgreSQL schema and backs DB_ENABLED=false runs
// and service tests.
package memstore

import (
	"context"
	"sort"
	"sync"

	"tenderflow/internal/apperr"
	"tenderflow/models"
)

type storedEvent struct {
	seq int64
	ev  models.TenderEvent
}

type Store struct {
	mu          sync.RWMutex
	departments map[string]string
	users       map[string]string
	requests    map[string]models.TenderRequest
	events      map[string]storedEvent
	files       map[string]models.RequestFile
	seq         int64

	// eventFailures makes the next n InsertEvent calls fail with eventErr.
	eventFailures int
	eventErr      error
}

func New() *Store {
	return &Store{
		departments: make(map[string]string),
		users:       make(map[string]string),
		requests:    make(map[string]models.TenderRequest),
		events:      make(map[string]storedEvent),
		files:       make(map[string]models.RequestFile),
	}
}

func (s *Store) AddDepartment(id, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.departments[id] = name
}

func (s *Store) AddUser(id, username string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[id] = username
}

// FailEventInserts makes the next n event inserts return err.
func (s *Store) FailEventInserts(n int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.eventFailures = n
	s.eventErr = err
}

func (s *Store) PingContext(ctx context.Context) error {
	return ctx.Err()
}

func (s *Store) DepartmentExists(ctx context.Context, id string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.departments[id]
	return ok, nil
}

func (s *Store) UserExists(ctx context.Context, id string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.users[id]
	return ok, nil
}

func (s *Store) CreateTenderRequest(ctx context.Context, t *models.TenderRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.requests[t.ID]; ok {
		return apperr.Conflict("tender request already exists")
	}
	if err := s.checkRow(t); err != nil {
		return err
	}
	row := *t
	row.DepartmentName = nil
	s.requests[t.ID] = row
	return nil
}

func (s *Store) GetTenderRequest(ctx context.Context, id string) (*models.TenderRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row, ok := s.requests[id]
	if !ok {
		return nil, apperr.NotFound("tender request")
	}
	out := s.withDepartment(row)
	return &out, nil
}

func (s *Store) ListTenderRequests(ctx context.Context, f models.TenderRequestFilter) ([]models.TenderRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.TenderRequest{}
	for _, row := range s.requests {
		if f.DepartmentID != "" && row.DepartmentID != f.DepartmentID {
			continue
		}
		if f.Status != "" && row.Status != f.Status {
			continue
		}
		if f.Category != "" && row.Category != f.Category {
			continue
		}
		out = append(out, s.withDepartment(row))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (s *Store) UpdateTenderRequest(ctx context.Context, t *models.TenderRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.requests[t.ID]
	if !ok {
		return apperr.NotFound("tender request")
	}
	if row.Version != t.Version {
		return apperr.ErrStaleVersion
	}
	if err := s.checkRow(t); err != nil {
		return err
	}
	row.DepartmentID = t.DepartmentID
	row.Code = t.Code
	row.Category = t.Category
	row.Status = t.Status
	row.RequiredLevels = t.RequiredLevels
	row.CurrentLevel = t.CurrentLevel
	row.ModifiedAt = t.ModifiedAt
	row.Version++
	s.requests[t.ID] = row
	t.Version = row.Version
	return nil
}

func (s *Store) DeleteTenderRequest(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.requests[id]; !ok {
		return apperr.NotFound("tender request")
	}
	delete(s.requests, id)
	return nil
}

func (s *Store) InsertEvent(ctx context.Context, e *models.TenderEvent) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.eventFailures > 0 {
		s.eventFailures--
		return false, s.eventErr
	}
	if _, ok := s.events[e.ID]; ok {
		return false, nil
	}
	s.seq++
	s.events[e.ID] = storedEvent{seq: s.seq, ev: copyEvent(*e)}
	return true, nil
}

func (s *Store) ListEventsByRequest(ctx context.Context, tenderRequestID string) ([]models.TenderEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var rows []storedEvent
	for _, se := range s.events {
		if se.ev.TenderRequestID == tenderRequestID {
			rows = append(rows, se)
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].ev.At.Equal(rows[j].ev.At) {
			return rows[i].ev.At.After(rows[j].ev.At)
		}
		return rows[i].seq > rows[j].seq
	})
	out := make([]models.TenderEvent, 0, len(rows))
	for _, se := range rows {
		out = append(out, copyEvent(se.ev))
	}
	return out, nil
}

func (s *Store) CreateRequestFile(ctx context.Context, f *models.RequestFile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.files[f.ID]; ok {
		return apperr.Conflict("request file already exists")
	}
	s.files[f.ID] = *f
	return nil
}

func (s *Store) GetRequestFile(ctx context.Context, id string) (*models.RequestFile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.files[id]
	if !ok {
		return nil, apperr.NotFound("request file")
	}
	return &f, nil
}

func (s *Store) ListRequestFiles(ctx context.Context, tenderRequestID string) ([]models.RequestFile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.RequestFile{}
	for _, f := range s.files {
		if f.TenderRequestID == tenderRequestID {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *Store) DeleteRequestFile(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.files[id]; !ok {
		return apperr.NotFound("request file")
	}
	delete(s.files, id)
	return nil
}

// checkRow mirrors the table constraints. Callers hold s.mu.
func (s *Store) checkRow(t *models.TenderRequest) error {
	if t.CurrentLevel < 0 || t.CurrentLevel > t.RequiredLevels {
		return apperr.Invariant("tender_requests_level_within_required")
	}
	for id, row := range s.requests {
		if id != t.ID && row.DepartmentID == t.DepartmentID && row.Code == t.Code {
			return apperr.Conflict("tender request already exists")
		}
	}
	return nil
}

func (s *Store) withDepartment(row models.TenderRequest) models.TenderRequest {
	if name, ok := s.departments[row.DepartmentID]; ok {
		row.DepartmentName = &name
	}
	return row
}

func copyEvent(e models.TenderEvent) models.TenderEvent {
	if e.Metadata != nil {
		m := make(models.Metadata, len(e.Metadata))
		for k, v := range e.Metadata {
			m[k] = v
		}
		e.Metadata = m
	}
	return e
}
