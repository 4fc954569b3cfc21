package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"tenderflow/internal/apperr"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// PostgreSQL error codes the storage layer translates.
const (
	pqUniqueViolation = "23505"
	pqCheckViolation  = "23514"
)

type Storage struct {
	db *sqlx.DB
}

func NewStorage(db *sqlx.DB) *Storage {
	return &Storage{db: db}
}

func (s *Storage) PingContext(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	return s.db.PingContext(ctx)
}

// translate maps driver errors onto the apperr kinds.
func translate(op, entity string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.NotFound(entity)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pqUniqueViolation:
			return apperr.Conflict(entity + " already exists")
		case pqCheckViolation:
			return apperr.Invariant(pqErr.Message)
		}
	}
	return apperr.Infrastructure(op, err)
}

func (s *Storage) DepartmentExists(ctx context.Context, id string) (bool, error) {
	var ok bool
	query := `SELECT EXISTS(SELECT 1 FROM departments WHERE id=$1)`
	if err := s.db.GetContext(ctx, &ok, query, id); err != nil {
		return false, translate("department exists", "department", err)
	}
	return ok, nil
}

func (s *Storage) UserExists(ctx context.Context, id string) (bool, error) {
	var ok bool
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE id=$1)`
	if err := s.db.GetContext(ctx, &ok, query, id); err != nil {
		return false, translate("user exists", "user", err)
	}
	return ok, nil
}
