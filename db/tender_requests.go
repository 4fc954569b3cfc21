package db

import (
	"context"
	"fmt"
	"strings"

	"tenderflow/internal/apperr"
	"tenderflow/models"
)

func (s *Storage) CreateTenderRequest(ctx context.Context, t *models.TenderRequest) error {
	query := `
        INSERT INTO tender_requests
            (id, department_id, created_by, code, category, status,
             required_levels, current_level, version, created_at, modified_at)
        VALUES
            ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := s.db.ExecContext(ctx, query,
		t.ID, t.DepartmentID, t.CreatedBy, t.Code, t.Category, t.Status,
		t.RequiredLevels, t.CurrentLevel, t.Version, t.CreatedAt, t.ModifiedAt)
	return translate("create tender request", "tender request", err)
}

func (s *Storage) GetTenderRequest(ctx context.Context, id string) (*models.TenderRequest, error) {
	t := &models.TenderRequest{}
	query := `
        SELECT t.id, t.department_id, t.created_by, t.code, t.category, t.status,
               t.required_levels, t.current_level, t.version, t.created_at, t.modified_at,
               d.name AS department_name
        FROM tender_requests t
        LEFT JOIN departments d ON d.id = t.department_id
        WHERE t.id=$1`
	if err := s.db.GetContext(ctx, t, query, id); err != nil {
		return nil, translate("get tender request", "tender request", err)
	}
	return t, nil
}

func (s *Storage) ListTenderRequests(ctx context.Context, f models.TenderRequestFilter) ([]models.TenderRequest, error) {
	var (
		conds []string
		args  []interface{}
	)
	add := func(cond string, v interface{}) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.DepartmentID != "" {
		add("t.department_id = $%d", f.DepartmentID)
	}
	if f.Status != "" {
		add("t.status = $%d", f.Status)
	}
	if f.Category != "" {
		add("t.category = $%d", f.Category)
	}

	query := `
        SELECT t.id, t.department_id, t.created_by, t.code, t.category, t.status,
               t.required_levels, t.current_level, t.version, t.created_at, t.modified_at,
               d.name AS department_name
        FROM tender_requests t
        LEFT JOIN departments d ON d.id = t.department_id`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY t.created_at DESC, t.id DESC"
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", f.Limit)
	}

	tenders := []models.TenderRequest{}
	if err := s.db.SelectContext(ctx, &tenders, query, args...); err != nil {
		return nil, translate("list tender requests", "tender request", err)
	}
	return tenders, nil
}

// UpdateTenderRequest writes t only if the stored version still equals t.Version,
// then advances t.Version. A lost race yields apperr.ErrStaleVersion.
func (s *Storage) UpdateTenderRequest(ctx context.Context, t *models.TenderRequest) error {
	query := `
        UPDATE tender_requests
        SET department_id=$1, code=$2, category=$3, status=$4,
            required_levels=$5, current_level=$6, modified_at=$7, version=version+1
        WHERE id=$8 AND version=$9`
	res, err := s.db.ExecContext(ctx, query,
		t.DepartmentID, t.Code, t.Category, t.Status,
		t.RequiredLevels, t.CurrentLevel, t.ModifiedAt, t.ID, t.Version)
	if err != nil {
		return translate("update tender request", "tender request", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return apperr.Infrastructure("update tender request", err)
	}
	if n == 0 {
		exists, err := s.tenderRequestExists(ctx, t.ID)
		if err != nil {
			return err
		}
		if !exists {
			return apperr.NotFound("tender request")
		}
		return apperr.ErrStaleVersion
	}
	t.Version++
	return nil
}

func (s *Storage) DeleteTenderRequest(ctx context.Context, id string) error {
	query := `DELETE FROM tender_requests WHERE id=$1`
	res, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return translate("delete tender request", "tender request", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return apperr.Infrastructure("delete tender request", err)
	}
	if n == 0 {
		return apperr.NotFound("tender request")
	}
	return nil
}

func (s *Storage) tenderRequestExists(ctx context.Context, id string) (bool, error) {
	var ok bool
	query := `SELECT EXISTS(SELECT 1 FROM tender_requests WHERE id=$1)`
	if err := s.db.GetContext(ctx, &ok, query, id); err != nil {
		return false, translate("tender request exists", "tender request", err)
	}
	return ok, nil
}
