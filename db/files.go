package db

import (
	"context"

	"tenderflow/internal/apperr"
	"tenderflow/models"
)

func (s *Storage) CreateRequestFile(ctx context.Context, f *models.RequestFile) error {
	query := `
        INSERT INTO request_files
            (id, tender_request_id, s3_key, bucket, file_name, content_type, size, uploaded_by, created_at)
        VALUES
            ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := s.db.ExecContext(ctx, query,
		f.ID, f.TenderRequestID, f.S3Key, f.Bucket, f.FileName, f.ContentType, f.Size, f.UploadedBy, f.CreatedAt)
	return translate("create request file", "request file", err)
}

func (s *Storage) GetRequestFile(ctx context.Context, id string) (*models.RequestFile, error) {
	f := &models.RequestFile{}
	query := `
        SELECT id, tender_request_id, s3_key, bucket, file_name, content_type, size, uploaded_by, created_at
        FROM request_files
        WHERE id=$1`
	if err := s.db.GetContext(ctx, f, query, id); err != nil {
		return nil, translate("get request file", "request file", err)
	}
	return f, nil
}

func (s *Storage) ListRequestFiles(ctx context.Context, tenderRequestID string) ([]models.RequestFile, error) {
	query := `
        SELECT id, tender_request_id, s3_key, bucket, file_name, content_type, size, uploaded_by, created_at
        FROM request_files
        WHERE tender_request_id=$1
        ORDER BY created_at DESC, id DESC`
	files := []models.RequestFile{}
	if err := s.db.SelectContext(ctx, &files, query, tenderRequestID); err != nil {
		return nil, translate("list request files", "request file", err)
	}
	return files, nil
}

func (s *Storage) DeleteRequestFile(ctx context.Context, id string) error {
	query := `DELETE FROM request_files WHERE id=$1`
	res, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return translate("delete request file", "request file", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return apperr.Infrastructure("delete request file", err)
	}
	if n == 0 {
		return apperr.NotFound("request file")
	}
	return nil
}
