package handlers

import (
	"context"

	"tenderflow/models"
)

// RequestService - хранилище заявок, как его видит HTTP слой
type RequestService interface {
	Get(ctx context.Context, id string) (*models.TenderRequest, error)
	List(ctx context.Context, f models.TenderRequestFilter) ([]models.TenderRequest, error)
	Patch(ctx context.Context, id string, p models.TenderRequestPatch) (*models.TenderRequest, error)
	Delete(ctx context.Context, id string) error
}

// WorkflowService создает заявки и применяет решения согласования
type WorkflowService interface {
	Create(ctx context.Context, in models.TenderRequestInput) (*models.TenderRequest, error)
	Review(ctx context.Context, id string, rv models.Review) (*models.TenderRequest, error)
}

type EventService interface {
	ListByRequest(ctx context.Context, tenderRequestID string) ([]models.TenderEvent, error)
}

type FileService interface {
	Attach(ctx context.Context, tenderRequestID string, in models.RequestFileInput) (*models.RequestFile, error)
	List(ctx context.Context, tenderRequestID string) ([]models.RequestFile, error)
	Remove(ctx context.Context, fileID string) error
}

type Pinger interface {
	PingContext(ctx context.Context) error
}
