// Package projection shapes tender requests, events and files for callers:
// canonical timestamps, no internal fields, and the list filters of the API.
package projection

import (
	"net/url"
	"strconv"
	"time"

	"tenderflow/internal/apperr"
	"tenderflow/models"
)

// TimeLayout is the canonical textual form of every timestamp.
const TimeLayout = time.RFC3339Nano

type TenderRequestView struct {
	ID             string          `json:"id"`
	DepartmentID   string          `json:"departmentId"`
	DepartmentName *string         `json:"departmentName,omitempty"`
	CreatedBy      string          `json:"createdBy"`
	Code           string          `json:"code"`
	Category       models.Category `json:"category"`
	Status         models.Status   `json:"status"`
	RequiredLevels int             `json:"requiredLevels"`
	CurrentLevel   int             `json:"currentLevel"`
	CreatedAt      string          `json:"createdAt"`
	ModifiedAt     string          `json:"modifiedAt"`
}

type EventView struct {
	ID              string           `json:"id"`
	TenderRequestID string           `json:"tenderRequestId"`
	Type            models.EventType `json:"type"`
	ActorUserID     string           `json:"actorUserId"`
	At              string           `json:"at"`
	Level           *int             `json:"level"`
	Comment         *string          `json:"comment"`
	Metadata        models.Metadata  `json:"metadata"`
}

type FileView struct {
	ID              string  `json:"id"`
	TenderRequestID string  `json:"tenderRequestId"`
	S3Key           string  `json:"s3Key"`
	Bucket          *string `json:"bucket"`
	FileName        *string `json:"fileName"`
	ContentType     *string `json:"contentType"`
	Size            *int64  `json:"size"`
	UploadedBy      *string `json:"uploadedBy"`
	CreatedAt       string  `json:"createdAt"`
}

func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

func TenderRequest(t *models.TenderRequest) TenderRequestView {
	return TenderRequestView{
		ID:             t.ID,
		DepartmentID:   t.DepartmentID,
		DepartmentName: t.DepartmentName,
		CreatedBy:      t.CreatedBy,
		Code:           t.Code,
		Category:       t.Category,
		Status:         t.Status,
		RequiredLevels: t.RequiredLevels,
		CurrentLevel:   t.CurrentLevel,
		CreatedAt:      FormatTime(t.CreatedAt),
		ModifiedAt:     FormatTime(t.ModifiedAt),
	}
}

func TenderRequests(list []models.TenderRequest) []TenderRequestView {
	out := make([]TenderRequestView, 0, len(list))
	for i := range list {
		out = append(out, TenderRequest(&list[i]))
	}
	return out
}

func Event(e *models.TenderEvent) EventView {
	return EventView{
		ID:              e.ID,
		TenderRequestID: e.TenderRequestID,
		Type:            e.Type,
		ActorUserID:     e.ActorUserID,
		At:              FormatTime(e.At),
		Level:           e.Level,
		Comment:         e.Comment,
		Metadata:        e.Metadata,
	}
}

func Events(list []models.TenderEvent) []EventView {
	out := make([]EventView, 0, len(list))
	for i := range list {
		out = append(out, Event(&list[i]))
	}
	return out
}

func File(f *models.RequestFile) FileView {
	return FileView{
		ID:              f.ID,
		TenderRequestID: f.TenderRequestID,
		S3Key:           f.S3Key,
		Bucket:          f.Bucket,
		FileName:        f.FileName,
		ContentType:     f.ContentType,
		Size:            f.Size,
		UploadedBy:      f.UploadedBy,
		CreatedAt:       FormatTime(f.CreatedAt),
	}
}

func Files(list []models.RequestFile) []FileView {
	out := make([]FileView, 0, len(list))
	for i := range list {
		out = append(out, File(&list[i]))
	}
	return out
}

// Limits caps list sizes: Default applies when no limit is asked for, Max bounds it.
type Limits struct {
	Default int
	Max     int
}

// ParseFilter reads departmentId, status, category and limit from a query string.
// Unknown enum values are rejected rather than silently dropped.
func ParseFilter(q url.Values, lim Limits) (models.TenderRequestFilter, error) {
	f := models.TenderRequestFilter{
		DepartmentID: q.Get("departmentId"),
		Status:       models.Status(q.Get("status")),
		Category:     models.Category(q.Get("category")),
		Limit:        lim.Default,
	}
	if f.Status != "" && !models.ValidStatus(f.Status) {
		return f, apperr.Validation("invalid status %q", f.Status)
	}
	if f.Category != "" && !models.ValidCategory(f.Category) {
		return f, apperr.Validation("invalid category %q", f.Category)
	}
	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			return f, apperr.Validation("invalid limit %q", s)
		}
		f.Limit = n
	}
	if lim.Max > 0 && f.Limit > lim.Max {
		f.Limit = lim.Max
	}
	return f, nil
}
