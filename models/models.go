package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

type Category string

const (
	CategoryElectrical Category = "ELECTRICAL"
	CategoryWater      Category = "WATER"
	CategoryInternet   Category = "INTERNET"
)

func ValidCategory(c Category) bool {
	switch c {
	case CategoryElectrical, CategoryWater, CategoryInternet:
		return true
	default:
		return false
	}
}

type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusOpen      Status = "OPEN"
	StatusInReview  Status = "IN_REVIEW"
	StatusAwarded   Status = "AWARDED"
	StatusCancelled Status = "CANCELLED"
	StatusRejected  Status = "REJECTED"
)

func ValidStatus(s Status) bool {
	switch s {
	case StatusDraft, StatusOpen, StatusInReview, StatusAwarded, StatusCancelled, StatusRejected:
		return true
	default:
		return false
	}
}

type EventType string

const (
	EventCreated        EventType = "CREATED"
	EventFileAttached   EventType = "FILE_ATTACHED"
	EventFileRemoved    EventType = "FILE_REMOVED"
	EventReviewApproved EventType = "REVIEW_APPROVED"
	EventReviewRejected EventType = "REVIEW_REJECTED"
	EventStatusChanged  EventType = "STATUS_CHANGED"
)

func ValidEventType(t EventType) bool {
	switch t {
	case EventCreated, EventFileAttached, EventFileRemoved,
		EventReviewApproved, EventReviewRejected, EventStatusChanged:
		return true
	default:
		return false
	}
}

type Decision string

const (
	DecisionApprove Decision = "APPROVE"
	DecisionReject  Decision = "REJECT"
)

// SystemActor is recorded when no user can be attributed to an event.
const SystemActor = "system"

const (
	MaxCodeLength     = 40
	MinRequiredLevels = 1
	MaxRequiredLevels = 10
)

// TenderRequest is a procurement request moving through multi-level review.
// Version is the optimistic concurrency token and is never exposed to clients.
type TenderRequest struct {
	ID             string    `db:"id" json:"id"`
	DepartmentID   string    `db:"department_id" json:"departmentId"`
	CreatedBy      string    `db:"created_by" json:"createdBy"`
	Code           string    `db:"code" json:"code"`
	Category       Category  `db:"category" json:"category"`
	Status         Status    `db:"status" json:"status"`
	RequiredLevels int       `db:"required_levels" json:"requiredLevels"`
	CurrentLevel   int       `db:"current_level" json:"currentLevel"`
	Version        int       `db:"version" json:"-"`
	CreatedAt      time.Time `db:"created_at" json:"createdAt"`
	ModifiedAt     time.Time `db:"modified_at" json:"modifiedAt"`

	// Filled only by listings that join the departments table.
	DepartmentName *string `db:"department_name" json:"departmentName,omitempty"`
}

// TenderRequestInput is the payload for creating a tender request.
type TenderRequestInput struct {
	DepartmentID   string   `json:"departmentId"`
	CreatedBy      string   `json:"createdBy"`
	Code           string   `json:"code"`
	Category       Category `json:"category"`
	Status         Status   `json:"status"`
	RequiredLevels int      `json:"requiredLevels"`
	CurrentLevel   int      `json:"currentLevel"`
}

// TenderRequestPatch carries the fields of a partial update; nil means untouched.
type TenderRequestPatch struct {
	DepartmentID   *string   `json:"departmentId"`
	Code           *string   `json:"code"`
	Category       *Category `json:"category"`
	Status         *Status   `json:"status"`
	RequiredLevels *int      `json:"requiredLevels"`
	CurrentLevel   *int      `json:"currentLevel"`
}

func (p TenderRequestPatch) IsEmpty() bool {
	return p.DepartmentID == nil && p.Code == nil && p.Category == nil &&
		p.Status == nil && p.RequiredLevels == nil && p.CurrentLevel == nil
}

// ApplyTo merges the patch onto a copy of tr and reports whether anything changed.
func (p TenderRequestPatch) ApplyTo(tr TenderRequest) (TenderRequest, bool) {
	changed := false
	if p.DepartmentID != nil && *p.DepartmentID != tr.DepartmentID {
		tr.DepartmentID = *p.DepartmentID
		tr.DepartmentName = nil
		changed = true
	}
	if p.Code != nil && *p.Code != tr.Code {
		tr.Code = *p.Code
		changed = true
	}
	if p.Category != nil && *p.Category != tr.Category {
		tr.Category = *p.Category
		changed = true
	}
	if p.Status != nil && *p.Status != tr.Status {
		tr.Status = *p.Status
		changed = true
	}
	if p.RequiredLevels != nil && *p.RequiredLevels != tr.RequiredLevels {
		tr.RequiredLevels = *p.RequiredLevels
		changed = true
	}
	if p.CurrentLevel != nil && *p.CurrentLevel != tr.CurrentLevel {
		tr.CurrentLevel = *p.CurrentLevel
		changed = true
	}
	return tr, changed
}

// TenderRequestFilter is conjunctive; empty fields match everything.
type TenderRequestFilter struct {
	DepartmentID string
	Status       Status
	Category     Category
	Limit        int
}

// Review is an approve/reject decision on a tender request.
type Review struct {
	Decision    Decision `json:"decision"`
	ActorUserID string   `json:"actorUserId"`
	Comment     *string  `json:"comment,omitempty"`
}

// Metadata is the open key/value payload of an event, stored as JSONB.
type Metadata map[string]any

func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	// lib/pq sends []byte as bytea, jsonb needs text.
	return string(b), nil
}

func (m *Metadata) Scan(src any) error {
	if src == nil {
		*m = nil
		return nil
	}
	var b []byte
	switch v := src.(type) {
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return errors.New("metadata: unsupported source type")
	}
	return json.Unmarshal(b, m)
}

// TenderEvent is an immutable audit record.
type TenderEvent struct {
	ID              string    `db:"id" json:"id"`
	TenderRequestID string    `db:"tender_request_id" json:"tenderRequestId"`
	Type            EventType `db:"type" json:"type"`
	ActorUserID     string    `db:"actor_user_id" json:"actorUserId"`
	At              time.Time `db:"at" json:"at"`
	Level           *int      `db:"level" json:"level,omitempty"`
	Comment         *string   `db:"comment" json:"comment,omitempty"`
	Metadata        Metadata  `db:"metadata" json:"metadata,omitempty"`
}

// RequestFile is a reference to an externally stored document.
type RequestFile struct {
	ID              string    `db:"id" json:"id"`
	TenderRequestID string    `db:"tender_request_id" json:"tenderRequestId"`
	S3Key           string    `db:"s3_key" json:"s3Key"`
	Bucket          *string   `db:"bucket" json:"bucket,omitempty"`
	FileName        *string   `db:"file_name" json:"fileName,omitempty"`
	ContentType     *string   `db:"content_type" json:"contentType,omitempty"`
	Size            *int64    `db:"size" json:"size,omitempty"`
	UploadedBy      *string   `db:"uploaded_by" json:"uploadedBy,omitempty"`
	CreatedAt       time.Time `db:"created_at" json:"createdAt"`
}

// RequestFileInput describes a document to attach. URL is accepted when S3Key is empty.
type RequestFileInput struct {
	S3Key       string  `json:"s3Key"`
	URL         string  `json:"url,omitempty"`
	Bucket      *string `json:"bucket"`
	FileName    *string `json:"fileName"`
	ContentType *string `json:"contentType"`
	Size        *int64  `json:"size"`
	UploadedBy  *string `json:"uploadedBy"`
}

// Department and User are the external references checked on create/update.
type Department struct {
	ID   string `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

type User struct {
	ID       string `db:"id" json:"id"`
	Username string `db:"username" json:"username"`
}
