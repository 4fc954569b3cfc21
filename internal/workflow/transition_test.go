package workflow

import (
	"testing"
	"time"

	"tenderflow/internal/apperr"
	"tenderflow/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func request(status models.Status, required, current int) models.TenderRequest {
	return models.TenderRequest{
		ID:             "8c3c1d3e-1c53-4c5e-8f7d-3f0a4d2a9b11",
		CreatedBy:      "creator",
		Status:         status,
		RequiredLevels: required,
		CurrentLevel:   current,
		Version:        4,
	}
}

func TestDecide_Approve(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rv := models.Review{Decision: models.DecisionApprove, ActorUserID: "reviewer"}

	tests := []struct {
		name       string
		cur        models.TenderRequest
		wantStatus models.Status
		wantLevel  int
		wantEvents []models.EventType
	}{
		{
			name:       "first of two levels",
			cur:        request(models.StatusDraft, 2, 0),
			wantStatus: models.StatusInReview,
			wantLevel:  1,
			wantEvents: []models.EventType{models.EventReviewApproved, models.EventStatusChanged},
		},
		{
			name:       "last level opens",
			cur:        request(models.StatusInReview, 2, 1),
			wantStatus: models.StatusOpen,
			wantLevel:  2,
			wantEvents: []models.EventType{models.EventReviewApproved, models.EventStatusChanged},
		},
		{
			name:       "intermediate level keeps status",
			cur:        request(models.StatusInReview, 3, 1),
			wantStatus: models.StatusInReview,
			wantLevel:  2,
			wantEvents: []models.EventType{models.EventReviewApproved},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr, err := Decide(tt.cur, rv, at)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, tr.Next.Status)
			assert.Equal(t, tt.wantLevel, tr.Next.CurrentLevel)
			assert.Equal(t, at, tr.Next.ModifiedAt)
			assert.Equal(t, tt.cur.Version, tr.Next.Version)

			var types []models.EventType
			for _, ev := range tr.Events {
				types = append(types, ev.Type)
				assert.Equal(t, "reviewer", ev.ActorUserID)
				assert.Equal(t, at, ev.At)
			}
			assert.Equal(t, tt.wantEvents, types)
			require.NotNil(t, tr.Events[0].Level)
			assert.Equal(t, tt.wantLevel, *tr.Events[0].Level)
		})
	}
}

func TestDecide_ApprovePastRequiredLevel(t *testing.T) {
	_, err := Decide(request(models.StatusOpen, 2, 2),
		models.Review{Decision: models.DecisionApprove, ActorUserID: "reviewer"}, time.Now())
	require.ErrorIs(t, err, apperr.ErrInvariant)
}

func TestDecide_Reject(t *testing.T) {
	comment := "budget exceeded"
	tr, err := Decide(request(models.StatusOpen, 1, 0),
		models.Review{Decision: models.DecisionReject, ActorUserID: "reviewer", Comment: &comment}, time.Now())
	require.NoError(t, err)

	assert.Equal(t, models.StatusRejected, tr.Next.Status)
	assert.Equal(t, 0, tr.Next.CurrentLevel)
	require.Len(t, tr.Events, 2)

	rejected := tr.Events[0]
	assert.Equal(t, models.EventReviewRejected, rejected.Type)
	require.NotNil(t, rejected.Level)
	assert.Equal(t, 1, *rejected.Level)
	assert.Equal(t, &comment, rejected.Comment)

	changed := tr.Events[1]
	assert.Equal(t, models.EventStatusChanged, changed.Type)
	assert.Equal(t, models.Metadata{"oldStatus": "OPEN", "newStatus": "REJECTED"}, changed.Metadata)
}

func TestDecide_RejectAlreadyRejected(t *testing.T) {
	tr, err := Decide(request(models.StatusRejected, 2, 1),
		models.Review{Decision: models.DecisionReject, ActorUserID: "reviewer"}, time.Now())
	require.NoError(t, err)
	require.Len(t, tr.Events, 1)
	assert.Equal(t, models.EventReviewRejected, tr.Events[0].Type)
}

func TestDecide_InvalidDecision(t *testing.T) {
	_, err := Decide(request(models.StatusDraft, 1, 0), models.Review{Decision: "ESCALATE"}, time.Now())
	require.ErrorIs(t, err, apperr.ErrValidation)
}
