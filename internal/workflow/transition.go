package workflow

import (
	"time"

	"tenderflow/internal/apperr"
	"tenderflow/models"
)

// Transition is the outcome of one review decision: the entity state to persist
// and the audit events to append once it is persisted.
type Transition struct {
	Next   models.TenderRequest
	Events []models.TenderEvent
}

// Decide computes the effect of rv on cur without touching storage.
//
// APPROVE advances currentLevel by one and moves the request to OPEN once the
// required level is reached, IN_REVIEW before that. Approving past the required
// level is refused. REJECT moves the request to REJECTED and leaves the level
// alone; its event records the level that was being attempted.
func Decide(cur models.TenderRequest, rv models.Review, at time.Time) (Transition, error) {
	next := cur
	next.ModifiedAt = at

	var review models.TenderEvent
	switch rv.Decision {
	case models.DecisionApprove:
		level := cur.CurrentLevel + 1
		if level > cur.RequiredLevels {
			return Transition{}, apperr.Invariant("currentLevel cannot exceed requiredLevels")
		}
		next.CurrentLevel = level
		if level == cur.RequiredLevels {
			next.Status = models.StatusOpen
		} else {
			next.Status = models.StatusInReview
		}
		review = reviewEvent(cur.ID, models.EventReviewApproved, rv, level, at)
	case models.DecisionReject:
		next.Status = models.StatusRejected
		review = reviewEvent(cur.ID, models.EventReviewRejected, rv, cur.CurrentLevel+1, at)
	default:
		return Transition{}, apperr.Validation("invalid decision %q", rv.Decision)
	}

	events := []models.TenderEvent{review}
	if next.Status != cur.Status {
		events = append(events, models.TenderEvent{
			TenderRequestID: cur.ID,
			Type:            models.EventStatusChanged,
			ActorUserID:     rv.ActorUserID,
			At:              at,
			Metadata: models.Metadata{
				"oldStatus": string(cur.Status),
				"newStatus": string(next.Status),
			},
		})
	}
	return Transition{Next: next, Events: events}, nil
}

func reviewEvent(id string, typ models.EventType, rv models.Review, level int, at time.Time) models.TenderEvent {
	return models.TenderEvent{
		TenderRequestID: id,
		Type:            typ,
		ActorUserID:     rv.ActorUserID,
		At:              at,
		Level:           &level,
		Comment:         rv.Comment,
	}
}
