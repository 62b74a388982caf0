package services

import (
	"context"
	"log"
	"time"

	"github.com/dcode-github/rental_marketplace/backend/models"
	"github.com/dcode-github/rental_marketplace/backend/repository"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ActivityLogger writes the activity feed, the admin audit trail and the
// daily counters. Every write is best-effort: failures are logged and never
// reach the caller, so a logging outage cannot undo a state change.
type ActivityLogger struct {
	repo repository.ActivityRepository
	now  func() time.Time
}

func NewActivityLogger(repo repository.ActivityRepository) *ActivityLogger {
	return &ActivityLogger{repo: repo, now: time.Now}
}

type AuditTarget struct {
	User     *primitive.ObjectID
	Property *primitive.ObjectID
	Details  map[string]interface{}
}

func (l *ActivityLogger) LogActivity(ctx context.Context, activityType string, actor primitive.ObjectID, metadata map[string]interface{}) {
	if metadata == nil {
		metadata = map[string]interface{}{}
	}
	activity := &models.Activity{
		Type:      activityType,
		User:      actor,
		Metadata:  metadata,
		CreatedAt: l.now(),
	}
	if info, ok := models.RequestInfoFromContext(ctx); ok {
		activity.IPAddress = info.IPAddress
		activity.UserAgent = info.UserAgent
		activity.RequestID = info.RequestID
	}

	if err := l.repo.InsertActivity(ctx, activity); err != nil {
		log.Printf("Failed to log activity %s for %s: %v", activityType, actor.Hex(), err)
	}
}

func (l *ActivityLogger) LogAction(ctx context.Context, admin primitive.ObjectID, action string, target AuditTarget) {
	details := target.Details
	if details == nil {
		details = map[string]interface{}{}
	}
	entry := &models.AuditLog{
		Admin:          admin,
		Action:         action,
		TargetUser:     target.User,
		TargetProperty: target.Property,
		Details:        details,
		CreatedAt:      l.now(),
	}
	if info, ok := models.RequestInfoFromContext(ctx); ok {
		entry.IPAddress = info.IPAddress
		entry.UserAgent = info.UserAgent
		entry.RequestID = info.RequestID
	}

	if err := l.repo.InsertAuditLog(ctx, entry); err != nil {
		log.Printf("Failed to write audit log %s by %s: %v", action, admin.Hex(), err)
	}
}

// IncrementMetric bumps today's counter. Days are UTC.
func (l *ActivityLogger) IncrementMetric(ctx context.Context, metric string) {
	day := l.now().UTC().Truncate(24 * time.Hour)
	if err := l.repo.IncrementMetric(ctx, day, metric); err != nil {
		log.Printf("Failed to increment metric %s: %v", metric, err)
	}
}
