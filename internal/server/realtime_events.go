package server

import (
	"context"
	"errors"
	"log"

	"classifieds/internal/models"
	"classifieds/internal/notifications"

	"gorm.io/gorm"
)

// publishAdminEvent delivers an event to every admin dashboard. With Redis
// the event goes through the channel so every instance's hub receives it
// once. This instance's hub is served directly when it is not subscribed
// to the channel or the publish fails.
func (s *Server) publishAdminEvent(ctx context.Context, eventType string, payload map[string]interface{}) {
	message, err := notifications.EncodeEvent(eventType, payload)
	if err != nil {
		log.Printf("failed to marshal %s event: %v", eventType, err)
		return
	}

	if s.notifier.Enabled() {
		err := s.notifier.PublishAdmin(context.WithoutCancel(ctx), message)
		if err == nil && s.adminWired.Load() {
			return
		}
		if err != nil {
			log.Printf("failed to publish %s admin event: %v", eventType, err)
		}
	}
	s.adminHub.BroadcastAll(message)
}

func reportSummary(r *models.Report, reporterName, listingTitle string) map[string]interface{} {
	return map[string]interface{}{
		"id":            r.ID,
		"listing_id":    r.ListingID,
		"listing_title": listingTitle,
		"user_id":       r.UserID,
		"reporter_name": reporterName,
		"reason":        r.Reason,
		"status":        r.Status,
		"created_at":    r.CreatedAt,
	}
}

func listingSummary(l *models.Listing) map[string]interface{} {
	return map[string]interface{}{
		"id":                 l.ID,
		"title":              l.Title,
		"status":             l.Status,
		"is_active":          l.IsActive,
		"is_spam":            l.IsSpam,
		"is_fraud":           l.IsFraud,
		"spam_report_count":  l.SpamReportCount,
		"fraud_report_count": l.FraudReportCount,
		"auto_hidden_at":     l.AutoHiddenAt,
	}
}

func isRecordNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
