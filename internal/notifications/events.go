package notifications

import "encoding/json"

// Admin event names. Dashboards switch on these strings.
const (
	EventNewReportAdded       = "NewReportAdded"
	EventListingAutoHidden    = "ListingAutoHidden"
	EventReportStatusUpdated  = "ReportStatusUpdated"
	EventReportDeleted        = "ReportDeleted"
	EventListingStatusChanged = "ListingStatusChanged"
	EventUserStatusUpdated    = "UserStatusUpdated"
)

// Event is the wire envelope for every admin message.
type Event struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// EncodeEvent renders an event envelope as a JSON string.
func EncodeEvent(eventType string, payload interface{}) (string, error) {
	raw, err := json.Marshal(Event{Type: eventType, Payload: payload})
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
