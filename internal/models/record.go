package models

import "time"

// RecordStatus is the derived lifecycle label of a time-bounded record. It is
// never persisted; it is recomputed on every read.
type RecordStatus string

const (
	StatusInactive RecordStatus = "inactive"
	StatusUpcoming RecordStatus = "upcoming"
	StatusActive   RecordStatus = "active"
	StatusExpired  RecordStatus = "expired"
)

// Record is a time-bounded entry: an announcement, an event, or a class
// schedule slot. Announcements are global; events and schedules carry the
// department/semester/shift scope.
//
// Days holds weekday names ("Monday".."Sunday"). An empty set means every
// day is eligible. StartTime and EndTime accept either bare "HH:MM" (a daily
// window, combined with the current date) or a full timestamp (a one-off).
type Record struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Body        string   `json:"body,omitempty"`
	Days        []string `json:"days,omitempty"`
	StartTime   string   `json:"startTime,omitempty"`
	EndTime     string   `json:"endTime,omitempty"`
	Department  string   `json:"department,omitempty"`
	Semester    string   `json:"semester,omitempty"`
	Shift       string   `json:"shift,omitempty"`
	CreatorID   string   `json:"creatorId"`
	CreatorName string   `json:"creatorName,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	// Derived on read, never stored.
	Status        RecordStatus `json:"status,omitempty"`
	TimeToStart   *int64       `json:"timeToStart"`
	TimeRemaining *int64       `json:"timeRemaining"`
}
