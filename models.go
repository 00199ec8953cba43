package presence_monitor

import "time"

// DetectionSnapshot is one processed frame's worth of raw detector output.
// Monotonic is the capture clock at the moment the frame was processed; the
// stabilizer derives elapsed time from consecutive snapshots, so a snapshot
// with a zero or backwards Monotonic is rejected as malformed.
type DetectionSnapshot struct {
	PersonPresent bool          `json:"person_present"`
	DeviceInUse   bool          `json:"device_in_use"`
	Monotonic     time.Duration `json:"monotonic"`
}

// CanonicalState is the debounced, authoritative view of what the camera sees.
// AbsenceSeconds accumulates while PersonPresent is false and resets to zero
// the instant presence is confirmed again; DeviceUseSeconds accumulates while
// DeviceInUse is true and resets when the device is confirmed idle.
type CanonicalState struct {
	PersonPresent    bool      `json:"person_present"`
	DeviceInUse      bool      `json:"device_in_use"`
	AbsenceSeconds   float64   `json:"absence_seconds"`
	DeviceUseSeconds float64   `json:"device_use_seconds"`
	LastTransitionAt time.Time `json:"last_transition_at,omitempty"`
}

// StatusSummary is the flat, level-view payload handed to the transport layer.
// The alert booleans mean "currently over the configured limit" and ignore
// cooldown suppression; they are for display, not for firing.
type StatusSummary struct {
	PersonPresent    bool    `json:"person_present"`
	DeviceInUse      bool    `json:"device_in_use"`
	AbsenceSeconds   float64 `json:"absence_seconds"`
	DeviceUseSeconds float64 `json:"device_use_seconds"`
	AbsenceAlert     bool    `json:"absence_alert"`
	DeviceUseAlert   bool    `json:"device_use_alert"`
}

// AlertKind identifies one deduplication/cooldown bucket.
type AlertKind string

const (
	KindAbsence   AlertKind = "ABSENCE"
	KindDeviceUse AlertKind = "DEVICE_USE"
)

// ScheduleAlertKind returns the per-entry kind for a schedule fire, so each
// entry gets its own cooldown bucket.
func ScheduleAlertKind(entryID string) AlertKind {
	return AlertKind("SCHEDULE:" + entryID)
}

// ScheduleEntry is a "say Content at TimeOfDay, once per day" reminder.
// LastFiredDate is the YYYY-MM-DD day it last fired, empty if never.
type ScheduleEntry struct {
	ID            string `json:"id"`
	TimeOfDay     string `json:"time_of_day"` // HH:MM, 24h clock
	Content       string `json:"content"`
	LastFiredDate string `json:"last_fired_date,omitempty"`
}

// MonitorEvent is a single log entry.
type MonitorEvent struct {
	EventID     string    `json:"event_id"`
	OccurredAt  time.Time `json:"occurred_at"`
	Type        string    `json:"type"`        // ALERT | SCHEDULE | CONFIG | ERROR
	Description string    `json:"description"` // human-readable
	Metadata    any       `json:"metadata,omitempty"`
}

type User struct {
	ID           int    `json:"id"`
	Username     string `json:"username"`
	PasswordHash string `json:"-"` // don't expose hash
}
