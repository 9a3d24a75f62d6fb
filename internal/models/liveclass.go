package models

import "time"

// LiveClassStatus is a display-only lifecycle label. It is set once at
// creation; nothing in the API transitions it.
type LiveClassStatus string

const (
	LiveClassScheduled LiveClassStatus = "Scheduled"
	LiveClassLive      LiveClassStatus = "Live"
	LiveClassCompleted LiveClassStatus = "Completed"
)

// LiveClass represents a scheduled live class session owned by an instructor
// with a roster of enrolled students.
type LiveClass struct {
	ID           string          `db:"id" json:"id"`
	Title        string          `db:"title" json:"title"`
	Description  string          `db:"description" json:"description,omitempty"`
	StartTime    time.Time       `db:"start_time" json:"startTime"`
	EndTime      time.Time       `db:"end_time" json:"endTime"`
	InstructorID string          `db:"instructor_id" json:"instructorId"`
	MeetingLink  string          `db:"meeting_link" json:"meetingLink"`
	Status       LiveClassStatus `db:"status" json:"status"`
	StudentIDs   []string        `db:"-" json:"students"`
	CreatedAt    time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updatedAt"`
}

// LiveClassDetail is the read projection returned by the API: the class plus
// the expanded instructor fields.
type LiveClassDetail struct {
	LiveClass
	Instructor InstructorInfo `json:"instructor"`
}

// LiveClassPatch carries a sparse update. A nil field was not supplied and
// leaves the stored value unchanged; a non-nil field replaces it. Description
// may be set to the empty string to clear it.
type LiveClassPatch struct {
	Title       *string
	Description *string
	StartTime   *time.Time
	EndTime     *time.Time
	MeetingLink *string
	StudentIDs  []string
}
