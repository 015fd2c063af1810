package models

import "time"

// LabType distinguishes dedicated labs from ordinary classrooms.
type LabType string

const (
	LabTypeLab       LabType = "Lab"
	LabTypeClassroom LabType = "Classroom"
)

// LabStatus is derived from the lab's open issues.
type LabStatus string

const (
	LabStatusNormal LabStatus = "normal"
	LabStatusIssue  LabStatus = "issue"
)

// Valid reports whether the status is a known value.
func (s LabStatus) Valid() bool {
	return s == LabStatusNormal || s == LabStatusIssue
}

// Equipment counts the tracked fixtures in a room.
type Equipment struct {
	Computers  int  `db:"computers" json:"computers" validate:"gte=0"`
	Lights     int  `db:"lights" json:"lights" validate:"gte=0"`
	Fans       int  `db:"fans" json:"fans" validate:"gte=0"`
	SmartBoard bool `db:"smart_board" json:"smartBoard"`
}

// Lab represents a physical room.
type Lab struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"labName"`
	Type      LabType   `db:"type" json:"type"`
	Equipment Equipment `db:"equipment" json:"equipment"`
	Status    LabStatus `db:"status" json:"status"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// LabSummary is the lab projection embedded in issue responses.
type LabSummary struct {
	ID   string  `db:"id" json:"id"`
	Name string  `db:"name" json:"labName"`
	Type LabType `db:"type" json:"type"`
}

// LabFilter narrows lab listings.
type LabFilter struct {
	Type   LabType
	Status LabStatus
}
