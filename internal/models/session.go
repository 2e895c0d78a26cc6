// Package models defines conversation session structures for the chatbot flows.
package models

import "time"

// SessionMode identifies which guided dialog a user is in the middle of.
type SessionMode string

const (
	// SessionModeApplication collects application fields one turn at a time.
	SessionModeApplication SessionMode = "application"
	// SessionModeStatus asks for an application or student identifier.
	SessionModeStatus SessionMode = "status"
	// SessionModeProfile collects the student's name and group.
	SessionModeProfile SessionMode = "profile"
)

// Steps of the application submission flow.
const (
	StepStudentName = "studentName"
	StepStudentID   = "studentId"
	StepDepartment  = "department"
	StepEmail       = "email"
	StepDescription = "description"
)

// Steps of the status lookup flow.
const (
	StepAskID        = "askId"
	StepAskStudentID = "askStudentId"
)

// Steps of the profile editing flow.
const (
	StepName  = "name"
	StepGroup = "group"
)

// ApplicationDraft accumulates the slot-filling data of an application flow.
type ApplicationDraft struct {
	Type        string
	TypeName    string
	StudentName string
	StudentID   string
	Department  string
	Email       string
	Description string
	UserID      int64
	Prefilled   bool
}

// ProfileDraft accumulates the data of a profile editing flow. Groups holds the
// numbered choice list presented to the user at the name step, so the group step
// can resolve a 1-based index against exactly what was shown.
type ProfileDraft struct {
	Name   string
	Groups []Group
}

// Session is the per-user state of an active multi-step dialog. At most one
// session exists per user; starting a new flow overwrites any stale one.
type Session struct {
	UserID      int64
	Mode        SessionMode
	Step        string
	Application *ApplicationDraft
	Profile     *ProfileDraft
	UpdatedAt   time.Time
}

// Touch refreshes the idle timestamp used by the janitor sweep.
func (s *Session) Touch() {
	s.UpdatedAt = time.Now()
}
