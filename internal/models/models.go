// Package models defines the core data structures for UniDesk.
//
// It includes the university domain entities (users, student profiles, applications,
// schedule and events) and the shared API response envelope.
package models

import (
	"errors"
	"strings"
	"time"
)

// Role identifies the access level of a user account.
type Role string

const (
	RoleStudent Role = "STUDENT"
	RoleTeacher Role = "TEACHER"
	RoleStaff   Role = "STAFF"
	RoleAdmin   Role = "ADMIN"
)

// IsValidRole checks if the given role is supported.
func IsValidRole(r Role) bool {
	switch r {
	case RoleStudent, RoleTeacher, RoleStaff, RoleAdmin:
		return true
	default:
		return false
	}
}

// ParseRole normalizes a free-form role string, falling back to STUDENT.
func ParseRole(s string) Role {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	if IsValidRole(r) {
		return r
	}
	return RoleStudent
}

// User represents an account in the personal-account system.
// MessengerID links the account to a messenger platform user when set.
type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	MessengerID  *int64    `json:"messengerId,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// StudentProfile carries the academic attributes of a student account.
// The *Name fields are resolved from the referenced catalog rows on read.
type StudentProfile struct {
	UserID        int64  `json:"userId"`
	StudyType     string `json:"studyType"`
	InstituteID   int64  `json:"instituteId"`
	InstituteName string `json:"instituteName,omitempty"`
	DirectionID   int64  `json:"directionId"`
	DirectionName string `json:"directionName,omitempty"`
	GroupID       int64  `json:"groupId"`
	GroupName     string `json:"groupName,omitempty"`
	Course        int    `json:"course"`
	Paid          bool   `json:"paid"`
}

// Complete reports whether the profile has enough data for prefilled application
// submission from chat.
func (p *StudentProfile) Complete() bool {
	return p != nil && p.GroupID != 0
}

// AcademicDebt is an open or closed academic debt attached to a student.
type AcademicDebt struct {
	ID          int64  `json:"id"`
	UserID      int64  `json:"userId"`
	Subject     string `json:"subject"`
	Description string `json:"description,omitempty"`
	Closed      bool   `json:"closed"`
}

// Group is a study group within a direction.
type Group struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	Course        int    `json:"course"`
	DirectionID   int64  `json:"directionId"`
	DirectionName string `json:"directionName,omitempty"`
	InstituteID   int64  `json:"instituteId"`
	InstituteName string `json:"instituteName,omitempty"`
}

// Lesson is a single schedule entry for a group.
type Lesson struct {
	Weekday   string `json:"weekday"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
	Subject   string `json:"subject"`
	Room      string `json:"room"`
	Teacher   string `json:"teacher,omitempty"`
	Kind      string `json:"type,omitempty"`
}

// DaySchedule groups the lessons of one weekday.
type DaySchedule struct {
	Day     string   `json:"day"`
	Lessons []Lesson `json:"lessons"`
}

// Event is a university event shown to students.
// Date is stored in UTC; display formatting applies the campus timezone offset.
type Event struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Date        time.Time `json:"date"`
	Time        string    `json:"time"`
	Location    string    `json:"location"`
	Category    string    `json:"category"`
}

// ApplicationStatus enumerates the lifecycle states of an application.
type ApplicationStatus string

const (
	ApplicationStatusPending    ApplicationStatus = "pending"
	ApplicationStatusApproved   ApplicationStatus = "approved"
	ApplicationStatusRejected   ApplicationStatus = "rejected"
	ApplicationStatusProcessing ApplicationStatus = "processing"
)

// IsValidApplicationStatus checks if the given status is supported.
func IsValidApplicationStatus(s ApplicationStatus) bool {
	switch s {
	case ApplicationStatusPending, ApplicationStatusApproved, ApplicationStatusRejected, ApplicationStatusProcessing:
		return true
	default:
		return false
	}
}

// ApplicationType is one entry of the fixed, configured application catalog.
type ApplicationType struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Application is a submitted administrative request.
// StudentID is the student card number from the web form, or the group name when
// the application originates from the messenger flow.
type Application struct {
	ID          int64             `json:"id"`
	Type        string            `json:"type"`
	TypeName    string            `json:"typeName"`
	StudentName string            `json:"studentName"`
	StudentID   string            `json:"studentId"`
	Department  string            `json:"department"`
	Email       string            `json:"email"`
	Description string            `json:"description,omitempty"`
	Status      ApplicationStatus `json:"status"`
	UserID      *int64            `json:"userId,omitempty"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
}

// ChatCommand is one help-menu entry for the chatbot.
type ChatCommand struct {
	Command     string `json:"command"`
	Description string `json:"description"`
}

// ChatResponse is the internal response produced by the intent classifier and the
// dialog flow engine, before rendering into transport messages.
type ChatResponse struct {
	Text             string            `json:"text,omitempty"`
	Action           string            `json:"action,omitempty"`
	Suggestions      []string          `json:"suggestions,omitempty"`
	Events           []Event           `json:"events,omitempty"`
	ApplicationTypes []ApplicationType `json:"applicationTypes,omitempty"`
	Commands         []ChatCommand     `json:"commands,omitempty"`
}

// Error variables for better error handling and testability
var (
	ErrMissingRequiredFields  = errors.New("type, student name, student id and email are required")
	ErrInvalidApplicationType = errors.New("unknown application type")
	ErrInvalidEmail           = errors.New("email must contain '@' followed by '.'")
	ErrUserExists             = errors.New("user with this email already exists")
	ErrInvalidCredentials     = errors.New("invalid email or password")
	ErrNotFound               = errors.New("not found")
)

// IsLikelyEmail applies the flow engine's email-shape check: the value must
// contain an '@' with at least one '.' somewhere after it.
func IsLikelyEmail(s string) bool {
	at := strings.Index(s, "@")
	if at <= 0 {
		return false
	}
	rest := s[at+1:]
	dot := strings.Index(rest, ".")
	return dot > 0 && dot < len(rest)-1
}

// Validate checks the fields required to create an application against the
// configured type catalog.
func (a *Application) Validate(catalog []ApplicationType) error {
	if a.Type == "" || a.StudentName == "" || a.StudentID == "" || a.Email == "" {
		return ErrMissingRequiredFields
	}
	if !IsLikelyEmail(a.Email) {
		return ErrInvalidEmail
	}
	for _, t := range catalog {
		if t.ID == a.Type {
			return nil
		}
	}
	return ErrInvalidApplicationType
}
