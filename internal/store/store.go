// Package store provides storage backends for UniDesk.
//
// It defines the Store interface over users, student profiles, the academic
// catalog, schedule, events and applications, with in-memory, SQLite and
// PostgreSQL implementations.
package store

import (
	"strings"

	"github.com/BTreeMap/UniDesk/internal/models"
)

// Store is the persistence boundary of the application. Lookups return
// (nil, nil) when the entity does not exist.
type Store interface {
	// Users
	CreateUser(u models.User) (models.User, error)
	GetUserByID(id int64) (*models.User, error)
	GetUserByEmail(email string) (*models.User, error)
	GetUserByMessengerID(messengerID int64) (*models.User, error)
	UpdateUserName(id int64, name string) error
	LinkMessengerID(userID, messengerID int64) (*models.User, error)
	ListUsers() ([]models.User, error)

	// Student profiles
	GetStudentProfile(userID int64) (*models.StudentProfile, error)
	UpsertStudentProfile(p models.StudentProfile) (models.StudentProfile, error)
	ListStudentProfiles() ([]models.StudentProfile, error)
	ListOpenDebts(userID int64) ([]models.AcademicDebt, error)

	// Academic catalog
	ListGroups() ([]models.Group, error)

	// Schedule
	GetSchedule(group, day string) ([]models.DaySchedule, error)
	ListScheduleGroups() ([]string, error)

	// Events
	ListEvents() ([]models.Event, error)
	GetEventByID(id int64) (*models.Event, error)
	ListEventsByCategory(category string) ([]models.Event, error)
	ListUpcomingEvents(limit int) ([]models.Event, error)

	// Applications
	CreateApplication(a models.Application) (models.Application, error)
	GetApplicationByID(id int64) (*models.Application, error)
	ListApplications() ([]models.Application, error)
	ListApplicationsByStudentID(studentID string) ([]models.Application, error)
	ListApplicationsByUserID(userID int64) ([]models.Application, error)
	UpdateApplicationStatus(id int64, status models.ApplicationStatus) (*models.Application, error)

	Close() error
}

// Opts holds configuration options for store backends.
type Opts struct {
	DSN string
}

// Option defines a configuration option for store backends.
type Option func(*Opts)

// WithDSN sets the database connection string.
func WithDSN(dsn string) Option {
	return func(o *Opts) {
		o.DSN = dsn
	}
}

// DetectDSNType inspects a DSN and reports the matching sql driver name:
// "postgres" for PostgreSQL URLs or key=value DSNs, "sqlite3" otherwise
// (file paths are treated as SQLite databases).
func DetectDSNType(dsn string) string {
	lower := strings.ToLower(strings.TrimSpace(dsn))
	if strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://") {
		return "postgres"
	}
	if strings.Contains(lower, "host=") || strings.Contains(lower, "dbname=") {
		return "postgres"
	}
	return "sqlite3"
}

// nullableID maps a zero catalog id to NULL so foreign keys stay clean.
func nullableID(id int64) any {
	if id == 0 {
		return nil
	}
	return id
}

// weekdayOrder fixes the display order of schedule days.
var weekdayOrder = []string{"Понедельник", "Вторник", "Среда", "Четверг", "Пятница", "Суббота", "Воскресенье"}

// groupLessonsByDay assembles flat lessons into per-day schedules in canonical
// weekday order, optionally filtered to a single day (case-insensitive).
func groupLessonsByDay(lessons []models.Lesson, day string) []models.DaySchedule {
	byDay := make(map[string][]models.Lesson)
	for _, l := range lessons {
		byDay[l.Weekday] = append(byDay[l.Weekday], l)
	}

	var out []models.DaySchedule
	for _, d := range weekdayOrder {
		if day != "" && !strings.EqualFold(d, day) {
			continue
		}
		if ls, ok := byDay[d]; ok {
			out = append(out, models.DaySchedule{Day: d, Lessons: ls})
		}
	}
	return out
}
