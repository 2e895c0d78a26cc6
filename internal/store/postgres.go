// Package store provides storage backends for UniDesk.
//
// This file implements the PostgreSQL-backed store.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "embed"

	"github.com/BTreeMap/UniDesk/internal/models"
	_ "github.com/lib/pq"
)

// Database connection pool configuration constants
const (
	// DefaultMaxOpenConns is the default maximum number of open connections to the database
	DefaultMaxOpenConns = 25
	// DefaultMaxIdleConns is the default maximum number of idle connections in the pool
	DefaultMaxIdleConns = 25
	// DefaultConnMaxLifetime is the default maximum amount of time a connection may be reused
	DefaultConnMaxLifetime = 5 * time.Minute
)

//go:embed migrations_postgres.sql
var postgresMigrations string

type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new Postgres store based on provided options.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	// Apply options
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewPostgresStore invoked", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	slog.Debug("Opening Postgres database connection")
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		slog.Error("Failed to open Postgres connection", "error", err)
		return nil, err
	}

	// Configure connection pool for better performance
	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxIdleConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	if err := db.Ping(); err != nil {
		slog.Error("Postgres ping failed", "error", err)
		return nil, err
	}

	// Run migrations to ensure tables and reference data exist
	slog.Debug("Running Postgres migrations")
	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("Postgres migrations applied successfully")

	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) CreateUser(u models.User) (models.User, error) {
	var id int64
	err := s.db.QueryRow(`INSERT INTO users (email, name, password_hash, role, messenger_id) VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		u.Email, u.Name, u.PasswordHash, string(u.Role), u.MessengerID).Scan(&id)
	if err != nil {
		slog.Error("PostgresStore CreateUser failed", "error", err, "email", u.Email)
		return models.User{}, fmt.Errorf("failed to insert user %s: %w", u.Email, err)
	}
	slog.Debug("PostgresStore CreateUser succeeded", "id", id, "email", u.Email)
	created, err := s.GetUserByID(id)
	if err != nil {
		return models.User{}, err
	}
	return *created, nil
}

func (s *PostgresStore) getUser(query string, arg any) (*models.User, error) {
	u, err := scanUser(s.db.QueryRow(query, arg))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore user lookup failed", "error", err)
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return u, nil
}

func (s *PostgresStore) GetUserByID(id int64) (*models.User, error) {
	return s.getUser(`SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (s *PostgresStore) GetUserByEmail(email string) (*models.User, error) {
	return s.getUser(`SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email)
}

func (s *PostgresStore) GetUserByMessengerID(messengerID int64) (*models.User, error) {
	return s.getUser(`SELECT `+userColumns+` FROM users WHERE messenger_id = $1`, messengerID)
}

func (s *PostgresStore) UpdateUserName(id int64, name string) error {
	res, err := s.db.Exec(`UPDATE users SET name = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2`, name, id)
	if err != nil {
		slog.Error("PostgresStore UpdateUserName failed", "error", err, "id", id)
		return fmt.Errorf("failed to update user name: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) LinkMessengerID(userID, messengerID int64) (*models.User, error) {
	res, err := s.db.Exec(`UPDATE users SET messenger_id = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2`, messengerID, userID)
	if err != nil {
		slog.Error("PostgresStore LinkMessengerID failed", "error", err, "user_id", userID)
		return nil, fmt.Errorf("failed to link messenger id: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, models.ErrNotFound
	}
	return s.GetUserByID(userID)
}

func (s *PostgresStore) ListUsers() ([]models.User, error) {
	rows, err := s.db.Query(`SELECT ` + userColumns + ` FROM users ORDER BY id DESC`)
	if err != nil {
		slog.Error("PostgresStore ListUsers query failed", "error", err)
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user row: %w", err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate user rows: %w", err)
	}
	return users, nil
}

func (s *PostgresStore) GetStudentProfile(userID int64) (*models.StudentProfile, error) {
	p, err := scanProfile(s.db.QueryRow(profileQuery+` WHERE p.user_id = $1`, userID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore GetStudentProfile failed", "error", err, "user_id", userID)
		return nil, fmt.Errorf("failed to query student profile: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) UpsertStudentProfile(p models.StudentProfile) (models.StudentProfile, error) {
	if p.StudyType == "" {
		p.StudyType = "BACHELOR"
	}
	_, err := s.db.Exec(`INSERT INTO student_profiles (user_id, study_type, institute_id, direction_id, group_id, course, paid)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id) DO UPDATE SET study_type = excluded.study_type, institute_id = excluded.institute_id,
			direction_id = excluded.direction_id, group_id = excluded.group_id, course = excluded.course, paid = excluded.paid`,
		p.UserID, p.StudyType, nullableID(p.InstituteID), nullableID(p.DirectionID), nullableID(p.GroupID), p.Course, p.Paid)
	if err != nil {
		slog.Error("PostgresStore UpsertStudentProfile failed", "error", err, "user_id", p.UserID)
		return models.StudentProfile{}, fmt.Errorf("failed to upsert student profile: %w", err)
	}
	saved, err := s.GetStudentProfile(p.UserID)
	if err != nil {
		return models.StudentProfile{}, err
	}
	return *saved, nil
}

func (s *PostgresStore) ListStudentProfiles() ([]models.StudentProfile, error) {
	rows, err := s.db.Query(profileQuery + ` ORDER BY p.user_id`)
	if err != nil {
		slog.Error("PostgresStore ListStudentProfiles query failed", "error", err)
		return nil, fmt.Errorf("failed to query student profiles: %w", err)
	}
	defer rows.Close()

	var profiles []models.StudentProfile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan student profile row: %w", err)
		}
		profiles = append(profiles, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate student profile rows: %w", err)
	}
	return profiles, nil
}

func (s *PostgresStore) ListOpenDebts(userID int64) ([]models.AcademicDebt, error) {
	rows, err := s.db.Query(`SELECT id, user_id, subject, COALESCE(description, ''), closed FROM academic_debts WHERE user_id = $1 AND NOT closed ORDER BY id`, userID)
	if err != nil {
		slog.Error("PostgresStore ListOpenDebts query failed", "error", err, "user_id", userID)
		return nil, fmt.Errorf("failed to query academic debts: %w", err)
	}
	defer rows.Close()

	var debts []models.AcademicDebt
	for rows.Next() {
		var d models.AcademicDebt
		if err := rows.Scan(&d.ID, &d.UserID, &d.Subject, &d.Description, &d.Closed); err != nil {
			return nil, fmt.Errorf("failed to scan academic debt row: %w", err)
		}
		debts = append(debts, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate academic debt rows: %w", err)
	}
	return debts, nil
}

func (s *PostgresStore) ListGroups() ([]models.Group, error) {
	rows, err := s.db.Query(groupQuery + ` ORDER BY g.name`)
	if err != nil {
		slog.Error("PostgresStore ListGroups query failed", "error", err)
		return nil, fmt.Errorf("failed to query groups: %w", err)
	}
	defer rows.Close()

	var groups []models.Group
	for rows.Next() {
		var g models.Group
		if err := rows.Scan(&g.ID, &g.Name, &g.Course, &g.DirectionID, &g.DirectionName, &g.InstituteID, &g.InstituteName); err != nil {
			return nil, fmt.Errorf("failed to scan group row: %w", err)
		}
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate group rows: %w", err)
	}
	return groups, nil
}

func (s *PostgresStore) GetSchedule(group, day string) ([]models.DaySchedule, error) {
	rows, err := s.db.Query(`SELECT l.weekday, l.start_time, l.end_time, l.subject, COALESCE(l.room, ''), COALESCE(l.teacher, ''), COALESCE(l.kind, '')
		FROM lessons l JOIN groups g ON g.id = l.group_id
		WHERE g.name = $1 ORDER BY l.start_time`, group)
	if err != nil {
		slog.Error("PostgresStore GetSchedule query failed", "error", err, "group", group)
		return nil, fmt.Errorf("failed to query schedule: %w", err)
	}
	defer rows.Close()

	var lessons []models.Lesson
	for rows.Next() {
		var l models.Lesson
		if err := rows.Scan(&l.Weekday, &l.StartTime, &l.EndTime, &l.Subject, &l.Room, &l.Teacher, &l.Kind); err != nil {
			return nil, fmt.Errorf("failed to scan lesson row: %w", err)
		}
		lessons = append(lessons, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate lesson rows: %w", err)
	}
	return groupLessonsByDay(lessons, day), nil
}

func (s *PostgresStore) ListScheduleGroups() ([]string, error) {
	rows, err := s.db.Query(`SELECT DISTINCT g.name FROM lessons l JOIN groups g ON g.id = l.group_id ORDER BY g.name`)
	if err != nil {
		slog.Error("PostgresStore ListScheduleGroups query failed", "error", err)
		return nil, fmt.Errorf("failed to query schedule groups: %w", err)
	}
	defer rows.Close()

	var groups []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan schedule group row: %w", err)
		}
		groups = append(groups, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate schedule group rows: %w", err)
	}
	return groups, nil
}

func (s *PostgresStore) queryEvents(query string, args ...any) ([]models.Event, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		slog.Error("PostgresStore event query failed", "error", err)
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []models.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event row: %w", err)
		}
		events = append(events, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate event rows: %w", err)
	}
	return events, nil
}

func (s *PostgresStore) ListEvents() ([]models.Event, error) {
	return s.queryEvents(`SELECT ` + eventColumns + ` FROM events ORDER BY date`)
}

func (s *PostgresStore) GetEventByID(id int64) (*models.Event, error) {
	e, err := scanEvent(s.db.QueryRow(`SELECT `+eventColumns+` FROM events WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore GetEventByID failed", "error", err, "id", id)
		return nil, fmt.Errorf("failed to query event: %w", err)
	}
	return e, nil
}

func (s *PostgresStore) ListEventsByCategory(category string) ([]models.Event, error) {
	return s.queryEvents(`SELECT `+eventColumns+` FROM events WHERE category = $1 ORDER BY date`, category)
}

func (s *PostgresStore) ListUpcomingEvents(limit int) ([]models.Event, error) {
	if limit <= 0 {
		return s.ListEvents()
	}
	return s.queryEvents(`SELECT `+eventColumns+` FROM events ORDER BY date LIMIT $1`, limit)
}

func (s *PostgresStore) CreateApplication(a models.Application) (models.Application, error) {
	if a.Status == "" {
		a.Status = models.ApplicationStatusPending
	}
	var id int64
	err := s.db.QueryRow(`INSERT INTO applications (type, type_name, student_name, student_id, department, email, description, status, user_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id`,
		a.Type, a.TypeName, a.StudentName, a.StudentID, a.Department, a.Email, a.Description, string(a.Status), a.UserID).Scan(&id)
	if err != nil {
		slog.Error("PostgresStore CreateApplication failed", "error", err, "type", a.Type)
		return models.Application{}, fmt.Errorf("failed to insert application: %w", err)
	}
	slog.Debug("PostgresStore CreateApplication succeeded", "id", id, "type", a.Type)
	created, err := s.GetApplicationByID(id)
	if err != nil {
		return models.Application{}, err
	}
	return *created, nil
}

func (s *PostgresStore) GetApplicationByID(id int64) (*models.Application, error) {
	a, err := scanApplication(s.db.QueryRow(`SELECT `+applicationColumns+` FROM applications WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore GetApplicationByID failed", "error", err, "id", id)
		return nil, fmt.Errorf("failed to query application: %w", err)
	}
	return a, nil
}

func (s *PostgresStore) queryApplications(query string, args ...any) ([]models.Application, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		slog.Error("PostgresStore application query failed", "error", err)
		return nil, fmt.Errorf("failed to query applications: %w", err)
	}
	defer rows.Close()

	var apps []models.Application
	for rows.Next() {
		a, err := scanApplication(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan application row: %w", err)
		}
		apps = append(apps, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate application rows: %w", err)
	}
	return apps, nil
}

func (s *PostgresStore) ListApplications() ([]models.Application, error) {
	return s.queryApplications(`SELECT ` + applicationColumns + ` FROM applications ORDER BY id`)
}

func (s *PostgresStore) ListApplicationsByStudentID(studentID string) ([]models.Application, error) {
	return s.queryApplications(`SELECT `+applicationColumns+` FROM applications WHERE student_id = $1 ORDER BY id`, studentID)
}

func (s *PostgresStore) ListApplicationsByUserID(userID int64) ([]models.Application, error) {
	return s.queryApplications(`SELECT `+applicationColumns+` FROM applications WHERE user_id = $1 ORDER BY id`, userID)
}

func (s *PostgresStore) UpdateApplicationStatus(id int64, status models.ApplicationStatus) (*models.Application, error) {
	res, err := s.db.Exec(`UPDATE applications SET status = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2`, string(status), id)
	if err != nil {
		slog.Error("PostgresStore UpdateApplicationStatus failed", "error", err, "id", id)
		return nil, fmt.Errorf("failed to update application status: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, nil
	}
	return s.GetApplicationByID(id)
}

// Close closes the underlying database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
