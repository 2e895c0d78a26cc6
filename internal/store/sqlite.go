// Package store provides storage backends for UniDesk.
//
// This file implements the SQLite-backed store.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "embed"

	"github.com/BTreeMap/UniDesk/internal/models"
	_ "github.com/mattn/go-sqlite3"
)

// Constants for SQLite store configuration
const (
	// DefaultDirPermissions defines the default permissions for database directories
	DefaultDirPermissions = 0755
)

//go:embed migrations_sqlite.sql
var sqliteMigrations string

type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store with the given DSN.
// The DSN should be a file path to the SQLite database file.
// If the directory doesn't exist, it will be created.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	// Apply options
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewSQLiteStore invoked", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	// Ensure the directory exists
	dir := filepath.Dir(dsn)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("Failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	slog.Debug("Opening SQLite database connection")
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		slog.Error("Failed to open SQLite connection", "error", err)
		return nil, err
	}

	if err := db.Ping(); err != nil {
		slog.Error("SQLite ping failed", "error", err)
		return nil, err
	}

	// Run migrations to ensure tables and reference data exist
	slog.Debug("Running SQLite migrations")
	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLite migrations applied successfully")

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) CreateUser(u models.User) (models.User, error) {
	res, err := s.db.Exec(`INSERT INTO users (email, name, password_hash, role, messenger_id) VALUES (?, ?, ?, ?, ?)`,
		u.Email, u.Name, u.PasswordHash, string(u.Role), u.MessengerID)
	if err != nil {
		slog.Error("SQLiteStore CreateUser failed", "error", err, "email", u.Email)
		return models.User{}, fmt.Errorf("failed to insert user %s: %w", u.Email, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.User{}, fmt.Errorf("failed to read inserted user id: %w", err)
	}
	slog.Debug("SQLiteStore CreateUser succeeded", "id", id, "email", u.Email)
	created, err := s.GetUserByID(id)
	if err != nil {
		return models.User{}, err
	}
	return *created, nil
}

const userColumns = `id, email, name, password_hash, role, messenger_id, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	var u models.User
	var role string
	var messengerID sql.NullInt64
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &role, &messengerID, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	u.Role = models.Role(role)
	if messengerID.Valid {
		u.MessengerID = &messengerID.Int64
	}
	return &u, nil
}

func (s *SQLiteStore) getUser(query string, arg any) (*models.User, error) {
	u, err := scanUser(s.db.QueryRow(query, arg))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore user lookup failed", "error", err)
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return u, nil
}

func (s *SQLiteStore) GetUserByID(id int64) (*models.User, error) {
	return s.getUser(`SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

func (s *SQLiteStore) GetUserByEmail(email string) (*models.User, error) {
	return s.getUser(`SELECT `+userColumns+` FROM users WHERE lower(email) = lower(?)`, email)
}

func (s *SQLiteStore) GetUserByMessengerID(messengerID int64) (*models.User, error) {
	return s.getUser(`SELECT `+userColumns+` FROM users WHERE messenger_id = ?`, messengerID)
}

func (s *SQLiteStore) UpdateUserName(id int64, name string) error {
	res, err := s.db.Exec(`UPDATE users SET name = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, name, id)
	if err != nil {
		slog.Error("SQLiteStore UpdateUserName failed", "error", err, "id", id)
		return fmt.Errorf("failed to update user name: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) LinkMessengerID(userID, messengerID int64) (*models.User, error) {
	res, err := s.db.Exec(`UPDATE users SET messenger_id = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, messengerID, userID)
	if err != nil {
		slog.Error("SQLiteStore LinkMessengerID failed", "error", err, "user_id", userID)
		return nil, fmt.Errorf("failed to link messenger id: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, models.ErrNotFound
	}
	return s.GetUserByID(userID)
}

func (s *SQLiteStore) ListUsers() ([]models.User, error) {
	rows, err := s.db.Query(`SELECT ` + userColumns + ` FROM users ORDER BY id DESC`)
	if err != nil {
		slog.Error("SQLiteStore ListUsers query failed", "error", err)
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

const profileQuery = `SELECT p.user_id, p.study_type, COALESCE(p.institute_id, 0), COALESCE(i.name, ''),
	COALESCE(p.direction_id, 0), COALESCE(d.name, ''), COALESCE(p.group_id, 0), COALESCE(g.name, ''),
	p.course, p.paid
	FROM student_profiles p
	LEFT JOIN groups g ON g.id = p.group_id
	LEFT JOIN directions d ON d.id = p.direction_id
	LEFT JOIN institutes i ON i.id = p.institute_id`

func scanProfile(row interface{ Scan(...any) error }) (*models.StudentProfile, error) {
	var p models.StudentProfile
	if err := row.Scan(&p.UserID, &p.StudyType, &p.InstituteID, &p.InstituteName,
		&p.DirectionID, &p.DirectionName, &p.GroupID, &p.GroupName, &p.Course, &p.Paid); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *SQLiteStore) GetStudentProfile(userID int64) (*models.StudentProfile, error) {
	p, err := scanProfile(s.db.QueryRow(profileQuery+` WHERE p.user_id = ?`, userID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore GetStudentProfile failed", "error", err, "user_id", userID)
		return nil, fmt.Errorf("failed to query student profile: %w", err)
	}
	return p, nil
}

func (s *SQLiteStore) UpsertStudentProfile(p models.StudentProfile) (models.StudentProfile, error) {
	if p.StudyType == "" {
		p.StudyType = "BACHELOR"
	}
	_, err := s.db.Exec(`INSERT INTO student_profiles (user_id, study_type, institute_id, direction_id, group_id, course, paid)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET study_type = excluded.study_type, institute_id = excluded.institute_id,
			direction_id = excluded.direction_id, group_id = excluded.group_id, course = excluded.course, paid = excluded.paid`,
		p.UserID, p.StudyType, nullableID(p.InstituteID), nullableID(p.DirectionID), nullableID(p.GroupID), p.Course, p.Paid)
	if err != nil {
		slog.Error("SQLiteStore UpsertStudentProfile failed", "error", err, "user_id", p.UserID)
		return models.StudentProfile{}, fmt.Errorf("failed to upsert student profile: %w", err)
	}
	saved, err := s.GetStudentProfile(p.UserID)
	if err != nil {
		return models.StudentProfile{}, err
	}
	return *saved, nil
}

func (s *SQLiteStore) ListStudentProfiles() ([]models.StudentProfile, error) {
	rows, err := s.db.Query(profileQuery + ` ORDER BY p.user_id`)
	if err != nil {
		slog.Error("SQLiteStore ListStudentProfiles query failed", "error", err)
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

func (s *SQLiteStore) ListOpenDebts(userID int64) ([]models.AcademicDebt, error) {
	rows, err := s.db.Query(`SELECT id, user_id, subject, COALESCE(description, ''), closed FROM academic_debts WHERE user_id = ? AND closed = 0 ORDER BY id`, userID)
	if err != nil {
		slog.Error("SQLiteStore ListOpenDebts query failed", "error", err, "user_id", userID)
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

const groupQuery = `SELECT g.id, g.name, g.course, d.id, d.name, i.id, i.name
	FROM groups g
	JOIN directions d ON d.id = g.direction_id
	JOIN institutes i ON i.id = d.institute_id`

func (s *SQLiteStore) ListGroups() ([]models.Group, error) {
	rows, err := s.db.Query(groupQuery + ` ORDER BY g.name`)
	if err != nil {
		slog.Error("SQLiteStore ListGroups query failed", "error", err)
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

func (s *SQLiteStore) GetSchedule(group, day string) ([]models.DaySchedule, error) {
	rows, err := s.db.Query(`SELECT l.weekday, l.start_time, l.end_time, l.subject, COALESCE(l.room, ''), COALESCE(l.teacher, ''), COALESCE(l.kind, '')
		FROM lessons l JOIN groups g ON g.id = l.group_id
		WHERE g.name = ? ORDER BY l.start_time`, group)
	if err != nil {
		slog.Error("SQLiteStore GetSchedule query failed", "error", err, "group", group)
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

func (s *SQLiteStore) ListScheduleGroups() ([]string, error) {
	rows, err := s.db.Query(`SELECT DISTINCT g.name FROM lessons l JOIN groups g ON g.id = l.group_id ORDER BY g.name`)
	if err != nil {
		slog.Error("SQLiteStore ListScheduleGroups query failed", "error", err)
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

const eventColumns = `id, title, COALESCE(description, ''), date, time, COALESCE(location, ''), COALESCE(category, '')`

func scanEvent(row interface{ Scan(...any) error }) (*models.Event, error) {
	var e models.Event
	if err := row.Scan(&e.ID, &e.Title, &e.Description, &e.Date, &e.Time, &e.Location, &e.Category); err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *SQLiteStore) queryEvents(query string, args ...any) ([]models.Event, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		slog.Error("SQLiteStore event query failed", "error", err)
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

func (s *SQLiteStore) ListEvents() ([]models.Event, error) {
	return s.queryEvents(`SELECT ` + eventColumns + ` FROM events ORDER BY date`)
}

func (s *SQLiteStore) GetEventByID(id int64) (*models.Event, error) {
	e, err := scanEvent(s.db.QueryRow(`SELECT `+eventColumns+` FROM events WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore GetEventByID failed", "error", err, "id", id)
		return nil, fmt.Errorf("failed to query event: %w", err)
	}
	return e, nil
}

func (s *SQLiteStore) ListEventsByCategory(category string) ([]models.Event, error) {
	return s.queryEvents(`SELECT `+eventColumns+` FROM events WHERE category = ? ORDER BY date`, category)
}

func (s *SQLiteStore) ListUpcomingEvents(limit int) ([]models.Event, error) {
	if limit <= 0 {
		return s.ListEvents()
	}
	return s.queryEvents(`SELECT `+eventColumns+` FROM events ORDER BY date LIMIT ?`, limit)
}

const applicationColumns = `id, type, type_name, student_name, student_id, COALESCE(department, ''), email, COALESCE(description, ''), status, user_id, created_at, updated_at`

func scanApplication(row interface{ Scan(...any) error }) (*models.Application, error) {
	var a models.Application
	var status string
	var userID sql.NullInt64
	if err := row.Scan(&a.ID, &a.Type, &a.TypeName, &a.StudentName, &a.StudentID, &a.Department,
		&a.Email, &a.Description, &status, &userID, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	a.Status = models.ApplicationStatus(status)
	if userID.Valid {
		a.UserID = &userID.Int64
	}
	return &a, nil
}

func (s *SQLiteStore) CreateApplication(a models.Application) (models.Application, error) {
	if a.Status == "" {
		a.Status = models.ApplicationStatusPending
	}
	res, err := s.db.Exec(`INSERT INTO applications (type, type_name, student_name, student_id, department, email, description, status, user_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.Type, a.TypeName, a.StudentName, a.StudentID, a.Department, a.Email, a.Description, string(a.Status), a.UserID)
	if err != nil {
		slog.Error("SQLiteStore CreateApplication failed", "error", err, "type", a.Type)
		return models.Application{}, fmt.Errorf("failed to insert application: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.Application{}, fmt.Errorf("failed to read inserted application id: %w", err)
	}
	slog.Debug("SQLiteStore CreateApplication succeeded", "id", id, "type", a.Type)
	created, err := s.GetApplicationByID(id)
	if err != nil {
		return models.Application{}, err
	}
	return *created, nil
}

func (s *SQLiteStore) GetApplicationByID(id int64) (*models.Application, error) {
	a, err := scanApplication(s.db.QueryRow(`SELECT `+applicationColumns+` FROM applications WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore GetApplicationByID failed", "error", err, "id", id)
		return nil, fmt.Errorf("failed to query application: %w", err)
	}
	return a, nil
}

func (s *SQLiteStore) queryApplications(query string, args ...any) ([]models.Application, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		slog.Error("SQLiteStore application query failed", "error", err)
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

func (s *SQLiteStore) ListApplications() ([]models.Application, error) {
	return s.queryApplications(`SELECT ` + applicationColumns + ` FROM applications ORDER BY id`)
}

func (s *SQLiteStore) ListApplicationsByStudentID(studentID string) ([]models.Application, error) {
	return s.queryApplications(`SELECT `+applicationColumns+` FROM applications WHERE student_id = ? ORDER BY id`, studentID)
}

func (s *SQLiteStore) ListApplicationsByUserID(userID int64) ([]models.Application, error) {
	return s.queryApplications(`SELECT `+applicationColumns+` FROM applications WHERE user_id = ? ORDER BY id`, userID)
}

func (s *SQLiteStore) UpdateApplicationStatus(id int64, status models.ApplicationStatus) (*models.Application, error) {
	res, err := s.db.Exec(`UPDATE applications SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, string(status), id)
	if err != nil {
		slog.Error("SQLiteStore UpdateApplicationStatus failed", "error", err, "id", id)
		return nil, fmt.Errorf("failed to update application status: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, nil
	}
	return s.GetApplicationByID(id)
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
