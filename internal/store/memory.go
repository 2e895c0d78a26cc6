// Package store provides storage backends for UniDesk.
//
// This file implements an in-memory store used in tests and for ephemeral runs.
package store

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/BTreeMap/UniDesk/internal/models"
)

// InMemoryStore is a mutex-protected in-memory implementation of Store.
type InMemoryStore struct {
	mu sync.RWMutex

	users        map[int64]models.User
	profiles     map[int64]models.StudentProfile // keyed by user id
	debts        []models.AcademicDebt
	groups       []models.Group
	lessons      map[string][]models.Lesson // keyed by group name
	events       []models.Event
	applications map[int64]models.Application

	nextUserID  int64
	nextAppID   int64
	nextEventID int64
	nextDebtID  int64
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		users:        make(map[int64]models.User),
		profiles:     make(map[int64]models.StudentProfile),
		lessons:      make(map[string][]models.Lesson),
		applications: make(map[int64]models.Application),
		nextUserID:   1,
		nextAppID:    1,
		nextEventID:  1,
		nextDebtID:   1,
	}
}

func (s *InMemoryStore) CreateUser(u models.User) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u.ID = s.nextUserID
	s.nextUserID++
	now := time.Now()
	u.CreatedAt = now
	u.UpdatedAt = now
	s.users[u.ID] = u
	return u, nil
}

func (s *InMemoryStore) GetUserByID(id int64) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if u, ok := s.users[id]; ok {
		return &u, nil
	}
	return nil, nil
}

func (s *InMemoryStore) GetUserByEmail(email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			u := u
			return &u, nil
		}
	}
	return nil, nil
}

func (s *InMemoryStore) GetUserByMessengerID(messengerID int64) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.MessengerID != nil && *u.MessengerID == messengerID {
			u := u
			return &u, nil
		}
	}
	return nil, nil
}

func (s *InMemoryStore) UpdateUserName(id int64, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return models.ErrNotFound
	}
	u.Name = name
	u.UpdatedAt = time.Now()
	s.users[id] = u
	return nil
}

func (s *InMemoryStore) LinkMessengerID(userID, messengerID int64) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return nil, models.ErrNotFound
	}
	u.MessengerID = &messengerID
	u.UpdatedAt = time.Now()
	s.users[userID] = u
	return &u, nil
}

func (s *InMemoryStore) ListUsers() ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (s *InMemoryStore) GetStudentProfile(userID int64) (*models.StudentProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[userID]
	if !ok {
		return nil, nil
	}
	s.resolveProfileNames(&p)
	return &p, nil
}

func (s *InMemoryStore) UpsertStudentProfile(p models.StudentProfile) (models.StudentProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.StudyType == "" {
		p.StudyType = "BACHELOR"
	}
	s.profiles[p.UserID] = p
	s.resolveProfileNames(&p)
	return p, nil
}

func (s *InMemoryStore) ListStudentProfiles() ([]models.StudentProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.StudentProfile, 0, len(s.profiles))
	for _, p := range s.profiles {
		s.resolveProfileNames(&p)
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

// resolveProfileNames fills the display names from the group catalog.
// Caller must hold at least a read lock.
func (s *InMemoryStore) resolveProfileNames(p *models.StudentProfile) {
	for _, g := range s.groups {
		if g.ID == p.GroupID {
			p.GroupName = g.Name
			p.DirectionName = g.DirectionName
			p.InstituteName = g.InstituteName
			return
		}
	}
}

func (s *InMemoryStore) ListOpenDebts(userID int64) ([]models.AcademicDebt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.AcademicDebt
	for _, d := range s.debts {
		if d.UserID == userID && !d.Closed {
			out = append(out, d)
		}
	}
	return out, nil
}

func (s *InMemoryStore) ListGroups() ([]models.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Group, len(s.groups))
	copy(out, s.groups)
	return out, nil
}

func (s *InMemoryStore) GetSchedule(group, day string) ([]models.DaySchedule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	lessons, ok := s.lessons[group]
	if !ok {
		return nil, nil
	}
	return groupLessonsByDay(lessons, day), nil
}

func (s *InMemoryStore) ListScheduleGroups() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.lessons))
	for g := range s.lessons {
		out = append(out, g)
	}
	sort.Strings(out)
	return out, nil
}

func (s *InMemoryStore) ListEvents() ([]models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Event, len(s.events))
	copy(out, s.events)
	return out, nil
}

func (s *InMemoryStore) GetEventByID(id int64) (*models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.events {
		if e.ID == id {
			e := e
			return &e, nil
		}
	}
	return nil, nil
}

func (s *InMemoryStore) ListEventsByCategory(category string) ([]models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Event
	for _, e := range s.events {
		if e.Category == category {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *InMemoryStore) ListUpcomingEvents(limit int) ([]models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Event, len(s.events))
	copy(out, s.events)
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *InMemoryStore) CreateApplication(a models.Application) (models.Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a.ID = s.nextAppID
	s.nextAppID++
	if a.Status == "" {
		a.Status = models.ApplicationStatusPending
	}
	now := time.Now()
	a.CreatedAt = now
	a.UpdatedAt = now
	s.applications[a.ID] = a
	return a, nil
}

func (s *InMemoryStore) GetApplicationByID(id int64) (*models.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if a, ok := s.applications[id]; ok {
		return &a, nil
	}
	return nil, nil
}

func (s *InMemoryStore) ListApplications() ([]models.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Application, 0, len(s.applications))
	for _, a := range s.applications {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *InMemoryStore) ListApplicationsByStudentID(studentID string) ([]models.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Application
	for _, a := range s.applications {
		if a.StudentID == studentID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *InMemoryStore) ListApplicationsByUserID(userID int64) ([]models.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Application
	for _, a := range s.applications {
		if a.UserID != nil && *a.UserID == userID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *InMemoryStore) UpdateApplicationStatus(id int64, status models.ApplicationStatus) (*models.Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.applications[id]
	if !ok {
		return nil, nil
	}
	a.Status = status
	a.UpdatedAt = time.Now()
	s.applications[id] = a
	return &a, nil
}

func (s *InMemoryStore) Close() error {
	return nil
}

// AddGroup seeds a catalog group. Test helper, not part of the Store interface.
func (s *InMemoryStore) AddGroup(g models.Group) models.Group {
	s.mu.Lock()
	defer s.mu.Unlock()
	if g.ID == 0 {
		g.ID = int64(len(s.groups) + 1)
	}
	s.groups = append(s.groups, g)
	return g
}

// AddLesson seeds a schedule entry for a group. Test helper.
func (s *InMemoryStore) AddLesson(group string, l models.Lesson) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lessons[group] = append(s.lessons[group], l)
}

// AddEvent seeds an event. Test helper.
func (s *InMemoryStore) AddEvent(e models.Event) models.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.ID == 0 {
		e.ID = s.nextEventID
	}
	s.nextEventID = e.ID + 1
	s.events = append(s.events, e)
	return e
}

// AddDebt seeds an academic debt. Test helper.
func (s *InMemoryStore) AddDebt(d models.AcademicDebt) models.AcademicDebt {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d.ID == 0 {
		d.ID = s.nextDebtID
	}
	s.nextDebtID = d.ID + 1
	s.debts = append(s.debts, d)
	return d
}
