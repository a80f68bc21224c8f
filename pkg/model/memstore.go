package model

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemStore is a map-backed Store used by tests and the local chat session.
// All operations are guarded by one mutex, which satisfies the atomic
// single-record contract trivially.
type MemStore struct {
	mu        sync.Mutex
	users     map[string]*User
	habits    map[string]*Habit
	habitDays map[string]*HabitDay
	tasks     map[string]*Task
	goals     map[string]*Goal
	seq       int
}

// NewMemStore returns an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		users:     make(map[string]*User),
		habits:    make(map[string]*Habit),
		habitDays: make(map[string]*HabitDay),
		tasks:     make(map[string]*Task),
		goals:     make(map[string]*Goal),
	}
}

func habitDayKey(habitID string, day string) string {
	return habitID + "/" + day
}

// CreateUser adds a user record, assigning an ID when absent.
func (s *MemStore) CreateUser(_ context.Context, user *User) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	clone := *user
	s.users[clone.ID] = &clone

	copied := clone
	return &copied, nil
}

func (s *MemStore) User(_ context.Context, id string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}

	clone := *user
	return &clone, nil
}

func (s *MemStore) UserByChannelID(_ context.Context, channel string, senderID string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, user := range s.users {
		if user.ChannelIDs[channel] == senderID && senderID != "" {
			clone := *user
			return &clone, nil
		}
	}

	return nil, ErrNotFound
}

func (s *MemStore) PutUser(_ context.Context, user *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := *user
	s.users[clone.ID] = &clone
	return nil
}

// AddGoal seeds a goal record.
func (s *MemStore) AddGoal(_ context.Context, goal *Goal) (*Goal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if goal.ID == "" {
		goal.ID = uuid.NewString()
	}
	clone := *goal
	s.goals[clone.ID] = &clone

	copied := clone
	return &copied, nil
}

// CurrentGoals returns the user's goals for the current month, annual
// goals last.
func (s *MemStore) CurrentGoals(_ context.Context, userID string, now time.Time) ([]*Goal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var current []*Goal
	for _, goal := range s.goals {
		if goal.UserID != userID {
			continue
		}
		if goal.Date.Year() != now.Year() {
			continue
		}
		if !goal.Annual && goal.Date.Month() != now.Month() {
			continue
		}
		clone := *goal
		current = append(current, &clone)
	}

	sort.Slice(current, func(i, j int) bool {
		if current[i].Annual != current[j].Annual {
			return !current[i].Annual
		}
		return current[i].ID < current[j].ID
	})

	return current, nil
}

func (s *MemStore) RecentTasks(_ context.Context, userID string) ([]*Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var tasks []*Task
	for _, task := range s.tasks {
		if task.UserID != userID {
			continue
		}
		clone := *task
		tasks = append(tasks, &clone)
	}

	sort.Slice(tasks, func(i, j int) bool {
		return tasks[i].CreatedAt.After(tasks[j].CreatedAt)
	})

	return tasks, nil
}

func (s *MemStore) CountTasksDoneSince(_ context.Context, userID string, since time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, task := range s.tasks {
		if task.UserID == userID && task.Done && !task.DoneAt.Before(since) {
			count++
		}
	}

	return count, nil
}

func (s *MemStore) CreateTask(_ context.Context, userID string, title string) (*Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	task := &Task{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     title,
		CreatedAt: time.Now().UTC().Add(time.Duration(s.seq)), // strictly ordered creation times
	}
	s.tasks[task.ID] = task

	clone := *task
	return &clone, nil
}

// CompleteTask marks a task done now. Not used by the dispatcher itself,
// but lets tests and the chat session build realistic task states.
func (s *MemStore) CompleteTask(_ context.Context, taskID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[taskID]
	if !ok {
		return ErrNotFound
	}
	task.Done = true
	task.DoneAt = time.Now().UTC()
	return nil
}

func (s *MemStore) habitsLocked(userID string, includeArchived bool) []*Habit {
	var habits []*Habit
	for _, habit := range s.habits {
		if habit.UserID != userID {
			continue
		}
		if habit.Archived && !includeArchived {
			continue
		}
		clone := *habit
		habits = append(habits, &clone)
	}

	sort.Slice(habits, func(i, j int) bool {
		return habits[i].CreatedAt.Before(habits[j].CreatedAt)
	})

	return habits
}

func (s *MemStore) ActiveHabits(_ context.Context, userID string) ([]*Habit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.habitsLocked(userID, false), nil
}

func (s *MemStore) AllHabits(_ context.Context, userID string) ([]*Habit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.habitsLocked(userID, true), nil
}

func (s *MemStore) CreateHabit(_ context.Context, userID string, name string) (*Habit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	habit := &Habit{
		ID:        uuid.NewString(),
		UserID:    userID,
		Name:      name,
		CreatedAt: time.Now().UTC().Add(time.Duration(s.seq)),
	}
	s.habits[habit.ID] = habit

	clone := *habit
	return &clone, nil
}

// ArchiveHabit flags a habit as no longer active.
func (s *MemStore) ArchiveHabit(_ context.Context, habitID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	habit, ok := s.habits[habitID]
	if !ok {
		return ErrNotFound
	}
	habit.Archived = true
	return nil
}

func (s *MemStore) HabitDays(_ context.Context, habitIDs []string, day string) ([]*HabitDay, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var days []*HabitDay
	for _, habitID := range habitIDs {
		record, ok := s.habitDays[habitDayKey(habitID, day)]
		if !ok {
			continue
		}
		clone := *record
		days = append(days, &clone)
	}

	return days, nil
}

func (s *MemStore) upsertHabitDayLocked(habitID string, day string) *HabitDay {
	key := habitDayKey(habitID, day)
	record, ok := s.habitDays[key]
	if !ok {
		record = &HabitDay{HabitID: habitID, Day: day}
		s.habitDays[key] = record
	}

	return record
}

func (s *MemStore) MarkHabitDone(_ context.Context, habitID string, day string) (*HabitDay, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record := s.upsertHabitDayLocked(habitID, day)
	record.Done = true

	clone := *record
	return &clone, nil
}

func (s *MemStore) CommitHabit(_ context.Context, habitID string, day string) (*HabitDay, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record := s.upsertHabitDayLocked(habitID, day)
	record.Committed = true

	clone := *record
	return &clone, nil
}
