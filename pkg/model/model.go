package model

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// ErrNotFound reports a lookup for a record that does not exist.
var ErrNotFound = errors.New("record not found")

// DayFormat is the canonical key format for per-day habit records.
const DayFormat = "2006-01-02"

// User is one account of the tracking service. ChannelIDs maps a channel
// name (for example "messenger") to the platform-specific sender identity
// bound via account linking.
type User struct {
	ID         string            `json:"id"`
	Name       string            `json:"name,omitempty"`
	Timezone   string            `json:"timezone,omitempty"`
	Settings   string            `json:"settings,omitempty"`
	ChannelIDs map[string]string `json:"channel_ids,omitempty"`
}

// FirstName returns the leading word of the user's name.
func (u *User) FirstName() string {
	fields := strings.Fields(u.Name)
	if len(fields) == 0 {
		return ""
	}

	return fields[0]
}

// ChannelID returns the bound platform identity for a channel, if any.
func (u *User) ChannelID(channel string) string {
	return u.ChannelIDs[channel]
}

// SetChannelID binds a platform identity to this user for one channel.
func (u *User) SetChannelID(channel string, senderID string) {
	if u.ChannelIDs == nil {
		u.ChannelIDs = make(map[string]string, 1)
	}
	u.ChannelIDs[channel] = senderID
}

// ClearChannelID removes the platform identity bound for one channel.
func (u *User) ClearChannelID(channel string) {
	delete(u.ChannelIDs, channel)
}

// LocalTime returns the current time in the user's timezone, falling back
// to UTC when the timezone is unset or unknown.
func (u *User) LocalTime(now time.Time) time.Time {
	loc, err := time.LoadLocation(strings.TrimSpace(u.Timezone))
	if err != nil || strings.TrimSpace(u.Timezone) == "" {
		return now.UTC()
	}

	return now.In(loc)
}

// JournalQuestion is one configured daily journal prompt.
type JournalQuestion struct {
	Name string `json:"name,omitempty"`
	Text string `json:"text"`
}

// JournalQuestions decodes the journal question list from the user's
// settings blob. An empty or malformed blob yields no questions.
func (u *User) JournalQuestions() []JournalQuestion {
	if strings.TrimSpace(u.Settings) == "" {
		return nil
	}

	var settings struct {
		Journals struct {
			Questions []JournalQuestion `json:"questions"`
		} `json:"journals"`
	}
	if err := json.Unmarshal([]byte(u.Settings), &settings); err != nil {
		return nil
	}

	return settings.Journals.Questions
}

// Habit is a recurring behavior the user is building.
type Habit struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	Archived  bool      `json:"archived,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// HabitDay tracks commitment and completion of one habit on one day.
// There is at most one record per (habit, day) pair.
type HabitDay struct {
	HabitID   string `json:"habit_id"`
	Day       string `json:"day"`
	Committed bool   `json:"committed,omitempty"`
	Done      bool   `json:"done,omitempty"`
}

// Task is a one-off item on the user's daily list.
type Task struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	Done      bool      `json:"done,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	DoneAt    time.Time `json:"done_at,omitzero"`
}

// Goal holds the user's goal texts for the month of Date, or for its
// whole year when Annual is set.
type Goal struct {
	ID     string    `json:"id"`
	UserID string    `json:"user_id"`
	Date   time.Time `json:"date"`
	Annual bool      `json:"annual,omitempty"`
	Texts  []string  `json:"texts,omitempty"`
}

// Day formats a timestamp as a habit-day key.
func Day(t time.Time) string {
	return t.Format(DayFormat)
}

// Store is the persistence collaborator the dispatcher and channel
// adapters run against. Implementations must provide atomic single-record
// reads and writes; the callers perform at most one read-then-write
// sequence per mutating action and rely on nothing stronger.
//
// Lookup misses return ErrNotFound. List enumeration order is part of the
// contract: ActiveHabits and AllHabits enumerate in creation order, and
// RecentTasks returns newest-first.
type Store interface {
	User(ctx context.Context, id string) (*User, error)
	UserByChannelID(ctx context.Context, channel string, senderID string) (*User, error)
	PutUser(ctx context.Context, user *User) error

	CurrentGoals(ctx context.Context, userID string, now time.Time) ([]*Goal, error)

	RecentTasks(ctx context.Context, userID string) ([]*Task, error)
	CountTasksDoneSince(ctx context.Context, userID string, since time.Time) (int, error)
	CreateTask(ctx context.Context, userID string, title string) (*Task, error)

	ActiveHabits(ctx context.Context, userID string) ([]*Habit, error)
	AllHabits(ctx context.Context, userID string) ([]*Habit, error)
	CreateHabit(ctx context.Context, userID string, name string) (*Habit, error)
	HabitDays(ctx context.Context, habitIDs []string, day string) ([]*HabitDay, error)
	MarkHabitDone(ctx context.Context, habitID string, day string) (*HabitDay, error)
	CommitHabit(ctx context.Context, habitID string, day string) (*HabitDay, error)
}
