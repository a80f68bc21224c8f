package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"flowbot/pkg/model"
)

// ErrUnresolvedUser reports a dispatch attempt without a resolved user.
// Adapters are expected to substitute LinkAccountResult instead of
// invoking Dispatch, so seeing this error means an adapter bug.
var ErrUnresolvedUser = errors.New("dispatch requires a resolved user")

const (
	linkAccountText = "To get started, please link your account with Flow"
	disconnectText  = "Alright, you're disconnected."
)

// UserContext carries the identity state of one inbound event: the
// resolved user record (nil when unresolved), the channel it arrived on,
// the platform sender identity, and the user's local time. It is built
// once per event and never mutated afterwards.
type UserContext struct {
	User      *model.User
	Channel   string
	SenderID  string
	LocalTime time.Time
}

// Resolved reports whether a user record was found for the event.
func (uc UserContext) Resolved() bool {
	return uc.User != nil
}

// JournalWindow bounds the hours during which journal submission is open.
type JournalWindow struct {
	StartHour int
	EndHour   int
}

// Options configures a Dispatcher. Store and LinkBaseURL are required;
// construction fails without them rather than falling back to defaults.
type Options struct {
	Store       model.Store
	Logger      *slog.Logger
	Rand        *rand.Rand
	LinkBaseURL string
	Journal     JournalWindow
}

type handlerFunc func(ctx context.Context, uc UserContext, params Params) (ActionResult, error)

// Dispatcher maps resolved actions to their handlers. The handler table
// is built once at construction and checked for full coverage of the
// action enumeration, so a missing handler is a startup error instead of
// silent fallthrough.
type Dispatcher struct {
	store       model.Store
	log         *slog.Logger
	intn        func(n int) int
	linkBaseURL string
	journal     JournalWindow
	handlers    map[Action]handlerFunc
}

// NewDispatcher validates options and builds the handler table.
func NewDispatcher(opts Options) (*Dispatcher, error) {
	if opts.Store == nil {
		return nil, errors.New("store is required")
	}
	linkBaseURL := strings.TrimRight(strings.TrimSpace(opts.LinkBaseURL), "/")
	if linkBaseURL == "" {
		return nil, errors.New("link base URL is required")
	}

	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	intn := rand.IntN
	if opts.Rand != nil {
		intn = opts.Rand.IntN
	}

	journal := opts.Journal
	if journal.StartHour == 0 && journal.EndHour == 0 {
		journal = JournalWindow{StartHour: 21, EndHour: 4}
	}

	d := &Dispatcher{
		store:       opts.Store,
		log:         log.With("component", "agent.dispatcher"),
		intn:        intn,
		linkBaseURL: linkBaseURL,
		journal:     journal,
	}

	d.handlers = map[Action]handlerFunc{
		ActionGoalsRequest:  d.goalsRequest,
		ActionStatusRequest: d.statusRequest,
		ActionHelpTasks:     d.helpTasks,
		ActionHelpHabits:    d.helpHabits,
		ActionHelpJournals:  d.helpJournals,
		ActionHelpGoals:     d.helpGoals,
		ActionHabitReport:   d.habitReport,
		ActionHabitAdd:      d.habitAdd,
		ActionHabitCommit:   d.habitCommit,
		ActionHabitStatus:   d.habitStatus,
		ActionTaskAdd:       d.taskAdd,
		ActionTaskView:      d.taskView,
		ActionHelp:          d.help,
		ActionJournal:       d.journalRequest,
		ActionDisconnect:    d.disconnect,
		ActionGetStarted:    d.getStarted,
	}

	for _, action := range Actions() {
		if _, ok := d.handlers[action]; !ok {
			return nil, fmt.Errorf("no handler registered for action %q", action)
		}
	}

	return d, nil
}

// Dispatch runs the handler for one resolved action. An identifier
// outside the enumeration yields an empty result: intentional silence,
// not an error.
func (d *Dispatcher) Dispatch(ctx context.Context, action Action, params Params, uc UserContext) (ActionResult, error) {
	handler, ok := d.handlers[action]
	if !ok {
		d.log.Debug("Ignoring unrecognized action", "action", string(action), "channel", uc.Channel)
		return ActionResult{}, nil
	}
	if !uc.Resolved() {
		return ActionResult{}, ErrUnresolvedUser
	}

	return handler(ctx, uc, params)
}

// LinkAccountResult is the fixed reply for events without a resolvable
// user. Channels with rich payloads render the prompt as a linking
// button; others send the text.
func (d *Dispatcher) LinkAccountResult(channel string) ActionResult {
	platform := channel
	if channel == "messenger" {
		platform = "fbook"
	}

	return ActionResult{
		LinkPrompt: &LinkPrompt{
			Text: linkAccountText,
			URL:  fmt.Sprintf("%s/app/%s/auth", d.linkBaseURL, platform),
		},
	}
}

func (d *Dispatcher) goalsRequest(ctx context.Context, uc UserContext, _ Params) (ActionResult, error) {
	goals, err := d.store.CurrentGoals(ctx, uc.User.ID, uc.LocalTime)
	if err != nil {
		return ActionResult{}, fmt.Errorf("query goals: %w", err)
	}
	if len(goals) == 0 {
		return ActionResult{}, nil
	}

	goal := goals[0]
	if len(goal.Texts) == 0 {
		return ActionResult{Speech: "No goals yet"}, nil
	}

	var sb strings.Builder
	if goal.Annual {
		fmt.Fprintf(&sb, "Goals for %d.", goal.Date.Year())
	} else {
		fmt.Fprintf(&sb, "Goals for %s.", goal.Date.Format("January 2006"))
	}
	for i, text := range goal.Texts {
		fmt.Fprintf(&sb, " %d: %s.", i+1, text)
	}

	return ActionResult{Speech: sb.String()}, nil
}

// taskSummary composes the daily task report used by both the task view
// and the combined status reply. Undone tasks are listed in the order of
// the store's recent-tasks query.
func (d *Dispatcher) taskSummary(ctx context.Context, uc UserContext) (string, error) {
	tasks, err := d.store.RecentTasks(ctx, uc.User.ID)
	if err != nil {
		return "", fmt.Errorf("query tasks: %w", err)
	}

	lt := uc.LocalTime
	midnight := time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, lt.Location())
	done, err := d.store.CountTasksDoneSince(ctx, uc.User.ID, midnight)
	if err != nil {
		return "", fmt.Errorf("count completed tasks: %w", err)
	}

	var undone []string
	for _, task := range tasks {
		if !task.Done {
			undone = append(undone, task.Title)
		}
	}

	text := fmt.Sprintf("You've completed %s for today.", countNoun(done, "task"))
	if len(undone) > 0 {
		text += fmt.Sprintf(" You still need to do '%s'.", joinAnd(undone))
	}

	return text, nil
}

func (d *Dispatcher) taskView(ctx context.Context, uc UserContext, _ Params) (ActionResult, error) {
	text, err := d.taskSummary(ctx, uc)
	if err != nil {
		return ActionResult{}, err
	}

	return ActionResult{Speech: text}, nil
}

// habitSummary aggregates today's per-habit day records: habits done, and
// habits committed to but not yet done.
func (d *Dispatcher) habitSummary(ctx context.Context, uc UserContext) (string, error) {
	habits, err := d.store.AllHabits(ctx, uc.User.ID)
	if err != nil {
		return "", fmt.Errorf("query habits: %w", err)
	}

	names := make(map[string]string, len(habits))
	ids := make([]string, 0, len(habits))
	for _, habit := range habits {
		names[habit.ID] = habit.Name
		ids = append(ids, habit.ID)
	}

	days, err := d.store.HabitDays(ctx, ids, model.Day(uc.LocalTime))
	if err != nil {
		return "", fmt.Errorf("query habit days: %w", err)
	}

	var habitsDone, committedUndone []string
	for _, day := range days {
		name := names[day.HabitID]
		if name == "" {
			continue
		}
		if day.Done {
			habitsDone = append(habitsDone, name)
		} else if day.Committed {
			committedUndone = append(committedUndone, name)
		}
	}

	text := "No habits done yet."
	if len(habitsDone) > 0 {
		text = fmt.Sprintf("Good work on doing %s (%s)!", countNoun(len(habitsDone), "habit"), joinAnd(habitsDone))
	}
	if len(committedUndone) > 0 {
		text += fmt.Sprintf(" Don't forget you've committed to %s.", joinAnd(committedUndone))
	}

	return text, nil
}

func (d *Dispatcher) habitStatus(ctx context.Context, uc UserContext, _ Params) (ActionResult, error) {
	text, err := d.habitSummary(ctx, uc)
	if err != nil {
		return ActionResult{}, err
	}

	return ActionResult{Speech: text}, nil
}

func (d *Dispatcher) statusRequest(ctx context.Context, uc UserContext, _ Params) (ActionResult, error) {
	var address string
	if name := uc.User.FirstName(); name != "" {
		address = fmt.Sprintf("Alright %s.", name)
	}

	taskText, err := d.taskSummary(ctx, uc)
	if err != nil {
		return ActionResult{}, err
	}
	habitText, err := d.habitSummary(ctx, uc)
	if err != nil {
		return ActionResult{}, err
	}

	return ActionResult{Speech: joinSpeech(address, taskText, habitText)}, nil
}

// resolveHabit matches a free-text fragment against the user's active
// habits by case-insensitive substring containment. The first habit
// containing the fragment wins; there is no fuzzy scoring. A nil result
// with nil error means nothing matched.
func (d *Dispatcher) resolveHabit(ctx context.Context, uc UserContext, fragment string) (*model.Habit, error) {
	habits, err := d.store.ActiveHabits(ctx, uc.User.ID)
	if err != nil {
		return nil, fmt.Errorf("query active habits: %w", err)
	}

	needle := strings.ToLower(fragment)
	for _, habit := range habits {
		if strings.Contains(strings.ToLower(habit.Name), needle) {
			return habit, nil
		}
	}

	return nil, nil
}

func (d *Dispatcher) habitReport(ctx context.Context, uc UserContext, params Params) (ActionResult, error) {
	fragment := strings.TrimSpace(params.Get("habit"))
	if fragment == "" {
		return ActionResult{Speech: "I couldn't tell what habit you completed."}, nil
	}

	habit, err := d.resolveHabit(ctx, uc, fragment)
	if err != nil {
		return ActionResult{}, err
	}
	if habit == nil {
		return ActionResult{Speech: fmt.Sprintf("I'm not sure what you mean by '%s'.", fragment)}, nil
	}

	if _, err := d.store.MarkHabitDone(ctx, habit.ID, model.Day(uc.LocalTime)); err != nil {
		return ActionResult{}, fmt.Errorf("mark habit done: %w", err)
	}

	return ActionResult{Speech: fmt.Sprintf("%s '%s' is marked as complete.", d.pickFrom(habitDoneReplies), habit.Name)}, nil
}

func (d *Dispatcher) habitCommit(ctx context.Context, uc UserContext, params Params) (ActionResult, error) {
	fragment := strings.TrimSpace(params.Get("habit"))
	if fragment == "" {
		return ActionResult{Speech: "I couldn't tell what habit you want to commit to."}, nil
	}

	habit, err := d.resolveHabit(ctx, uc, fragment)
	if err != nil {
		return ActionResult{}, err
	}
	if habit == nil {
		return ActionResult{Speech: fmt.Sprintf("I'm not sure what you mean by '%s'. You may need to create a habit before you can commit to it.", fragment)}, nil
	}

	if _, err := d.store.CommitHabit(ctx, habit.ID, model.Day(uc.LocalTime)); err != nil {
		return ActionResult{}, fmt.Errorf("commit habit: %w", err)
	}

	return ActionResult{Speech: fmt.Sprintf("You've committed to '%s' today. %s", habit.Name, d.pickFrom(habitCommitReplies))}, nil
}

func (d *Dispatcher) habitAdd(ctx context.Context, uc UserContext, params Params) (ActionResult, error) {
	name := strings.TrimSpace(params.Get("habit"))
	if name == "" {
		return ActionResult{Speech: "I couldn't tell what habit to add."}, nil
	}

	if _, err := d.store.CreateHabit(ctx, uc.User.ID, name); err != nil {
		return ActionResult{}, fmt.Errorf("create habit: %w", err)
	}

	return ActionResult{Speech: fmt.Sprintf("%s. Habit '%s' added.", d.pickFrom(complyBanter), name)}, nil
}

func (d *Dispatcher) taskAdd(ctx context.Context, uc UserContext, params Params) (ActionResult, error) {
	title := strings.TrimSpace(params.Get("task_name"))
	if title == "" {
		return ActionResult{Speech: "I couldn't tell what task to add."}, nil
	}

	if _, err := d.store.CreateTask(ctx, uc.User.ID, title); err != nil {
		return ActionResult{}, fmt.Errorf("create task: %w", err)
	}

	return ActionResult{Speech: d.pickFrom(complyBanter) + ". Task added."}, nil
}

func (d *Dispatcher) journalRequest(_ context.Context, uc UserContext, _ Params) (ActionResult, error) {
	hour := uc.LocalTime.Hour()
	// TODO: with StartHour <= EndHour this disjunction is always true and
	// the else branch is unreachable; confirm whether a wraparound AND was
	// intended before changing it.
	inWindow := hour >= d.journal.StartHour || hour < d.journal.EndHour
	if inWindow {
		return ActionResult{Speech: fmt.Sprintf("Please visit %s to submit today's journal", d.linkBaseURL)}, nil
	}

	questions := uc.User.JournalQuestions()
	if len(questions) == 0 {
		return ActionResult{Speech: fmt.Sprintf("Please visit %s to set up journal questions", d.linkBaseURL)}, nil
	}

	texts := make([]string, 0, len(questions))
	for _, question := range questions {
		texts = append(texts, question.Text)
	}

	speech := fmt.Sprintf("You have %s setup: %s. You can submit your report after %d:00",
		countNoun(len(questions), "journal question"), joinAnd(texts), d.journal.StartHour)
	return ActionResult{Speech: speech}, nil
}

func (d *Dispatcher) disconnect(ctx context.Context, uc UserContext, _ Params) (ActionResult, error) {
	uc.User.ClearChannelID(uc.Channel)
	if err := d.store.PutUser(ctx, uc.User); err != nil {
		return ActionResult{}, fmt.Errorf("persist disconnect: %w", err)
	}

	return ActionResult{Speech: disconnectText}, nil
}

func (d *Dispatcher) helpGoals(context.Context, UserContext, Params) (ActionResult, error) {
	return ActionResult{
		Speech:       d.pickFrom(complyBanter) + ". " + helpGoalsText,
		QuickReplies: BuildQuickReplies(QuickReply{Title: "Learn about Tasks", Payload: ActionHelpTasks}),
	}, nil
}

func (d *Dispatcher) helpTasks(context.Context, UserContext, Params) (ActionResult, error) {
	return ActionResult{
		Speech:       d.pickFrom(complyBanter) + ". " + helpTasksText,
		QuickReplies: BuildQuickReplies(QuickReply{Title: "Learn about Habits", Payload: ActionHelpHabits}),
	}, nil
}

func (d *Dispatcher) helpHabits(context.Context, UserContext, Params) (ActionResult, error) {
	return ActionResult{
		Speech:       d.pickFrom(complyBanter) + ". " + helpHabitsText,
		QuickReplies: BuildQuickReplies(QuickReply{Title: "Learn about Journals", Payload: ActionHelpJournals}),
	}, nil
}

func (d *Dispatcher) helpJournals(context.Context, UserContext, Params) (ActionResult, error) {
	return ActionResult{Speech: d.pickFrom(complyBanter) + ". " + helpJournalsText}, nil
}

func (d *Dispatcher) help(context.Context, UserContext, Params) (ActionResult, error) {
	return ActionResult{
		Speech:       HelpText,
		QuickReplies: BuildQuickReplies(QuickReply{Title: "Learn about Goals", Payload: ActionHelpGoals}),
	}, nil
}

func (d *Dispatcher) getStarted(context.Context, UserContext, Params) (ActionResult, error) {
	return ActionResult{
		Speech:       "Welcome to Flow! " + HelpText,
		QuickReplies: BuildQuickReplies(QuickReply{Title: "Learn about Goals", Payload: ActionHelpGoals}),
	}, nil
}
