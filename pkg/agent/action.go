package agent

// Action is a stable identifier naming one unit of dispatcher behavior.
// Postback payloads carry these values literally.
type Action string

const (
	ActionGoalsRequest  Action = "input.goals_request"
	ActionStatusRequest Action = "input.status_request"
	ActionHelpTasks     Action = "input.help_tasks"
	ActionHelpHabits    Action = "input.help_habits"
	ActionHelpJournals  Action = "input.help_journals"
	ActionHelpGoals     Action = "input.help_goals"
	ActionHabitReport   Action = "input.habit_report"
	ActionHabitAdd      Action = "input.habit_add"
	ActionHabitCommit   Action = "input.habit_commit"
	ActionHabitStatus   Action = "input.habit_status"
	ActionTaskAdd       Action = "input.task_add"
	ActionTaskView      Action = "input.task_view"
	ActionHelp          Action = "input.help"
	ActionJournal       Action = "input.journal"
	ActionDisconnect    Action = "input.disconnect"
	ActionGetStarted    Action = "GET_STARTED"
)

// Actions lists every dispatchable action. Dispatcher construction checks
// that each one has a handler, so an action added here without a handler
// fails at startup instead of falling through silently.
func Actions() []Action {
	return []Action{
		ActionGoalsRequest,
		ActionStatusRequest,
		ActionHelpTasks,
		ActionHelpHabits,
		ActionHelpJournals,
		ActionHelpGoals,
		ActionHabitReport,
		ActionHabitAdd,
		ActionHabitCommit,
		ActionHabitStatus,
		ActionTaskAdd,
		ActionTaskView,
		ActionHelp,
		ActionJournal,
		ActionDisconnect,
		ActionGetStarted,
	}
}

// Params carries named values captured by the intent matcher.
type Params map[string]string

// Get returns the named parameter or an empty string.
func (p Params) Get(name string) string {
	if p == nil {
		return ""
	}

	return p[name]
}
