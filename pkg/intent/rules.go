package intent

import "flowbot/pkg/agent"

// DefaultRules is the built-in rule table. Order is priority: broader
// patterns near the top would shadow narrower ones below them, so habit
// completion phrasing sits above habit creation, and the bare "help"
// anchors sit below the specific help topics.
func DefaultRules() []Rule {
	return []Rule{
		{`(?:what are my|remind me my|tell me my|monthly|current|my|view) goals`, agent.ActionGoalsRequest},
		{`(how am i doing|my status|tell me about my day)`, agent.ActionStatusRequest},
		{`(?:how do|tell me about|more info|learn about|help on) (?:tasks)`, agent.ActionHelpTasks},
		{`(?:how do|tell me about|more info|learn about|help on) (?:habits)`, agent.ActionHelpHabits},
		{`(?:how do|tell me about|more info|learn about|help on) (?:journals|journaling|daily journals)`, agent.ActionHelpJournals},
		{`(?:how do|tell me about|more info|learn about|help on) (?:goals|monthly goals|goal tracking)`, agent.ActionHelpGoals},
		{`(?:mark|set) [HABIT_PATTERN] as (?:done|complete|finished)`, agent.ActionHabitReport},
		{`(?:add habit|new habit|create habit) [HABIT_PATTERN]`, agent.ActionHabitAdd},
		{`(?:i finished|completed) [HABIT_PATTERN]`, agent.ActionHabitReport},
		{`(?:commit to|promise to|i will|planning to|going to) [HABIT_PATTERN] (?:today|tonight|this evening|later)`, agent.ActionHabitCommit},
		{`(?:my habits|habit progress|habits today)`, agent.ActionHabitStatus},
		{`(?:add task|set task|new task) [TASK_PATTERN]`, agent.ActionTaskAdd},
		{`(?:my tasks|view tasks)`, agent.ActionTaskView},
		{`(?:help me|how does this work|what can i do|what can i say)`, agent.ActionHelp},
		{`^(help|\?\?\?$)`, agent.ActionHelp},
		{`(?:daily report|daily journal)`, agent.ActionJournal},
		{`^disconnect$`, agent.ActionDisconnect},
	}
}

// DefaultMatcher compiles the built-in rule table. The table is static,
// so a compile error here is a programming mistake; callers treat it as a
// startup failure.
func DefaultMatcher() (*Matcher, error) {
	return NewMatcher(DefaultRules())
}
