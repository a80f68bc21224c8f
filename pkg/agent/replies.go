package agent

// Fixed reply pools. One phrase is chosen uniformly at random per use;
// the selection source is injectable so tests can pin the choice.

var complyBanter = []string{
	"Sure",
	"No problem",
	"Of course",
	"Absolutely",
}

var habitDoneReplies = []string{
	"Great work!",
	"Nice job!",
	"Way to go!",
	"Keep it up!",
}

var habitCommitReplies = []string{
	"Good luck!",
	"You've got this.",
	"Don't forget!",
	"I'll hold you to it.",
}

// HelpText is the top-level capability summary.
const HelpText = "With the Flow agent, you can setup and review goals, top tasks each day, and habits to build. You can also set up daily journals to track anything you want."

const (
	helpGoalsText    = "You can set and review monthly and annual goals. Try saying 'set goals' or 'view goals'"
	helpTasksText    = "You can set and track top tasks each day. Try saying 'add task finish report' or 'my tasks'"
	helpHabitsText   = "You can set habits to build, and track completion. Try saying 'new habit', 'habit progress', or 'commit to run tonight'"
	helpJournalsText = "You can set up daily questions to track anything you want over time. Try saying 'daily report'"
)

func (d *Dispatcher) pickFrom(pool []string) string {
	return pool[d.intn(len(pool))]
}
