package agent

import "testing"

func TestPluralize(t *testing.T) {
	if got := pluralize("task", 1); got != "task" {
		t.Fatalf("pluralize(task, 1) = %q", got)
	}
	if got := pluralize("task", 0); got != "tasks" {
		t.Fatalf("pluralize(task, 0) = %q", got)
	}
	if got := pluralize("habit", 3); got != "habits" {
		t.Fatalf("pluralize(habit, 3) = %q", got)
	}
}

func TestJoinAnd(t *testing.T) {
	if got := joinAnd([]string{"a"}); got != "a" {
		t.Fatalf("joinAnd single = %q", got)
	}
	if got := joinAnd([]string{"a", "b", "c"}); got != "a and b and c" {
		t.Fatalf("joinAnd triple = %q", got)
	}
}

func TestJoinSpeech(t *testing.T) {
	if got := joinSpeech("", "hello", " ", "world"); got != "hello world" {
		t.Fatalf("joinSpeech = %q", got)
	}
}

func TestCountNoun(t *testing.T) {
	if got := countNoun(1, "habit"); got != "1 habit" {
		t.Fatalf("countNoun = %q", got)
	}
	if got := countNoun(2, "habit"); got != "2 habits" {
		t.Fatalf("countNoun = %q", got)
	}
}
