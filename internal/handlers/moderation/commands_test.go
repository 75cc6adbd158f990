package handlers

import (
	"strings"
	"testing"
	"time"
)

func TestCommandArgsHint(t *testing.T) {
	t.Parallel()
	for _, tc := range []struct {
		command string
		want    string
	}{
		{"warn", "[reason]"},
		{"ban", "[reason]"},
		{"mute", "[minutes] [reason]"},
		{"addpoints", "<points>"},
		{"setlevel", "<1-8>"},
		{"unmute", ""},
		{"getstats", ""},
	} {
		tc := tc
		t.Run(tc.command, func(t *testing.T) {
			t.Parallel()
			if got := commandArgsHint(tc.command); got != tc.want {
				t.Errorf("commandArgsHint(%q) = %q, want %q", tc.command, got, tc.want)
			}
		})
	}
}

func TestSplitMuteArgs(t *testing.T) {
	t.Parallel()
	fallback := time.Hour

	for _, tc := range []struct {
		name     string
		args     []string
		duration time.Duration
		rest     []string
	}{
		{"minutes and reason", []string{"30", "flooding"}, 30 * time.Minute, []string{"flooding"}},
		{"minutes only", []string{"15"}, 15 * time.Minute, nil},
		{"reason only", []string{"flooding", "again"}, time.Hour, []string{"flooding", "again"}},
		{"zero minutes treated as reason", []string{"0"}, time.Hour, []string{"0"}},
		{"negative treated as reason", []string{"-5"}, time.Hour, []string{"-5"}},
		{"empty", nil, time.Hour, nil},
	} {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			d, rest := splitMuteArgs(tc.args, fallback)
			if d != tc.duration {
				t.Errorf("duration = %s, want %s", d, tc.duration)
			}
			if len(rest) != len(tc.rest) {
				t.Fatalf("rest = %v, want %v", rest, tc.rest)
			}
			for i := range rest {
				if rest[i] != tc.rest[i] {
					t.Errorf("rest = %v, want %v", rest, tc.rest)
				}
			}
		})
	}
}

func TestStartTextDiffersByChatKind(t *testing.T) {
	t.Parallel()
	private := startText(true)
	group := startText(false)
	if private == group {
		t.Fatal("private and group greetings are identical")
	}
	if !strings.Contains(private, "Add me to a group") {
		t.Errorf("private greeting missing setup hint:\n%s", private)
	}
	if !strings.Contains(group, "/help") {
		t.Errorf("group greeting missing help pointer:\n%s", group)
	}
}

func TestHelpTextHidesAdminCommands(t *testing.T) {
	t.Parallel()
	base := helpText()
	for _, cmd := range []string{"/warn", "/mute", "/ban", "/setlevel"} {
		if strings.Contains(base, cmd) {
			t.Errorf("member help leaks admin command %s", cmd)
		}
	}
	admin := adminHelpText()
	for _, cmd := range []string{"/warn", "/unwarn", "/mute", "/unmute", "/ban", "/addpoints", "/setlevel", "/getstats"} {
		if !strings.Contains(admin, cmd) {
			t.Errorf("admin help missing %s", cmd)
		}
	}
}
