package command

import (
	"errors"
	"testing"
	"time"
)

func TestParse(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		in   string
		want Command
	}{
		{name: "start", in: "/start", want: Start{}},
		{name: "help", in: "/help", want: Help{}},
		{name: "remember", in: "/remember 10 Call mom", want: Remember{DelayMinutes: 10, Text: "Call mom"}},
		{name: "remind alias", in: "/remind 0 Get up", want: Remember{DelayMinutes: 0, Text: "Get up"}},
		{name: "bot suffix", in: "/remember@reminder_bot 5 stretch", want: Remember{DelayMinutes: 5, Text: "stretch"}},
		{name: "keeps inner spacing", in: "/remember 1 buy\n  milk", want: Remember{DelayMinutes: 1, Text: "buy\n  milk"}},
		{name: "recall", in: "/recall", want: Recall{}},
		{name: "list alias", in: "  /LIST  ", want: Recall{}},
		{name: "plain text", in: "hello there", want: Unknown{Text: "hello there"}},
		{name: "unknown command", in: "/weather", want: Unknown{Text: "/weather"}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := Parser{}.Parse(tt.in)
			if err != nil {
				t.Fatalf("Parse(%q) error: %v", tt.in, err)
			}
			if got != tt.want {
				t.Fatalf("Parse(%q) = %#v, want %#v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseRememberInvalid(t *testing.T) {
	t.Parallel()
	tests := []string{
		"/remember",
		"/remember abc hello",
		"/remember 10",
		"/remember -5 past",
		"/remember 1.5 half",
		"/remember 99999999 later",
	}
	for _, in := range tests {
		in := in
		t.Run(in, func(t *testing.T) {
			t.Parallel()
			cmd, err := Parser{}.Parse(in)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Parse(%q) = %#v, %v; want *ValidationError", in, cmd, err)
			}
			if cmd != nil {
				t.Fatalf("Parse(%q) returned command %#v with error", in, cmd)
			}
		})
	}
}

func TestParseDefaultDelay(t *testing.T) {
	t.Parallel()
	p := Parser{DefaultDelay: 15 * time.Minute}

	got, err := p.Parse("/remember water the plants")
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	want := Remember{DelayMinutes: 15, Text: "water the plants"}
	if got != want {
		t.Fatalf("Parse = %#v, want %#v", got, want)
	}

	// An explicit delay still wins.
	got, err = p.Parse("/remember 3 tea")
	if err != nil || got != (Remember{DelayMinutes: 3, Text: "tea"}) {
		t.Fatalf("Parse = %#v, %v", got, err)
	}

	if _, err := p.Parse("/remember"); err == nil {
		t.Fatal("expected error for missing text with default delay")
	}
}

func TestParseDefaultDelayRoundsUpPartialMinutes(t *testing.T) {
	t.Parallel()
	p := Parser{DefaultDelay: 30 * time.Second}

	got, err := p.Parse("/remember stretch")
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if want := (Remember{DelayMinutes: 1, Text: "stretch"}); got != want {
		t.Fatalf("Parse = %#v, want %#v", got, want)
	}
}

func TestRememberDueTime(t *testing.T) {
	t.Parallel()
	now := time.Date(2024, 12, 2, 12, 0, 0, 0, time.UTC)
	if got := (Remember{DelayMinutes: 10}).DueTime(now); !got.Equal(now.Add(10 * time.Minute)) {
		t.Fatalf("DueTime = %v", got)
	}
	if got := (Remember{}).DueTime(now); !got.Equal(now) {
		t.Fatalf("DueTime with zero delay = %v, want now", got)
	}
}
