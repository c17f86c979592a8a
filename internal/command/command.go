// Package command turns raw chat text into bot commands.
package command

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// Command is one of Start, Remember, Recall, Help or Unknown.
type Command interface {
	isCommand()
}

type Start struct{}

// Remember asks for a reminder DelayMinutes from now.
type Remember struct {
	DelayMinutes int
	Text         string
}

type Recall struct{}

type Help struct{}

// Unknown is any text that is not a recognized command.
type Unknown struct {
	Text string
}

func (Start) isCommand()    {}
func (Remember) isCommand() {}
func (Recall) isCommand()   {}
func (Help) isCommand()     {}
func (Unknown) isCommand()  {}

// DueTime returns the instant the reminder becomes due.
func (r Remember) DueTime(now time.Time) time.Time {
	return now.Add(time.Duration(r.DelayMinutes) * time.Minute)
}

// MaxDelayMinutes caps delays at roughly ten years.
const MaxDelayMinutes = 10 * 365 * 24 * 60

const RememberUsage = "Usage: /remember <minutes> <text>\nExample: /remember 10 Call mom"

// ValidationError reports malformed command input.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid command: " + e.Reason
}

// Parser parses chat text. The zero value rejects /remember without a
// numeric delay.
type Parser struct {
	// DefaultDelay, when positive, is used for /remember input whose first
	// word is not a number; the whole argument then becomes the text.
	DefaultDelay time.Duration
}

// Parse maps text to a Command. Only /remember input can fail.
func (p Parser) Parse(text string) (Command, error) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return Unknown{Text: text}, nil
	}

	name, args := splitFirst(text)
	// Group chats address commands as /cmd@bot_name.
	if at := strings.IndexByte(name, '@'); at >= 0 {
		name = name[:at]
	}

	switch strings.ToLower(name) {
	case "/start":
		return Start{}, nil
	case "/help":
		return Help{}, nil
	case "/remember", "/remind":
		return p.parseRemember(args)
	case "/recall", "/list":
		return Recall{}, nil
	default:
		return Unknown{Text: text}, nil
	}
}

func (p Parser) parseRemember(args string) (Command, error) {
	if args == "" {
		return nil, &ValidationError{Reason: "missing delay and text"}
	}

	token, body := splitFirst(args)
	minutes, err := strconv.Atoi(token)
	if err != nil {
		if p.DefaultDelay <= 0 {
			return nil, &ValidationError{Reason: fmt.Sprintf("delay %q is not a whole number of minutes", token)}
		}
		// Partial minutes round up so a short default never fires at once.
		minutes = int((p.DefaultDelay + time.Minute - 1) / time.Minute)
		body = args
	}

	switch {
	case minutes < 0:
		return nil, &ValidationError{Reason: "delay must not be negative"}
	case minutes > MaxDelayMinutes:
		return nil, &ValidationError{Reason: "delay is too far in the future"}
	case body == "":
		return nil, &ValidationError{Reason: "missing reminder text"}
	}
	return Remember{DelayMinutes: minutes, Text: body}, nil
}

// splitFirst splits s into its first word and the trimmed remainder.
func splitFirst(s string) (string, string) {
	i := strings.IndexFunc(s, unicode.IsSpace)
	if i < 0 {
		return s, ""
	}
	return s[:i], strings.TrimSpace(s[i:])
}
