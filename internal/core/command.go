package core

import (
	"regexp"
	"strings"
)

const (
	CommandEntry CommandKind = iota
	CommandHelp
	CommandHistory
)

type (
	CommandKind int

	// Command is the classification of an inbound text body.
	// Filter is set for CommandHistory, Text for CommandEntry.
	Command struct {
		Kind   CommandKind
		Filter string
		Text   string
	}
)

var (
	helpPattern    = regexp.MustCompile(`(?i)^ajuda$`)
	historyPattern = regexp.MustCompile(`(?i)^hist`)
	historyPrefix  = regexp.MustCompile(`(?i)^hist(órico)?`)
)

func (k CommandKind) String() string {
	switch k {
	case CommandHelp:
		return "help"
	case CommandHistory:
		return "history"
	default:
		return "entry"
	}
}

// Classify decides what an inbound text body asks for. Help wins over
// history, and anything else is treated as a candidate ledger entry.
func Classify(body string) Command {
	body = strings.TrimSpace(body)

	switch {
	case helpPattern.MatchString(body):
		return Command{Kind: CommandHelp}
	case historyPattern.MatchString(body):
		filter := strings.TrimSpace(historyPrefix.ReplaceAllString(body, ""))
		return Command{Kind: CommandHistory, Filter: filter}
	default:
		return Command{Kind: CommandEntry, Text: body}
	}
}
