package core

import (
	"regexp"
	"strings"
)

// Separators tried by the delimiter strategy, highest priority first.
var entrySeparators = []string{"—", ";", "-"}

var (
	amountToken      = regexp.MustCompile(`\d+[.,]?\d*`)
	fallbackSplitter = regexp.MustCompile(`[;,\-—]`)
)

// ExtractEntry turns an utterance such as "João — troca de óleo — 120" into a
// client, item and amount.
//
// The delimiter strategy runs first; when it does not produce a complete
// entry the numeric-token heuristic is tried. A false result means the text
// could not be understood and is not an error.
func ExtractEntry(utterance string) (ParsedEntry, bool) {
	if p, ok := extractByDelimiter(utterance); ok {
		return p, true
	}
	return extractByAmountToken(utterance)
}

func extractByDelimiter(text string) (ParsedEntry, bool) {
	sep := ""
	for _, candidate := range entrySeparators {
		if strings.Contains(text, candidate) {
			sep = candidate
			break
		}
	}
	if sep == "" {
		return ParsedEntry{}, false
	}

	parts := strings.Split(text, sep)
	if len(parts) < 3 {
		return ParsedEntry{}, false
	}

	client := strings.TrimSpace(parts[0])
	item := strings.TrimSpace(strings.Join(parts[1:len(parts)-1], sep))
	cents, ok := NormalizeAmount(strings.TrimSpace(parts[len(parts)-1]))
	if client == "" || item == "" || !ok {
		return ParsedEntry{}, false
	}

	return ParsedEntry{Client: client, Item: item, AmountCents: cents}, true
}

func extractByAmountToken(text string) (ParsedEntry, bool) {
	loc := amountToken.FindStringIndex(text)
	if loc == nil {
		return ParsedEntry{}, false
	}

	cents, ok := NormalizeAmount(text[loc[0]:loc[1]])
	if !ok {
		return ParsedEntry{}, false
	}

	rest := text[:loc[0]] + text[loc[1]:]
	var segments []string
	for _, s := range fallbackSplitter.Split(rest, -1) {
		if s = strings.TrimSpace(s); s != "" {
			segments = append(segments, s)
		}
	}
	// "Carlos revisão 80" carries no punctuation at all; fall back to words.
	if len(segments) == 1 {
		segments = strings.Fields(segments[0])
	}
	if len(segments) < 2 {
		return ParsedEntry{}, false
	}

	return ParsedEntry{
		Client:      segments[0],
		Item:        strings.Join(segments[1:], " "),
		AmountCents: cents,
	}, true
}
