package core

import (
	"errors"
	"strings"
	"time"
)

const (
	SourceText  Source = "text"
	SourceAudio Source = "audio"
)

// EntryDateLayout is the ISO-8601 UTC layout entries are stamped with.
// Fixed-width so that lexical order equals chronological order.
const EntryDateLayout = "2006-01-02T15:04:05.000Z"

type (
	// Source identifies the channel an entry arrived through.
	Source string

	Client struct {
		ID         int64
		Name       string
		OwnerPhone string
	}

	Entry struct {
		ID          int64
		ClientID    int64
		Item        string
		AmountCents int64
		Date        time.Time
		Notes       string
		Source      Source
	}

	// HistoryRow is an entry joined with its client's display name.
	HistoryRow struct {
		EntryID     int64
		Client      string
		Item        string
		AmountCents int64
		Date        time.Time
		Source      Source
	}

	// ParsedEntry is the outcome of a successful extraction.
	ParsedEntry struct {
		Client      string
		Item        string
		AmountCents int64
	}
)

var (
	ErrEmptyTenant   = errors.New("empty tenant phone")
	ErrEmptyClient   = errors.New("empty client name")
	ErrEmptyItem     = errors.New("empty item")
	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidSource = errors.New("invalid source")
)

func (s Source) IsValid() bool {
	switch s {
	case SourceText, SourceAudio:
		return true
	default:
		return false
	}
}

func (s Source) String() string {
	return string(s)
}

// Validate checks the invariants every stored entry must hold.
func (p ParsedEntry) Validate() error {
	if strings.TrimSpace(p.Client) == "" {
		return ErrEmptyClient
	}
	if strings.TrimSpace(p.Item) == "" {
		return ErrEmptyItem
	}
	if p.AmountCents < 0 {
		return ErrInvalidAmount
	}
	return nil
}

// FormatDate renders an entry timestamp the way it is persisted.
func FormatDate(t time.Time) string {
	return t.UTC().Format(EntryDateLayout)
}

// ParseDate reads a persisted entry timestamp. RFC 3339 values are accepted
// as well so rows written by other tools still load.
func ParseDate(s string) (time.Time, error) {
	if t, err := time.Parse(EntryDateLayout, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}
