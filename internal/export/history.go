// Package export renders a tenant's ledger history for the admin tool.
package export

import (
	"fmt"
	"io"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"autonomos/internal/core"
	"autonomos/internal/services"
)

const (
	FormatText = "text"
	FormatCSV  = "csv"
	FormatYAML = "yaml"
)

// Formats lists the accepted --format values.
var Formats = []string{FormatText, FormatCSV, FormatYAML}

// Row is one history line in machine-readable form.
type Row struct {
	EntryID     int64  `csv:"entry_id" yaml:"entry_id"`
	Date        string `csv:"date" yaml:"date"`
	Client      string `csv:"client" yaml:"client"`
	Item        string `csv:"item" yaml:"item"`
	AmountCents int64  `csv:"amount_cents" yaml:"amount_cents"`
	Amount      string `csv:"amount" yaml:"amount"`
	Source      string `csv:"source" yaml:"source"`
}

// Rows converts history rows, rendering dates in loc.
func Rows(history []core.HistoryRow, loc *time.Location) []Row {
	out := make([]Row, 0, len(history))
	for _, h := range history {
		out = append(out, Row{
			EntryID:     h.EntryID,
			Date:        h.Date.In(loc).Format(time.RFC3339),
			Client:      h.Client,
			Item:        h.Item,
			AmountCents: h.AmountCents,
			Amount:      decimal.New(h.AmountCents, -2).StringFixed(2),
			Source:      string(h.Source),
		})
	}
	return out
}

// Write renders history to w in the given format.
func Write(w io.Writer, format string, history []core.HistoryRow, loc *time.Location) error {
	switch format {
	case FormatText, "":
		_, err := fmt.Fprintln(w, services.FormatHistory(history, loc))
		return err
	case FormatCSV:
		rows := Rows(history, loc)
		if err := gocsv.Marshal(&rows, w); err != nil {
			return fmt.Errorf("write csv: %w", err)
		}
		return nil
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(Rows(history, loc)); err != nil {
			return fmt.Errorf("write yaml: %w", err)
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown format %q: must be one of %v", format, Formats)
	}
}
