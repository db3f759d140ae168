// package formatter renders session audit events for the CLI (table, plain text, CSV, JSON)
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/desertthunder/musicman/internal/models"
)

const timeLayout = time.RFC3339

// eventRecord is the JSON shape of a [models.SessionEvent].
type eventRecord struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Kind      string    `json:"kind"`
	Detail    string    `json:"detail,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// ExportToCSV converts events to CSV with columns: ID, Time, User, Kind, Detail
func ExportToCSV(events []*models.SessionEvent) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write([]string{"ID", "Time", "User", "Kind", "Detail"}); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, e := range events {
		record := []string{e.ID(), e.CreatedAt().Format(timeLayout), e.UserID(), e.Kind(), e.Detail()}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToJSON converts events to an indented JSON array. An empty slice encodes as [].
func ExportToJSON(events []*models.SessionEvent) ([]byte, error) {
	records := make([]eventRecord, 0, len(events))
	for _, e := range events {
		records = append(records, eventRecord{
			ID:        e.ID(),
			UserID:    e.UserID(),
			Kind:      e.Kind(),
			Detail:    e.Detail(),
			CreatedAt: e.CreatedAt(),
		})
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal events: %w", err)
	}
	return append(data, '\n'), nil
}

// ExportToText converts events to one plain line each
func ExportToText(events []*models.SessionEvent) []byte {
	var buf bytes.Buffer

	for _, e := range events {
		fmt.Fprintf(&buf, "%s  %-18s %s", e.CreatedAt().Format(timeLayout), e.Kind(), e.UserID())
		if e.Detail() != "" {
			fmt.Fprintf(&buf, "  %s", e.Detail())
		}
		buf.WriteByte('\n')
	}

	return buf.Bytes()
}

// Format names an output format accepted by [Write].
type Format string

const (
	FormatTable Format = "table"
	FormatText  Format = "text"
	FormatCSV   Format = "csv"
	FormatJSON  Format = "json"
)

// Write renders events to w in the given format.
func Write(w io.Writer, events []*models.SessionEvent, format Format) error {
	var (
		data []byte
		err  error
	)

	switch format {
	case FormatTable, "":
		data = []byte(RenderTable(events) + "\n")
	case FormatText:
		data = ExportToText(events)
	case FormatCSV:
		data, err = ExportToCSV(events)
	case FormatJSON:
		data, err = ExportToJSON(events)
	default:
		return fmt.Errorf("unknown format %q", format)
	}
	if err != nil {
		return err
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
