// Package export persists an enumeration result as an artifact. Export
// failures are reported to the caller but never invalidate the
// in-memory result.
package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/channelvisor/tg-members/pkg/telegram"
)

// notSet is written for absent optional attributes, matching what the
// spreadsheet consumers downstream already expect.
const notSet = "Not set"

// maxFilenameLength bounds generated filenames.
const maxFilenameLength = 50

// csvHeader is the exported column order.
var csvHeader = []string{
	"User ID",
	"Username",
	"First Name",
	"Last Name",
	"Phone",
	"Is Bot",
	"Verified",
	"Premium",
	"Access Hash",
}

// CSVExporter writes members to a CSV file in discovery order.
type CSVExporter struct {
	logger zerolog.Logger
}

// NewCSVExporter creates a CSV exporter.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{
		logger: log.With().Str("component", "csv-export").Logger(),
	}
}

// Export writes the member set to path. The label identifies the source
// channel in logs only; CSV has no room for metadata rows without
// breaking consumers.
func (e *CSVExporter) Export(path, label string, members []telegram.Member) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, m := range members {
		record := []string{
			fmt.Sprintf("%d", m.ID),
			orNotSet(m.Username),
			orNotSet(m.FirstName),
			orNotSet(m.LastName),
			orNotSet(m.Phone),
			fmt.Sprintf("%t", m.Bot),
			fmt.Sprintf("%t", m.Verified),
			fmt.Sprintf("%t", m.Premium),
			fmt.Sprintf("%d", m.AccessHash),
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("write member %d: %w", m.ID, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush export file: %w", err)
	}

	e.logger.Info().
		Str("path", path).
		Str("channel", label).
		Int("members", len(members)).
		Msg("CSV export complete")

	return nil
}

// orNotSet substitutes the unset sentinel for empty attributes.
func orNotSet(value string) string {
	if value == "" {
		return notSet
	}
	return value
}

// DefaultFilename builds a timestamped export filename from the channel
// label, e.g. "channel_members_mychannel_20260831_153000.csv".
func DefaultFilename(label, extension string) string {
	sanitized := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, strings.TrimPrefix(label, "@"))

	if len(sanitized) > maxFilenameLength {
		sanitized = sanitized[:maxFilenameLength]
	}

	timestamp := time.Now().Format("20060102_150405")
	return fmt.Sprintf("channel_members_%s_%s.%s", sanitized, timestamp, extension)
}
