package export

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/channelvisor/tg-members/pkg/telegram"
)

func TestCSVExporter_Export(t *testing.T) {
	path := filepath.Join(t.TempDir(), "members.csv")

	members := []telegram.Member{
		{ID: 1, AccessHash: 99, Username: "alice", FirstName: "Alice", Phone: "+123", Premium: true},
		{ID: 2, FirstName: "Bob"}, // username, last name, phone unset
	}

	if err := NewCSVExporter().Export(path, "@testchannel", members); err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open exported file: %v", err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read exported file: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("rows = %d, want header plus 2 members", len(records))
	}

	if records[0][0] != "User ID" || records[0][1] != "Username" {
		t.Errorf("header = %v, want User ID and Username leading", records[0])
	}

	alice := records[1]
	if alice[0] != "1" || alice[1] != "alice" || alice[4] != "+123" || alice[7] != "true" {
		t.Errorf("alice row = %v", alice)
	}

	bob := records[2]
	if bob[1] != "Not set" || bob[3] != "Not set" || bob[4] != "Not set" {
		t.Errorf("bob row = %v, want unset attributes as %q", bob, "Not set")
	}
	if bob[2] != "Bob" {
		t.Errorf("bob first name = %q, want Bob", bob[2])
	}
}

func TestCSVExporter_EmptySet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.csv")

	if err := NewCSVExporter().Export(path, "@empty", nil); err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read exported file: %v", err)
	}
	if !strings.HasPrefix(string(data), "User ID,") {
		t.Errorf("empty export should still carry the header, got %q", string(data))
	}
}

func TestDefaultFilename(t *testing.T) {
	tests := []struct {
		name       string
		label      string
		wantPrefix string
	}{
		{
			name:       "plain username",
			label:      "gophers",
			wantPrefix: "channel_members_gophers_",
		},
		{
			name:       "at prefix stripped",
			label:      "@gophers",
			wantPrefix: "channel_members_gophers_",
		},
		{
			name:       "special characters replaced",
			label:      "My Channel! (official)",
			wantPrefix: "channel_members_My_Channel___official__",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DefaultFilename(tt.label, "csv")
			if !strings.HasPrefix(got, tt.wantPrefix) {
				t.Errorf("DefaultFilename() = %q, want prefix %q", got, tt.wantPrefix)
			}
			if !strings.HasSuffix(got, ".csv") {
				t.Errorf("DefaultFilename() = %q, want .csv suffix", got)
			}
		})
	}
}

func TestDefaultFilename_TruncatesLongLabels(t *testing.T) {
	long := strings.Repeat("x", 120)
	got := DefaultFilename(long, "csv")

	trimmed := strings.TrimPrefix(got, "channel_members_")
	label := trimmed[:strings.IndexByte(trimmed, '_')]
	if len(label) != maxFilenameLength {
		t.Errorf("label part length = %d, want %d", len(label), maxFilenameLength)
	}
}
