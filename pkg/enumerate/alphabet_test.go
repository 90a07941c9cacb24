package enumerate

import (
	"testing"
)

func TestDefaultAlphabet(t *testing.T) {
	alphabet := DefaultAlphabet()

	if len(alphabet) != 37 {
		t.Fatalf("len(alphabet) = %d, want 37", len(alphabet))
	}
	if alphabet[0] != "" {
		t.Errorf("alphabet[0] = %q, want the empty filter first", alphabet[0])
	}
	if alphabet[1] != "a" || alphabet[26] != "z" {
		t.Errorf("letters = %q..%q, want a..z", alphabet[1], alphabet[26])
	}
	if alphabet[27] != "0" || alphabet[36] != "9" {
		t.Errorf("digits = %q..%q, want 0..9", alphabet[27], alphabet[36])
	}

	seen := make(map[string]struct{}, len(alphabet))
	for _, f := range alphabet {
		if _, dup := seen[f]; dup {
			t.Errorf("duplicate filter %q", f)
		}
		seen[f] = struct{}{}
	}
}

func TestNormalizeAlphabet(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{
			name:     "empty input falls back to default",
			input:    nil,
			expected: DefaultAlphabet(),
		},
		{
			name:     "empty filter prepended when absent",
			input:    []string{"a", "b"},
			expected: []string{"", "a", "b"},
		},
		{
			name:     "empty filter moved to front",
			input:    []string{"a", "", "b"},
			expected: []string{"", "a", "b"},
		},
		{
			name:     "duplicates removed keeping first position",
			input:    []string{"a", "b", "a", "c", "b"},
			expected: []string{"", "a", "b", "c"},
		},
		{
			name:     "multi-character filters pass through",
			input:    []string{"al", "an"},
			expected: []string{"", "al", "an"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := NormalizeAlphabet(tt.input)
			if len(result) != len(tt.expected) {
				t.Fatalf("len = %d, want %d (%q)", len(result), len(tt.expected), result)
			}
			for i := range result {
				if result[i] != tt.expected[i] {
					t.Errorf("result[%d] = %q, want %q", i, result[i], tt.expected[i])
				}
			}
		})
	}
}
