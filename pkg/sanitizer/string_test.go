package sanitizer

import "testing"

func TestTrimAndNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "trim spaces",
			input: "  Heathrow Terminal 5  ",
			want:  "Heathrow Terminal 5",
		},
		{
			name:  "multiple spaces between words",
			input: "10   Downing    Street",
			want:  "10 Downing Street",
		},
		{
			name:  "tabs and newlines",
			input: "King's\t\nCross",
			want:  "King's Cross",
		},
		{
			name:  "empty string",
			input: "",
			want:  "",
		},
		{
			name:  "only whitespace",
			input: "   \t\n  ",
			want:  "",
		},
		{
			name:  "preserve accents",
			input: " Gare de Lyon–Bercy, Paris  ",
			want:  "Gare de Lyon–Bercy, Paris",
		},
		{
			name:  "non latin script",
			input: " 東京駅  丸の内 ",
			want:  "東京駅 丸の内",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TrimAndNormalize(tt.input)
			if got != tt.want {
				t.Errorf("TrimAndNormalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizeLabel(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Saloon", "saloon"},
		{"  Executive   MPV ", "executive mpv"},
		{"airport_transfer", "airport_transfer"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := NormalizeLabel(tt.input); got != tt.want {
			t.Errorf("NormalizeLabel(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestNormalizeCurrency(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"gbp", "GBP"},
		{" eur ", "EUR"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := NormalizeCurrency(tt.input); got != tt.want {
			t.Errorf("NormalizeCurrency(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
