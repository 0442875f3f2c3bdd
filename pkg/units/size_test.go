package units

import (
	"errors"
	"testing"
)

// TestParseSize tests capacity string parsing against known values
func TestParseSize(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int64
		wantErr bool
	}{
		{
			name:  "gigabytes",
			input: "500G",
			want:  500 * 1 << 30,
		},
		{
			name:  "gigabytes with B suffix",
			input: "500GB",
			want:  500 * 1 << 30,
		},
		{
			name:  "fractional gigabytes",
			input: "1.5G",
			want:  int64(1.5 * float64(1<<30)),
		},
		{
			name:  "bare bytes",
			input: "123",
			want:  123,
		},
		{
			name:  "bytes with B suffix",
			input: "123B",
			want:  123,
		},
		{
			name:  "kilobytes",
			input: "1K",
			want:  1024,
		},
		{
			name:  "terabytes",
			input: "2T",
			want:  2 * 1 << 40,
		},
		{
			name:  "petabytes",
			input: "1P",
			want:  1 << 50,
		},
		{
			name:  "lowercase unit",
			input: "10g",
			want:  10 * 1 << 30,
		},
		{
			name:  "surrounding whitespace",
			input: " 4G ",
			want:  4 * 1 << 30,
		},
		{
			name:    "empty string",
			input:   "",
			wantErr: true,
		},
		{
			name:    "non-numeric",
			input:   "abc",
			wantErr: true,
		},
		{
			name:    "unit only",
			input:   "G",
			wantErr: true,
		},
		{
			name:    "unknown unit",
			input:   "500X",
			wantErr: true,
		},
		{
			name:    "negative size",
			input:   "-5G",
			wantErr: true,
		},
		{
			name:    "double suffix",
			input:   "5GBB",
			wantErr: true,
		},
		{
			name:    "not a number",
			input:   "nan",
			wantErr: true,
		},
		{
			name:    "infinity",
			input:   "inf",
			wantErr: true,
		},
		{
			name:    "exponent notation",
			input:   "1e5G",
			wantErr: true,
		},
		{
			name:    "explicit plus sign",
			input:   "+5G",
			wantErr: true,
		},
		{
			name:    "double decimal point",
			input:   "1.2.3G",
			wantErr: true,
		},
		{
			name:    "integer overflow",
			input:   "99999999P",
			wantErr: true,
		},
		{
			name:    "fractional overflow",
			input:   "99999999.5P",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSize(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseSize(%q) = %d, want error", tt.input, got)
				}
				if !errors.Is(err, ErrInvalidSizeFormat) {
					t.Errorf("ParseSize(%q) error = %v, want ErrInvalidSizeFormat", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseSize(%q) error = %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseSize(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}
