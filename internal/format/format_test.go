package format

import "testing"

func TestDuration(t *testing.T) {
	tests := []struct {
		name    string
		seconds int
		want    string
	}{
		{"zero is placeholder", 0, Placeholder},
		{"negative is placeholder", -5, Placeholder},
		{"seconds only", 42, "0:42"},
		{"minutes and seconds", 65, "1:05"},
		{"exact minute", 600, "10:00"},
		{"hours", 3661, "1:01:01"},
		{"padded minutes under an hour", 3725, "1:02:05"},
		{"many hours", 36000, "10:00:00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Duration(tt.seconds); got != tt.want {
				t.Errorf("Duration(%d) = %q, want %q", tt.seconds, got, tt.want)
			}
		})
	}
}

func TestSize(t *testing.T) {
	tests := []struct {
		name  string
		bytes int64
		want  string
	}{
		{"zero is placeholder", 0, Placeholder},
		{"negative is placeholder", -1, Placeholder},
		{"bytes", 500, "500.00 B"},
		{"kilobytes", 1536, "1.50 KB"},
		{"megabytes", 12938444, "12.34 MB"},
		{"gigabytes", 1073741824, "1.00 GB"},
		{"terabyte ceiling", 1 << 42, "4.00 TB"},
		{"beyond terabytes stays in TB", 1 << 52, "4096.00 TB"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Size(tt.bytes); got != tt.want {
				t.Errorf("Size(%d) = %q, want %q", tt.bytes, got, tt.want)
			}
		})
	}
}
