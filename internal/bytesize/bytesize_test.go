package bytesize

import (
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		input   string
		want    ByteSize
		wantErr bool
	}{
		{"0", 0, false},
		{"1024", 1024, false},
		{"1024B", 1024, false},
		{"64Ki", 64 * KiB, false},
		{"256MiB", 256 * MiB, false},
		{"1gib", GiB, false},
		{"2TiB", 2 * TiB, false},
		{"1K", KB, false},
		{"100MB", 100 * MB, false},
		{"1.5Mi", ByteSize(1.5 * float64(MiB)), false},
		{" 1 Gi ", GiB, false},

		{"", 0, true},
		{"   ", 0, true},
		{"Gi", 0, true},
		{"-1Gi", 0, true},
		{"1Xi", 0, true},
		{"1.2.3M", 0, true},
		{"99999999999TiB", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := Parse(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Parse(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("Parse(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestString(t *testing.T) {
	tests := []struct {
		input ByteSize
		want  string
	}{
		{512, "512B"},
		{2 * KiB, "2KiB"},
		{256 * MiB, "256MiB"},
		{ByteSize(1.5 * float64(GiB)), "1.50GiB"},
		{3 * TiB, "3TiB"},
	}

	for _, tt := range tests {
		if got := tt.input.String(); got != tt.want {
			t.Errorf("ByteSize(%d).String() = %q, want %q", uint64(tt.input), got, tt.want)
		}
	}
}

func TestTextRoundTrip(t *testing.T) {
	for _, size := range []ByteSize{0, 512, 64 * KiB, 256 * MiB, 5 * GiB} {
		text, err := size.MarshalText()
		if err != nil {
			t.Fatalf("MarshalText(%d): %v", uint64(size), err)
		}
		var got ByteSize
		if err := got.UnmarshalText(text); err != nil {
			t.Fatalf("UnmarshalText(%q): %v", text, err)
		}
		if got != size {
			t.Errorf("round trip of %d gave %d", uint64(size), uint64(got))
		}
	}
}

func TestInt64Saturates(t *testing.T) {
	if got := ByteSize(1 << 63).Int64(); got != 1<<63-1 {
		t.Errorf("Int64() = %d, want MaxInt64", got)
	}
	if got := (4 * KiB).Int64(); got != 4096 {
		t.Errorf("Int64() = %d, want 4096", got)
	}
}
