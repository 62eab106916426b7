package insight

import "testing"

func TestTimestampRoundTrip(t *testing.T) {
	cases := []struct {
		offsetMs int64
		want     string
	}{
		{0, "00:00"},
		{15000, "00:15"},
		{90000, "01:30"},
		{3661000, "61:01"},
		{95999, "01:35"},
	}
	for _, tc := range cases {
		got := FormatTimestamp(tc.offsetMs)
		if got != tc.want {
			t.Fatalf("FormatTimestamp(%d): got=%q want=%q", tc.offsetMs, got, tc.want)
		}
		secs, err := ParseTimestamp(got)
		if err != nil {
			t.Fatalf("ParseTimestamp(%q): %v", got, err)
		}
		if want := int(tc.offsetMs / 1000); secs != want {
			t.Fatalf("ParseTimestamp(%q): got=%d want=%d", got, secs, want)
		}
	}
}

func TestParseTimestampRejects(t *testing.T) {
	for _, in := range []string{"", "12", "aa:10", "01:60", "01:5", "-1:00", "01:xx"} {
		if _, err := ParseTimestamp(in); err == nil {
			t.Fatalf("ParseTimestamp(%q): expected error", in)
		}
	}
}

func TestFormatTimestampClampsNegative(t *testing.T) {
	if got := FormatTimestamp(-500); got != "00:00" {
		t.Fatalf("FormatTimestamp(-500): got=%q", got)
	}
}
