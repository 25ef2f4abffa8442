package offers

import "testing"

func TestFormatDate(t *testing.T) {
	cases := []struct{ in, want string }{
		{"2024-03-05", "05/03/2024"},
		{"2024-12-31", "31/12/2024"},
		{"sin fecha", "sin fecha"},
		{"", ""},
	}
	for _, c := range cases {
		if got := FormatDate(c.in); got != c.want {
			t.Fatalf("FormatDate(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestFormatDateTimeOmitMidnight(t *testing.T) {
	if got := FormatDateTime("2024-03-05T03:00:00Z", true); got != "2024-03-05" {
		t.Fatalf("got %q", got)
	}
}

func TestFormatDateTimeFull(t *testing.T) {
	if got := FormatDateTime("2024-03-05T03:00:00Z", false); got != "05/03/2024 03:00" {
		t.Fatalf("got %q", got)
	}
	if got := FormatDateTime("2024-03-05T18:30:00Z", true); got != "05/03/2024 18:30" {
		t.Fatalf("non-midnight value must keep its time, got %q", got)
	}
}

func TestFormatDateTimeUnparsable(t *testing.T) {
	if got := FormatDateTime("pronto", false); got != "pronto" {
		t.Fatalf("got %q", got)
	}
}
