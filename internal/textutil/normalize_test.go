package textutil

import "testing"

func TestCleanRepairsKnownArtifacts(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"MatemÃ¡tica", "Matemática"},
		{"InglÃ©s", "Inglés"},
		{"EducaciÃ³n FÃ­sica", "Educación Física"},
		{"MÃºsica", "Música"},
		{"EspaÃ±ol", "Español"},
		{"Ã‘andubay", "Ñandubay"},
		{"Âºo NÂ° 12", "ºo N° 12"},
		{"Â¿TurnoÂ¡", "¿Turno¡"},
	}
	for _, c := range cases {
		if got := Clean(c.in); got != c.want {
			t.Fatalf("Clean(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestCleanTableEntries(t *testing.T) {
	// Every table entry must map to its documented replacement when it
	// appears alone.
	for _, m := range mojibake {
		if got := Clean(m.bad); got != m.good {
			t.Fatalf("Clean(%q) = %q, want %q", m.bad, got, m.good)
		}
	}
}

func TestCleanIdempotent(t *testing.T) {
	inputs := []string{
		"Escuela Primaria N 7",
		"Educación Física",
		"¿Dónde? ¡Allá!",
		"Maestro de Inglés - Turno Mañana",
	}
	for _, in := range inputs {
		once := Clean(in)
		if once != in {
			t.Fatalf("Clean(%q) changed clean input to %q", in, once)
		}
		if twice := Clean(once); twice != once {
			t.Fatalf("Clean not idempotent: %q -> %q", once, twice)
		}
	}
}

func TestCleanDropsUnknownRunes(t *testing.T) {
	if got := Clean("aula€Z�7"); got != "aulaZ7" {
		t.Fatalf("got %q", got)
	}
}

func TestCleanGradeSectionSpacing(t *testing.T) {
	cases := []struct{ in, want string }{
		{"5A", "5 A"},
		{"12B", "12 B"},
		{"5", "5"},
		{"A5", "A5"},
		{"5 A", "5 A"},
	}
	for _, c := range cases {
		if got := Clean(c.in); got != c.want {
			t.Fatalf("Clean(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestCleanEmpty(t *testing.T) {
	if got := Clean(""); got != "" {
		t.Fatalf("got %q", got)
	}
}
