// Package offers fetches job-offer records from the public listing API
// and maps them into display-ready values.
package offers

// Offer is one listing entry, already normalized for display and storage.
type Offer struct {
	ID                 string
	Title              string
	Zone               string
	LevelOrModality    string
	CourseDivision     string
	School             string
	ServiceAddress     string
	Status             string
	Shift              string
	SubstituteCategory string
	PositionType       string
	Remarks            string

	ClosingDate         string
	StartDate           string
	SubstituteUntilDate string
	PossessionDate      string

	// Schedule is a per-weekday summary (one line per day with a time
	// value) or ScheduleUnspecified when no day has one.
	Schedule string

	// Link points at the public listing site. The API does not expose a
	// record-specific deep link.
	Link string
}

// ScheduleUnspecified is the fixed marker used when no weekday carries a
// time window.
const ScheduleUnspecified = "No especificado"

// Filters narrows the listing query. Immutable for the process lifetime
// except through a config reload.
type Filters struct {
	RowCap   int
	District string
	Status   string
}
