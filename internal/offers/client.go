package offers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"ofertabot/internal/textutil"
)

// Config configures the listing API client.
type Config struct {
	// BaseURL is the Solr select endpoint of the listing API.
	BaseURL string
	// ListingURL is the public listing site every Offer links to.
	ListingURL string
	// Timeout bounds one fetch. Zero falls back to a 30s default.
	Timeout time.Duration
	// OmitMidnightTimes collapses "midnight" date-times to a bare date.
	OmitMidnightTimes bool
}

// Client issues filtered queries against the listing API.
type Client struct {
	cfg  Config
	http *http.Client
	log  zerolog.Logger
}

func NewClient(cfg Config, log zerolog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: timeout},
		log:  log,
	}
}

// Fetch runs one query and returns the normalized offers. On any failure
// it returns an empty slice together with the error; callers treat the
// empty batch as "no new offers" but can record the failure.
func (c *Client) Fetch(ctx context.Context, f Filters) ([]Offer, error) {
	u, err := url.Parse(c.cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}

	q := url.Values{}
	q.Set("q", "*:*")
	q.Set("wt", "json")
	q.Set("json.nl", "map")
	q.Set("facet", "true")
	q.Set("facet.limit", "-1")
	q.Set("facet.mincount", "1")
	q.Set("facet.field", "cargo")
	q.Set("rows", strconv.Itoa(f.RowCap))
	if f.District != "" {
		q.Add("fq", fmt.Sprintf("distrito:%q", f.District))
	}
	if f.Status != "" {
		q.Add("fq", "estado:"+f.Status)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("query listing api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("listing api returned http %d", resp.StatusCode)
	}

	var body struct {
		Response struct {
			NumFound int              `json:"numFound"`
			Docs     []map[string]any `json:"docs"`
		} `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode listing response: %w", err)
	}

	out := make([]Offer, 0, len(body.Response.Docs))
	for _, doc := range body.Response.Docs {
		out = append(out, c.mapDoc(doc))
	}
	c.log.Debug().Int("num_found", body.Response.NumFound).Int("mapped", len(out)).Msg("offers fetched")
	return out, nil
}

// weekdays are the per-day schedule fields, Monday through Saturday.
var weekdays = []struct {
	field, label string
}{
	{"horariolunes", "Lunes"},
	{"horariomartes", "Martes"},
	{"horariomiercoles", "Miércoles"},
	{"horariojueves", "Jueves"},
	{"horarioviernes", "Viernes"},
	{"horariosabado", "Sábado"},
}

func (c *Client) mapDoc(doc map[string]any) Offer {
	id := fieldString(doc, "idoferta")
	if id == "" {
		id = fieldString(doc, "id")
	}

	clean := func(key string) string {
		return textutil.Clean(fieldString(doc, key))
	}

	return Offer{
		ID:                 id,
		Title:              clean("cargo"),
		Zone:               clean("distrito"),
		LevelOrModality:    clean("nivelmodalidad"),
		CourseDivision:     clean("cursodivision"),
		School:             clean("escuela"),
		ServiceAddress:     clean("domiciliodesempeno"),
		Status:             clean("estado"),
		Shift:              clean("turno"),
		SubstituteCategory: clean("categoriasuplencia"),
		PositionType:       clean("tipocargo"),
		Remarks:            clean("observaciones"),

		ClosingDate:         FormatDateTime(fieldString(doc, "fechacierre"), c.cfg.OmitMidnightTimes),
		StartDate:           FormatDate(fieldString(doc, "fechainicio")),
		SubstituteUntilDate: FormatDate(fieldString(doc, "suplenciahasta")),
		PossessionDate:      FormatDate(fieldString(doc, "tomaposesion")),

		Schedule: scheduleFromDoc(doc),
		Link:     c.cfg.ListingURL,
	}
}

func scheduleFromDoc(doc map[string]any) string {
	lines := make([]string, 0, len(weekdays))
	for _, d := range weekdays {
		v := textutil.Clean(fieldString(doc, d.field))
		if strings.TrimSpace(v) == "" {
			continue
		}
		lines = append(lines, d.label+": "+v)
	}
	if len(lines) == 0 {
		return ScheduleUnspecified
	}
	return strings.Join(lines, "\n")
}

// fieldString coerces a doc value to string. Solr can hand back numbers
// for id fields and single-element arrays for stored fields.
func fieldString(doc map[string]any, key string) string {
	v, ok := doc[key]
	if !ok || v == nil {
		return ""
	}
	switch x := v.(type) {
	case string:
		return x
	case float64:
		if x == float64(int64(x)) {
			return strconv.FormatInt(int64(x), 10)
		}
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case []any:
		if len(x) == 0 {
			return ""
		}
		return fieldString(map[string]any{key: x[0]}, key)
	default:
		return fmt.Sprint(x)
	}
}
