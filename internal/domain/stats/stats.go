package stats

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DateTimeLayout is the wire format for every timestamp the stats API
// accepts or returns.
const DateTimeLayout = "2006-01-02 15:04:05"

// DateTime marshals as "2006-01-02 15:04:05" instead of RFC 3339.
type DateTime time.Time

func (d DateTime) MarshalJSON() ([]byte, error) {
	return []byte(`"` + time.Time(d).Format(DateTimeLayout) + `"`), nil
}

func (d *DateTime) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "null" || s == "" {
		return errors.New("timestamp is required")
	}

	t, err := time.Parse(DateTimeLayout, s)
	if err != nil {
		return err
	}

	*d = DateTime(t)
	return nil
}

func (d DateTime) Time() time.Time {
	return time.Time(d)
}

type EndpointHit struct {
	ID        string   `json:"id"`
	App       string   `json:"app"`
	URI       string   `json:"uri"`
	IP        string   `json:"ip"`
	Timestamp DateTime `json:"timestamp"`
}

// ViewStats is derived on demand, never persisted.
type ViewStats struct {
	App  string `json:"app"`
	URI  string `json:"uri"`
	Hits int64  `json:"hits"`
}

var ErrInvalidRange = errors.New("end must not be before start")

type CreateHitRequest struct {
	App       string   `json:"app" binding:"required"`
	URI       string   `json:"uri" binding:"required"`
	IP        string   `json:"ip" binding:"required"`
	Timestamp DateTime `json:"timestamp" binding:"required"`
}

// QueryFilter selects hits within [Start, End] inclusive; Start == End is a
// valid single-instant window. Unique counts distinct IPs per URI.
type QueryFilter struct {
	Start  time.Time
	End    time.Time
	URIs   []string
	Unique bool
}

func NewFromCreateRequest(req CreateHitRequest) EndpointHit {
	return EndpointHit{
		ID:        uuid.NewString(),
		App:       req.App,
		URI:       req.URI,
		IP:        req.IP,
		Timestamp: req.Timestamp,
	}
}
