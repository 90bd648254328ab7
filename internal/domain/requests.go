package domain

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"onfleet-workers-go/internal/apperr"
	"onfleet-workers-go/internal/metadata"
)

// DefaultRadius is the search radius in metres used when none is given.
const DefaultRadius = 1000.0

// CreateWorker carries the fields accepted when creating a worker.
type CreateWorker struct {
	Name        string   `json:"name" validate:"required"`
	Phone       string   `json:"phone" validate:"required,phone"`
	Teams       Teams    `json:"teams" validate:"min=1,dive,required"`
	Vehicle     *Vehicle `json:"vehicle,omitempty"`
	Capacity    *float64 `json:"capacity,omitempty" validate:"omitempty,gte=0"`
	DisplayName string   `json:"displayName,omitempty"`
}

// PartialWorkerUpdate carries optional fields to update a worker.
// A nil field means “do not change” that attribute.
type PartialWorkerUpdate struct {
	Capacity    *float64          `json:"capacity,omitempty"`
	DisplayName *string           `json:"displayName,omitempty"`
	Metadata    *[]metadata.Entry `json:"metadata,omitempty"`
	Name        *string           `json:"name,omitempty"`
	Teams       Teams             `json:"teams,omitempty"`
	Vehicle     *Vehicle          `json:"vehicle,omitempty"`
}

// Empty reports whether the update changes nothing.
func (u PartialWorkerUpdate) Empty() bool {
	return u.Capacity == nil && u.DisplayName == nil && u.Metadata == nil &&
		u.Name == nil && u.Teams == nil && u.Vehicle == nil
}

// Telemetry is what the driver app reports about a worker.
// ActiveTask set to "" clears the active task.
type Telemetry struct {
	Location   *Location `json:"location,omitempty"`
	OnDuty     *bool     `json:"onDuty,omitempty"`
	ActiveTask *string   `json:"activeTask,omitempty"`
	UserData   *UserData `json:"userData,omitempty"`
}

// WorkerQuery narrows worker lookups. Every field is optional.
type WorkerQuery struct {
	// Filter lists the fields to return.
	Filter []string
	Phones []string
	States []WorkerState
	Teams  []string
}

// Values encodes the query as comma-separated parameters.
func (q WorkerQuery) Values() url.Values {
	v := url.Values{}
	if len(q.Filter) > 0 {
		v.Set("filter", strings.Join(q.Filter, ","))
	}
	if len(q.Phones) > 0 {
		v.Set("phones", strings.Join(q.Phones, ","))
	}
	if len(q.States) > 0 {
		states := make([]string, 0, len(q.States))
		for _, s := range q.States {
			states = append(states, strconv.Itoa(int(s)))
		}
		v.Set("states", strings.Join(states, ","))
	}
	if len(q.Teams) > 0 {
		v.Set("teams", strings.Join(q.Teams, ","))
	}
	return v
}

// Validate checks the states selector.
func (q WorkerQuery) Validate() error {
	for _, s := range q.States {
		if !s.Valid() {
			return fmt.Errorf("%w: unknown worker state %d", apperr.Invalid, s)
		}
	}
	return nil
}

// ParseWorkerQuery decodes filter, phones, states and teams parameters.
func ParseWorkerQuery(v url.Values) (WorkerQuery, error) {
	q := WorkerQuery{
		Filter: splitList(v.Get("filter")),
		Phones: splitList(v.Get("phones")),
		Teams:  splitList(v.Get("teams")),
	}
	for _, s := range splitList(v.Get("states")) {
		n, err := strconv.Atoi(s)
		if err != nil {
			return WorkerQuery{}, fmt.Errorf("%w: states: %q is not a number", apperr.Invalid, s)
		}
		q.States = append(q.States, WorkerState(n))
	}
	if err := q.Validate(); err != nil {
		return WorkerQuery{}, err
	}
	return q, nil
}

func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// LocationQuery selects workers around a point. Radius is in metres.
type LocationQuery struct {
	Longitude float64
	Latitude  float64
	Radius    *float64
}

// Point returns the query centre.
func (q LocationQuery) Point() Location {
	return Location{Longitude: q.Longitude, Latitude: q.Latitude}
}

// EffectiveRadius returns Radius or DefaultRadius.
func (q LocationQuery) EffectiveRadius() float64 {
	if q.Radius == nil {
		return DefaultRadius
	}
	return *q.Radius
}

// Validate checks coordinates and radius.
func (q LocationQuery) Validate() error {
	if err := q.Point().Validate(); err != nil {
		return err
	}
	if q.Radius != nil && *q.Radius <= 0 {
		return fmt.Errorf("%w: radius must be positive", apperr.Invalid)
	}
	return nil
}

// Values encodes the query parameters.
func (q LocationQuery) Values() url.Values {
	v := url.Values{}
	v.Set("longitude", strconv.FormatFloat(q.Longitude, 'f', -1, 64))
	v.Set("latitude", strconv.FormatFloat(q.Latitude, 'f', -1, 64))
	if q.Radius != nil {
		v.Set("radius", strconv.FormatFloat(*q.Radius, 'f', -1, 64))
	}
	return v
}

// ParseLocationQuery decodes longitude, latitude and radius parameters.
func ParseLocationQuery(v url.Values) (LocationQuery, error) {
	var q LocationQuery
	var err error
	if q.Longitude, err = parseFloatParam(v, "longitude"); err != nil {
		return LocationQuery{}, err
	}
	if q.Latitude, err = parseFloatParam(v, "latitude"); err != nil {
		return LocationQuery{}, err
	}
	if v.Get("radius") != "" {
		r, err := parseFloatParam(v, "radius")
		if err != nil {
			return LocationQuery{}, err
		}
		q.Radius = &r
	}
	if err := q.Validate(); err != nil {
		return LocationQuery{}, err
	}
	return q, nil
}

func parseFloatParam(v url.Values, name string) (float64, error) {
	s := strings.TrimSpace(v.Get(name))
	if s == "" {
		return 0, fmt.Errorf("%w: %s is required", apperr.Invalid, name)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be a number", apperr.Invalid, name)
	}
	return f, nil
}
