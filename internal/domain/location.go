package domain

import (
	"bytes"
	"encoding/json"
	"fmt"

	"onfleet-workers-go/internal/apperr"
)

// Location is a point on the map. On the wire it is a [longitude, latitude]
// pair.
type Location struct {
	Longitude float64
	Latitude  float64
}

// MarshalJSON encodes the location as [longitude, latitude].
func (l Location) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{l.Longitude, l.Latitude})
}

// UnmarshalJSON accepts either [longitude, latitude] or an object with
// longitude and latitude keys.
func (l *Location) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}
	var pair []float64
	if err := json.Unmarshal(data, &pair); err == nil {
		if len(pair) != 2 {
			return fmt.Errorf("location: want 2 coordinates, got %d", len(pair))
		}
		l.Longitude, l.Latitude = pair[0], pair[1]
		return nil
	}
	var obj struct {
		Longitude *float64 `json:"longitude"`
		Latitude  *float64 `json:"latitude"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("location: %w", err)
	}
	if obj.Longitude == nil || obj.Latitude == nil {
		return fmt.Errorf("location: longitude and latitude are required")
	}
	l.Longitude, l.Latitude = *obj.Longitude, *obj.Latitude
	return nil
}

// Validate checks coordinate ranges.
func (l Location) Validate() error {
	if l.Longitude < -180 || l.Longitude > 180 {
		return fmt.Errorf("%w: longitude %v out of range", apperr.Invalid, l.Longitude)
	}
	if l.Latitude < -90 || l.Latitude > 90 {
		return fmt.Errorf("%w: latitude %v out of range", apperr.Invalid, l.Latitude)
	}
	return nil
}
