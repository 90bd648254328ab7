package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Teams is an ordered list of team ids. It decodes from a single id or an
// array of ids and always encodes as an array.
type Teams []string

// TeamIDs builds Teams from ids.
func TeamIDs(ids ...string) Teams {
	return append(Teams(nil), ids...)
}

// UnmarshalJSON accepts "id" or ["id", ...].
func (t *Teams) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}
	var one string
	if err := json.Unmarshal(data, &one); err == nil {
		*t = Teams{one}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("teams: want a team id or a list of team ids: %w", err)
	}
	if many == nil {
		many = []string{}
	}
	*t = Teams(many)
	return nil
}
