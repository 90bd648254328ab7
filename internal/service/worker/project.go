package worker

import (
	"encoding/json"
	"fmt"

	"onfleet-workers-go/internal/domain"
)

// Project keeps only the requested top-level fields of w. The id is always kept.
// Unknown field names are ignored. An empty field list returns every field.
func Project(w domain.Worker, fields []string) (map[string]json.RawMessage, error) {
	raw, err := json.Marshal(w)
	if err != nil {
		return nil, fmt.Errorf("project worker: %w", err)
	}
	var all map[string]json.RawMessage
	if err := json.Unmarshal(raw, &all); err != nil {
		return nil, fmt.Errorf("project worker: %w", err)
	}
	if len(fields) == 0 {
		return all, nil
	}
	out := make(map[string]json.RawMessage, len(fields)+1)
	out["id"] = all["id"]
	for _, f := range fields {
		if v, ok := all[f]; ok {
			out[f] = v
		}
	}
	return out, nil
}
