package services

import (
	"context"
	"encoding/json"
)

func ensureContext(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}

// entitySnapshot converts a model into the field map persisted as an audit
// pre/post-image. Round-tripping through JSON honours `json:"-"` tags, so
// secrets such as password hashes never reach the trail.
func entitySnapshot(entity any) map[string]any {
	if entity == nil {
		return nil
	}

	raw, err := json.Marshal(entity)
	if err != nil {
		return nil
	}

	var snapshot map[string]any
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		return nil
	}
	return snapshot
}
