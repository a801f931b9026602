package sync

import (
	"encoding/json"
	"time"

	"github.com/electripro/electripro/internal/remote"
	"github.com/google/uuid"
	"github.com/tidwall/gjson"
)

// recordKey is the record's id, or its code when it has no id.
func recordKey(item json.RawMessage) string {
	if id := gjson.GetBytes(item, "id").String(); id != "" {
		return id
	}
	return gjson.GetBytes(item, "code").String()
}

// createdAt reads createdAt, then updatedAt, falling back to now.
func createdAt(item json.RawMessage, now time.Time) time.Time {
	for _, field := range []string{"createdAt", "updatedAt"} {
		v := gjson.GetBytes(item, field)
		if !v.Exists() || v.String() == "" {
			continue
		}
		if t, err := time.Parse(time.RFC3339Nano, v.String()); err == nil && !t.IsZero() {
			return t
		}
	}
	return now
}

// row wraps a record for the remote store.
func (r *Reconciler) row(item json.RawMessage) remote.Row {
	id := recordKey(item)
	if id == "" {
		id = uuid.NewString()
	}
	return remote.Row{ID: id, Data: item, CreatedAt: createdAt(item, r.now())}
}

func (r *Reconciler) rows(items []json.RawMessage) []remote.Row {
	rows := make([]remote.Row, 0, len(items))
	for _, item := range items {
		rows = append(rows, r.row(item))
	}
	return rows
}

// isDocument reports whether data holds a JSON object.
func isDocument(data json.RawMessage) bool {
	return len(data) > 0 && gjson.ValidBytes(data) && gjson.ParseBytes(data).IsObject()
}
