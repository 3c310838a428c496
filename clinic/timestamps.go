package clinic

import (
	"time"

	"github.com/rowguard/rowguard"
)

// Audit timestamp maintenance. Both columns are set by the write path, not
// by callers: values supplied in the incoming fields are overwritten.
// Both stamp functions work on a copy; the caller's map is never touched,
// so a caller can resubmit the same map after a failed attempt.

// Clock returns the current time. Swapped in tests.
type Clock func() time.Time

// StampCreate sets created_at and updated_at to now on a fresh row.
// The returned row carries its own field map.
func StampCreate(row rowguard.Row, now time.Time) rowguard.Row {
	row.Fields = copyFields(row.Fields)
	ts := now.UTC().Format(time.RFC3339)
	row.Fields["created_at"] = ts
	row.Fields["updated_at"] = ts
	return row
}

// StampModify refreshes updated_at and preserves created_at. A stray
// created_at in the incoming fields is dropped so the original survives.
// The input map is left unchanged.
func StampModify(fields map[string]string, now time.Time) map[string]string {
	out := copyFields(fields)
	delete(out, "created_at")
	out["updated_at"] = now.UTC().Format(time.RFC3339)
	return out
}

func copyFields(fields map[string]string) map[string]string {
	out := make(map[string]string, len(fields)+2)
	for k, v := range fields {
		out[k] = v
	}
	return out
}
