package overview

import (
	"time"

	"secanalytics/core"
)

type timestamped interface {
	Timestamp() time.Time
}

// FilterToWindow keeps the items whose timestamp lies in w (both ends
// inclusive). The result is a new slice and is never nil.
func FilterToWindow[T timestamped](items []T, w core.TimeWindow) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		if w.Contains(item.Timestamp()) {
			out = append(out, item)
		}
	}
	return out
}
