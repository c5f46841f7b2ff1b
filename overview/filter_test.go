package overview

import (
	"testing"
	"time"

	"secanalytics/core"

	"github.com/stretchr/testify/assert"
)

func findingAt(id string, t time.Time) core.FindingItem {
	return core.FindingItem{ID: id, Time: t}
}

func ids(items []core.FindingItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

func TestFilterToWindow_BoundariesAreInclusive(t *testing.T) {
	a := baseTime
	b := baseTime.Add(time.Hour)
	w := core.TimeWindow{Start: a, End: b}

	items := []core.FindingItem{
		findingAt("before", a.Add(-time.Millisecond)),
		findingAt("at-start", a),
		findingAt("middle", a.Add(30*time.Minute)),
		findingAt("at-end", b),
		findingAt("after", b.Add(time.Millisecond)),
	}

	assert.Equal(t, []string{"at-start", "middle", "at-end"}, ids(FilterToWindow(items, w)))
}

func TestFilterToWindow_Idempotent(t *testing.T) {
	w := core.TimeWindow{Start: baseTime, End: baseTime.Add(time.Hour)}
	items := []core.FindingItem{
		findingAt("1", baseTime.Add(-time.Minute)),
		findingAt("2", baseTime),
		findingAt("3", baseTime.Add(time.Hour)),
		findingAt("4", baseTime.Add(2*time.Hour)),
	}

	once := FilterToWindow(items, w)
	twice := FilterToWindow(once, w)
	assert.Equal(t, once, twice)
}

func TestFilterToWindow_InvertedWindowIsEmpty(t *testing.T) {
	w := core.TimeWindow{Start: baseTime, End: baseTime.Add(-time.Hour)}
	items := []core.FindingItem{findingAt("1", baseTime), findingAt("2", baseTime.Add(-30*time.Minute))}

	out := FilterToWindow(items, w)
	assert.NotNil(t, out)
	assert.Empty(t, out)
}

func TestFilterToWindow_DoesNotAliasInput(t *testing.T) {
	w := core.TimeWindow{Start: baseTime, End: baseTime.Add(time.Hour)}
	items := []core.FindingItem{findingAt("1", baseTime)}

	out := FilterToWindow(items, w)
	out[0].ID = "changed"
	assert.Equal(t, "1", items[0].ID)
}

func TestFilterToWindow_Alerts(t *testing.T) {
	w := core.TimeWindow{Start: baseTime, End: baseTime.Add(time.Hour)}
	alerts := []core.AlertItem{
		{ID: "in", Time: baseTime.Add(time.Minute)},
		{ID: "out", Time: baseTime.Add(-time.Minute)},
	}

	out := FilterToWindow(alerts, w)
	if assert.Len(t, out, 1) {
		assert.Equal(t, "in", out[0].ID)
	}
}
