package core

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRuleHit_Rule(t *testing.T) {
	var hit RuleHit
	require.NoError(t, json.Unmarshal([]byte(`{
		"_id": "r1",
		"_source": {"title": "Mimikatz", "level": "critical", "category": "windows", "tags": [{"value": "attack.t1003"}]}
	}`), &hit))

	r := hit.Rule(true)
	assert.Equal(t, "r1", r.ID)
	assert.Equal(t, "Mimikatz", r.Title)
	assert.Equal(t, SeverityCritical, r.Level)
	assert.True(t, r.PrePackaged)
	assert.Equal(t, []string{"attack.t1003"}, r.TagValues())

	r.Tags[0].Value = "changed"
	assert.Equal(t, "attack.t1003", hit.Source.Tags[0].Value, "tags must not alias the hit")

	custom := hit.Rule(false)
	assert.False(t, custom.PrePackaged)
}

func TestRuleLookup_Merge(t *testing.T) {
	l := RuleLookup{"r1": {ID: "r1", Title: "old"}}
	l.Merge(RuleLookup{"r1": {ID: "r1", Title: "new"}, "r2": {ID: "r2"}})

	assert.Len(t, l, 2)
	assert.Equal(t, "new", l["r1"].Title)
}

func TestRule_TagValuesEmpty(t *testing.T) {
	assert.Empty(t, Rule{}.TagValues())
	assert.NotNil(t, Rule{}.TagValues())
}
