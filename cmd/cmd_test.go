package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"secanalytics/core"
	"secanalytics/gateway"
	"secanalytics/overview"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func init() {
	color.NoColor = true
}

// fakeBackend serves detectors and threat intel sources
func fakeBackend(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case gateway.APIBase + "/detectors/_search":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"hits": map[string]any{
					"total": map[string]any{"value": 2},
					"hits": []map[string]any{
						{"_id": "d1", "_source": map[string]any{"name": "windows", "detector_type": "WINDOWS", "enabled": true}},
						{"_id": "d2", "_source": map[string]any{"name": "cloudtrail", "detector_type": "CLOUDTRAIL", "enabled": false}},
					},
				},
			})
		case gateway.APIBase + "/threat_intel/sources/_search":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"hits": map[string]any{
					"hits": []map[string]any{{
						"_id":     "s1",
						"_source": map[string]any{"source_config": map[string]any{"name": "abuse.ch", "type": "URL_DOWNLOAD", "enabled": true}},
					}},
				},
			})
		default:
			_, _ = w.Write([]byte(`{"hits":{"total":{"value":0},"hits":[]},"findings":[],"alerts":[],"total_findings":0,"total_alerts":0}`))
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func findCommand(root *cobra.Command, name string) *cobra.Command {
	for _, c := range root.Commands() {
		if c.Name() == name {
			return c
		}
	}
	return nil
}

func TestRootCommandStructure(t *testing.T) {
	root := NewRootCmd()
	assert.Equal(t, "secanalytics", root.Use)

	for _, name := range []string{"serve", "overview", "detectors", "findings", "alerts", "threat-intel", "config"} {
		assert.NotNil(t, findCommand(root, name), "Missing command: %s", name)
	}
	for _, flag := range []string{"config", "json", "yaml", "no-color", "quiet", "verbose"} {
		assert.NotNil(t, root.PersistentFlags().Lookup(flag), "Missing flag: %s", flag)
	}

	cfg := findCommand(root, "config")
	require.NotNil(t, cfg)
	for _, name := range []string{"show", "validate", "gen-secret"} {
		assert.NotNil(t, findCommand(cfg, name), "Missing config command: %s", name)
	}
}

func TestWindowFlags(t *testing.T) {
	root := NewRootCmd()
	for _, name := range []string{"overview", "findings", "alerts"} {
		c := findCommand(root, name)
		require.NotNil(t, c)
		assert.NotNil(t, c.Flags().Lookup("start"), name)
		assert.NotNil(t, c.Flags().Lookup("end"), name)
	}
}

func TestJSONAndYAMLAreExclusive(t *testing.T) {
	_, err := execute(t, "config", "gen-secret", "--json", "--yaml")
	assert.Error(t, err)
}

func TestConfigShow_MasksSecrets(t *testing.T) {
	path := writeConfig(t, `
backend:
  url: https://search.internal:9200
  auth:
    mode: basic
    username: reader
    password: hunter2
`)

	out, err := execute(t, "config", "show", "--config", path)
	require.NoError(t, err)
	assert.NotContains(t, out, "hunter2")

	var decoded map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(out), &decoded))
	backend := decoded["backend"].(map[string]any)
	assert.Equal(t, "https://search.internal:9200", backend["url"])
	assert.Equal(t, "********", backend["auth"].(map[string]any)["password"])
}

func TestConfigValidate(t *testing.T) {
	good := writeConfig(t, "backend:\n  url: https://search.internal:9200\n")
	out, err := execute(t, "config", "validate", "--config", good)
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration is valid")

	bad := writeConfig(t, "backend:\n  url: not a url\n")
	out, err = execute(t, "config", "validate", "--config", bad)
	assert.Error(t, err)
	assert.Contains(t, out, "Configuration is invalid")
}

func TestGenSecret(t *testing.T) {
	out, err := execute(t, "config", "gen-secret", "--quiet", "--length", "40")
	require.NoError(t, err)
	assert.Len(t, strings.TrimSpace(out), 40)

	out, err = execute(t, "config", "gen-secret", "--quiet", "--length", "8")
	require.NoError(t, err)
	assert.Len(t, strings.TrimSpace(out), 32, "minimum length is enforced")
}

func TestDetectorsCommand(t *testing.T) {
	backend := fakeBackend(t)
	path := writeConfig(t, fmt.Sprintf("backend:\n  url: %s\n", backend.URL))

	out, err := execute(t, "detectors", "--config", path, "--quiet")
	require.NoError(t, err)
	assert.Contains(t, out, "windows")
	assert.NotContains(t, out, "cloudtrail", "disabled detectors are hidden by default")

	out, err = execute(t, "detectors", "--config", path, "--all", "--json")
	require.NoError(t, err)
	var detectors []core.Detector
	require.NoError(t, json.Unmarshal([]byte(out), &detectors))
	require.Len(t, detectors, 2)
	assert.Equal(t, "cloudtrail", detectors[0].Name, "sorted by name")
}

func TestDetectorsCommand_BackendDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)
	path := writeConfig(t, fmt.Sprintf("backend:\n  url: %s\n", srv.URL))

	_, err := execute(t, "detectors", "--config", path, "--quiet")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load detectors")
}

func TestThreatIntelCommand(t *testing.T) {
	backend := fakeBackend(t)
	path := writeConfig(t, fmt.Sprintf("backend:\n  url: %s\n", backend.URL))

	out, err := execute(t, "threat-intel", "--config", path, "--quiet")
	require.NoError(t, err)
	assert.Contains(t, out, "abuse.ch")
	assert.Contains(t, out, "URL_DOWNLOAD")
}

func TestOverviewCommand(t *testing.T) {
	backend := fakeBackend(t)
	path := writeConfig(t, fmt.Sprintf("backend:\n  url: %s\n", backend.URL))

	out, err := execute(t, "overview", "--config", path, "--json", "--start", "now-1h", "--end", "now")
	require.NoError(t, err)

	var report overviewReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, 2, report.Detectors)
	assert.Equal(t, 1, report.Summary.Detectors.Enabled)
	assert.Equal(t, time.Hour, report.Window.End.Sub(report.Window.Start))
	assert.Nil(t, report.ViewModel)

	_, err = execute(t, "overview", "--config", path, "--start", "yesterday")
	assert.Error(t, err, "invalid range is rejected before refreshing")
}

func TestRenderTables(t *testing.T) {
	var buf bytes.Buffer
	renderDetectorsTable(&buf, nil)
	assert.Contains(t, buf.String(), "No detectors configured")

	buf.Reset()
	ts := time.Date(2024, 3, 13, 15, 42, 7, 0, time.UTC)
	renderFindingsTable(&buf, []core.FindingItem{{
		Time:              ts,
		DetectorName:      "windows",
		RuleName:          "malicious ip",
		RuleSeverity:      "high",
		LogType:           "windows",
		IsThreatIntelOnly: true,
	}})
	assert.Contains(t, buf.String(), "2024-03-13 15:42:07")
	assert.Contains(t, buf.String(), "[threat intel] malicious ip")

	buf.Reset()
	renderAlertsTable(&buf, []core.AlertItem{{
		Time:          ts,
		TriggerName:   "critical trigger",
		Severity:      "1",
		SeverityLabel: "Highest",
		State:         core.AlertStateActive,
	}})
	assert.Contains(t, buf.String(), "critical trigger")
	assert.Contains(t, buf.String(), "Highest")
	assert.Contains(t, buf.String(), "ACTIVE")

	buf.Reset()
	w := core.TimeWindow{Start: ts, End: ts.Add(-time.Hour)}
	renderOverview(&buf, w, overview.Summary{Interval: time.Minute}, 0, 0)
	assert.Contains(t, buf.String(), "nothing can match")
	assert.Contains(t, buf.String(), "(none)")
}

func TestHelpers(t *testing.T) {
	assert.Equal(t, "abc", truncateString("abc", 5))
	assert.Equal(t, "abcd...", truncateString("abcdefghij", 7))
	assert.Equal(t, "-", formatTime(time.Time{}))

	items := []core.AlertItem{{DetectorID: "a"}, {DetectorID: "b"}, {DetectorID: "a"}}
	got := filterByDetector(items, "a", func(i core.AlertItem) string { return i.DetectorID })
	assert.Len(t, got, 2)
	assert.Len(t, filterByDetector(items, "", func(i core.AlertItem) string { return i.DetectorID }), 3)
	assert.Len(t, truncate(items, 1), 1)
	assert.Len(t, truncate(items, 0), 3)
}

func TestFindingsAndAlertsCommands_EmptyRange(t *testing.T) {
	backend := fakeBackend(t)
	path := writeConfig(t, fmt.Sprintf("backend:\n  url: %s\n", backend.URL))

	out, err := execute(t, "findings", "d1", "--config", path, "--quiet")
	require.NoError(t, err)
	assert.Contains(t, out, "No findings in range")

	out, err = execute(t, "alerts", "--detector", "d1", "--active", "--config", path, "--json")
	require.NoError(t, err)
	assert.Equal(t, "[]", strings.TrimSpace(out))

	_, err = execute(t, "alerts", "d1", "d2", "--config", path)
	assert.Error(t, err, "at most one detector id")
}
