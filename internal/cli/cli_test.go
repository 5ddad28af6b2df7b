package cli_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tidewise/tidewise/internal/api/models"
	"github.com/tidewise/tidewise/internal/auth"
	"github.com/tidewise/tidewise/internal/cli"
	"github.com/tidewise/tidewise/internal/config"
)

const dayJSON = `{
  "referenceDate": "2026-07-04T00:00:00Z",
  "sun": {"sunrise": "2026-07-04T06:00:00Z", "sunset": "2026-07-04T21:00:00Z"},
  "tide": [
    {"time": 5, "height": 0.4, "type": "LOW"},
    {"time": 11, "height": 2.2, "type": "HIGH"},
    {"time": 17, "height": 0.5, "type": "LOW"}
  ],
  "wind": [
    {"time": "2026-07-04T09:00:00Z", "speed": 9, "direction": 250},
    {"time": "2026-07-04T10:00:00Z", "speed": 10, "direction": 250},
    {"time": "2026-07-04T11:00:00Z", "speed": 11, "direction": 250},
    {"time": "2026-07-04T12:00:00Z", "speed": 14, "direction": 250}
  ],
  "weather": [
    {"time": "2026-07-04T09:00:00Z", "temperature": 18, "cloudCover": 20},
    {"time": "2026-07-04T10:00:00Z", "temperature": 19, "cloudCover": 20},
    {"time": "2026-07-04T11:00:00Z", "temperature": 20, "cloudCover": 10},
    {"time": "2026-07-04T12:00:00Z", "temperature": 21, "cloudCover": 10}
  ]
}`

const activitiesJSON = `[
  {"id":"swim","name":"Swimming","priority":4,"constraints":[
    {"type":"sun","requiresDaylight":true},
    {"type":"tide","eventType":"HIGH","maxHoursBefore":1,"maxHoursAfter":1}
  ]},
  {"id":"kitesurf","name":"Kitesurfing","priority":8,"constraints":[
    {"type":"wind","minSpeed":12,"maxSpeed":18}
  ]}
]`

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func run(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := cli.NewRootCommand(cli.BuildInfo{Version: "1.0.0", BuildTime: "2026-10-01"})
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err = cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, _, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "tidewise version 1.0.0")
	assert.Contains(t, out, "2026-10-01")
}

func TestSuggestCommand_Table(t *testing.T) {
	data := writeTemp(t, "day.json", dayJSON)
	activities := writeTemp(t, "activities.json", activitiesJSON)

	out, _, err := run(t, "suggest", "--data", data, "--activities", activities, "--grouping", "time", "--feasible-only")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.GreaterOrEqual(t, len(lines), 3)
	assert.True(t, strings.HasPrefix(lines[0], "ACTIVITY"))

	// Around high tide swimming is perfect from 10:00 to 12:00.
	found := false
	for _, line := range lines[1:] {
		fields := strings.Fields(line)
		if fields[0] == "Swimming" && fields[1] == "10:00" && fields[2] == "12:00" {
			assert.Equal(t, "1.00", fields[3])
			found = true
		}
	}
	assert.True(t, found, out)
	assert.Contains(t, out, "Kitesurfing")
}

func TestSuggestCommand_JSON(t *testing.T) {
	data := writeTemp(t, "day.json", dayJSON)
	activities := writeTemp(t, "activities.json", activitiesJSON)

	out, _, err := run(t, "suggest", "-d", data, "-a", activities, "--working-hours", "10-11", "--json", "--limit", "3")
	require.NoError(t, err)

	var resp models.ComputeSuggestionsResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Len(t, resp.Ranked, 3)
	for _, r := range resp.Ranked {
		h := r.Timestamp.Hour()
		assert.True(t, h == 10 || h == 11, "hour %d outside working hours", h)
	}
	assert.NotEmpty(t, resp.Grouped)
}

func TestSuggestCommand_FromConfiguredCatalog(t *testing.T) {
	data := writeTemp(t, "day.json", dayJSON)
	t.Setenv("CATALOG_SEED_FILE", writeTemp(t, "seed.json", activitiesJSON))

	out, _, err := run(t, "suggest", "--data", data, "--grouping", "timeAndActivity")
	require.NoError(t, err)
	assert.Contains(t, out, "Swimming")
	assert.Contains(t, out, "Kitesurfing")
}

func TestSuggestCommand_Errors(t *testing.T) {
	data := writeTemp(t, "day.json", dayJSON)
	activities := writeTemp(t, "activities.json", activitiesJSON)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "missing data flag", args: []string{"suggest"}, want: `required flag(s) "data" not set`},
		{name: "unknown grouping", args: []string{"suggest", "-d", data, "-a", activities, "-g", "weekly"}, want: "unknown grouping mode"},
		{name: "bad working hours", args: []string{"suggest", "-d", data, "-a", activities, "--working-hours", "18-8"}, want: "invalid --working-hours"},
		{name: "malformed working hours", args: []string{"suggest", "-d", data, "-a", activities, "--working-hours", "morning"}, want: "want START-END"},
		{name: "negative limit", args: []string{"suggest", "-d", data, "-a", activities, "-n", "-1"}, want: "--limit must not be negative"},
		{name: "missing data file", args: []string{"suggest", "-d", filepath.Join(t.TempDir(), "nope.json"), "-a", activities}, want: "reading conditions"},
		{name: "no reference date", args: []string{"suggest", "-d", writeTemp(t, "empty.json", `{}`), "-a", activities}, want: "referenceDate is required"},
		{name: "unknown tide type", args: []string{"suggest", "-d", writeTemp(t, "slack.json", `{"referenceDate":"2026-07-04T00:00:00Z","tide":[{"time":11,"type":"slack"}]}`), "-a", activities}, want: "tide[0].type must be one of: HIGH LOW"},
		{name: "empty catalog", args: []string{"suggest", "-d", data}, want: "no activities to score"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := run(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestTokenCommand(t *testing.T) {
	out, stderr, err := run(t, "token", "--subject", "curator-1")
	require.NoError(t, err)
	assert.Contains(t, stderr, "expires")

	claims, err := auth.NewJWTService(config.Default().Auth).ValidateAccessToken(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "curator-1", claims.Subject)
	assert.True(t, claims.HasScope(auth.ScopeCatalogWrite))
}

func TestTokenCommand_RequiresSubject(t *testing.T) {
	_, _, err := run(t, "token")
	assert.Error(t, err)
}
