package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func capture(t *testing.T) (stdout, stderr *bytes.Buffer) {
	t.Helper()
	stdout, stderr = &bytes.Buffer{}, &bytes.Buffer{}

	oldOut, oldErr, oldNoColor := Stdout, Stderr, color.NoColor
	Stdout, Stderr = stdout, stderr
	color.NoColor = true
	t.Cleanup(func() {
		Stdout, Stderr, color.NoColor = oldOut, oldErr, oldNoColor
	})
	return stdout, stderr
}

func TestSuccess(t *testing.T) {
	stdout, _ := capture(t)

	Success("Created %d items in %s", 5, "database")

	assert.Equal(t, "✓ Created 5 items in database\n", stdout.String())
}

func TestError(t *testing.T) {
	stdout, stderr := capture(t)

	Error("Failed to connect to %s on port %d", "server", 8080)

	assert.Empty(t, stdout.String())
	assert.Contains(t, stderr.String(), "✗")
	assert.Contains(t, stderr.String(), "Failed to connect to server on port 8080")
}

func TestInfo(t *testing.T) {
	stdout, _ := capture(t)

	Info("Processing %d of %d files", 5, 10)

	assert.Contains(t, stdout.String(), "Processing 5 of 10 files")
	assert.NotContains(t, stdout.String(), "✓")
}

func TestWarn(t *testing.T) {
	stdout, _ := capture(t)

	Warn("Disk usage is %d%%", 95)

	assert.Contains(t, stdout.String(), "⚠")
	assert.Contains(t, stdout.String(), "Disk usage is 95%")
}

func TestColorEnabled(t *testing.T) {
	stdout, _ := capture(t)
	color.NoColor = false

	Success("ok")

	assert.Contains(t, stdout.String(), "\x1b[")
}

func TestJSON(t *testing.T) {
	stdout, _ := capture(t)

	require.NoError(t, JSON(map[string]any{
		"user": map[string]any{"name": "alice"},
	}))

	assert.Contains(t, stdout.String(), "  \"user\":")
	var parsed map[string]map[string]string
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &parsed))
	assert.Equal(t, "alice", parsed["user"]["name"])
}

func TestYAML(t *testing.T) {
	stdout, _ := capture(t)

	type section struct {
		Addr string `yaml:"addr"`
		Port int    `yaml:"port"`
	}
	require.NoError(t, YAML(map[string]section{"server": {Addr: "0.0.0.0", Port: 3000}}))

	assert.Contains(t, stdout.String(), "server:\n  addr: 0.0.0.0\n  port: 3000\n")

	var parsed map[string]section
	require.NoError(t, yaml.Unmarshal(stdout.Bytes(), &parsed))
	assert.Equal(t, 3000, parsed["server"].Port)
}

func TestTable_Render(t *testing.T) {
	stdout, _ := capture(t)

	table := NewTable([]string{"Short", "VeryLongHeader"})
	table.AddRow([]string{"A", "B"})
	table.AddRow([]string{"LongValue", "C"})
	table.Render()

	lines := strings.Split(strings.TrimRight(stdout.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "Short      VeryLongHeader"))
	assert.True(t, strings.HasPrefix(lines[1], "---------  --------------"))
	assert.True(t, strings.HasPrefix(lines[2], "A          B"))
	assert.True(t, strings.HasPrefix(lines[3], "LongValue  C"))
}

func TestTable_Render_Empty(t *testing.T) {
	stdout, _ := capture(t)

	NewTable([]string{"Name", "Status"}).Render()

	assert.Contains(t, stdout.String(), "Name")
	assert.Contains(t, stdout.String(), "----")
}

func TestTable_Render_ExtraCellsIgnored(t *testing.T) {
	stdout, _ := capture(t)

	table := NewTable([]string{"Only"})
	table.AddRow([]string{"one", "overflow"})
	table.Render()

	assert.NotContains(t, stdout.String(), "overflow")
}
