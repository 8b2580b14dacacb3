package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	SetWriter(&buf)
	SetFormat("text")
	defer func() {
		SetLevel("INFO")
		SetWriter(os.Stdout)
	}()

	SetLevel("WARN")
	Info("READ_FILE: handle=%d", 7)
	assert.Empty(t, buf.String())

	Warn("READ_FILE failed: handle=%d", 7)
	assert.Contains(t, buf.String(), "READ_FILE failed: handle=7")

	buf.Reset()
	SetLevel("debug")
	Debug("details: size=%d", 100)
	assert.Contains(t, buf.String(), "details: size=100")
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	SetWriter(&buf)
	SetFormat("json")
	defer func() {
		SetFormat("text")
		SetWriter(os.Stdout)
	}()

	Error("transfer failed: kind=%s", "device")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "transfer failed: kind=device", line["msg"])
	assert.Equal(t, "error", line["level"])
}

func TestSetOutputFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pldmfs.log")
	require.NoError(t, SetOutput(path))
	defer func() { require.NoError(t, SetOutput("stdout")) }()

	Info("hello %s", "file")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello file")
}

func TestLevelString(t *testing.T) {
	assert.Equal(t, "DEBUG", LevelDebug.String())
	assert.Equal(t, "ERROR", LevelError.String())
	assert.Equal(t, "UNKNOWN", Level(42).String())
}
