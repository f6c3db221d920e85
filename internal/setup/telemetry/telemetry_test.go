package telemetry_test

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bczgroup/tracker/internal/setup/config"
	"github.com/bczgroup/tracker/internal/setup/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLineCapWriterKeepsRecentLines(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "main.log")
	w, err := telemetry.OpenLineCapWriter(path, 3)
	require.NoError(t, err)

	for i := range 6 {
		_, err := fmt.Fprintf(w, "line %d\n", i)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "line 3\nline 4\nline 5\n", string(data))
}

func TestLineCapWriterBelowCapAppends(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "main.log")
	w, err := telemetry.OpenLineCapWriter(path, 10)
	require.NoError(t, err)

	_, err = w.Write([]byte("a\nb\n"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "a\nb\n", string(data))
}

func TestManagerCreatesSessionLogs(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	m := telemetry.NewManager(telemetry.ServiceCommand, dir, &config.Debug{
		LogLevel:      "debug",
		MaxLogsToKeep: 5,
		MaxLogLines:   100,
	})
	defer m.Stop()

	logger, dbLogger, err := m.GetLoggers()
	require.NoError(t, err)

	logger.Info("hello main")
	dbLogger.Debug("hello db")
	m.GetWorkerLogger("record").Info("hello worker")

	session := m.GetCurrentSessionDir()
	assert.True(t, strings.HasPrefix(session, dir))

	for _, name := range []string{"main.log", "database.log", "record.log"} {
		_, err := os.Stat(filepath.Join(session, name))
		require.NoError(t, err, name)
	}

	assert.NotEmpty(t, m.GetInstanceID())
}

func TestManagerRejectsBadLevel(t *testing.T) {
	t.Parallel()

	m := telemetry.NewManager(telemetry.ServiceTracker, t.TempDir(), &config.Debug{LogLevel: "loud", MaxLogsToKeep: 1})
	defer m.Stop()

	_, _, err := m.GetLoggers()
	require.Error(t, err)
}

func TestServiceTypeString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "tracker", telemetry.ServiceTracker.String())
	assert.Equal(t, "export", telemetry.ServiceExport.String())
}
