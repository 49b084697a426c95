package runlog

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenNamesFileByRunStart(t *testing.T) {
	dir := t.TempDir()
	start := time.Date(2026, 8, 31, 14, 5, 9, 0, time.Local)

	log, err := Open(dir, start)
	require.NoError(t, err)
	defer log.Close()

	assert.Equal(t, filepath.Join(dir, "traffic-20260831-140509.log"), log.Path())
	_, err = os.Stat(log.Path())
	assert.NoError(t, err)
}

func TestOpenCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "logs")

	log, err := Open(dir, time.Now())
	require.NoError(t, err)
	defer log.Close()

	_, err = os.Stat(dir)
	assert.NoError(t, err)
}

func TestLinesAppendInOrder(t *testing.T) {
	log, err := Open(t.TempDir(), time.Now())
	require.NoError(t, err)

	log.Printf("first %s", "line")
	log.Printf("second")
	require.NoError(t, log.Close())

	data, err := os.ReadFile(log.Path())
	require.NoError(t, err)
	assert.Equal(t, "first line\nsecond\n", string(data))
}

func TestWriteHeader(t *testing.T) {
	log, err := Open(t.TempDir(), time.Now())
	require.NoError(t, err)

	start := time.Date(2026, 8, 31, 9, 0, 0, 0, time.Local)
	log.WriteHeader(start, HostInfo{
		Hostname: "demo-box",
		Platform: "debian 12 (linux)",
		Kernel:   "6.1.0",
		Uptime:   90 * time.Minute,
		CPUs:     4,
		MemTotal: 8 * 1024 * 1024 * 1024,
	})
	require.NoError(t, log.Close())

	data, err := os.ReadFile(log.Path())
	require.NoError(t, err)
	text := string(data)

	assert.Contains(t, text, "Traffic Generator for Firewall Demo")
	assert.Contains(t, text, "run started 2026-08-31 09:00:00")
	assert.Contains(t, text, "demo-box")
	assert.Contains(t, text, "cpus: 4")
	assert.Contains(t, text, "8192 MiB")
}

func TestCollectHostIsBestEffort(t *testing.T) {
	info := CollectHost(context.Background())
	// Only CPU count is guaranteed everywhere
	assert.Greater(t, info.CPUs, 0)
}
