package telemetry

import (
	"bufio"
	"compress/gzip"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skyspect/inspection/pkg/core"
)

func testMission() *core.Mission {
	return &core.Mission{
		ID:   "m-042",
		Name: "Deck Sweep",
		Site: core.Site{Name: "Main Street Bridge"},
	}
}

func TestTickPointFields(t *testing.T) {
	rec := &core.TickRecord{
		Tick:          7,
		Time:          time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC),
		Position:      core.Position3D{X: 100, Y: 0, Z: 30},
		Velocity:      core.Position3D{X: 3, Y: 4, Z: 0},
		Battery:       93.5,
		WaypointIndex: 2,
		Flying:        true,
		Anomalies:     []core.Anomaly{{ID: "crack_1"}},
	}

	p := TickPoint(testMission(), rec)
	line := influxdb2_write.PointToLineProtocol(p, time.Nanosecond)

	assert.Contains(t, line, "flight_tick")
	assert.Contains(t, line, "mission_id=m-042")
	assert.Contains(t, line, "battery=93.5")
	assert.Contains(t, line, "speed=5")
	assert.Contains(t, line, "altitude=30")
	assert.Contains(t, line, "anomaly_count=1i")
}

func TestAnomalyPointFields(t *testing.T) {
	a := &core.Anomaly{
		ID:         "rust_1",
		Category:   core.CategoryRust,
		Severity:   core.SeverityMedium,
		Confidence: 0.72,
		Position:   core.Position3D{X: 40, Y: 10, Z: 50},
		DetectedAt: time.Date(2026, 5, 1, 12, 0, 5, 0, time.UTC),
	}

	p := AnomalyPoint(testMission(), a)
	line := influxdb2_write.PointToLineProtocol(p, time.Nanosecond)

	assert.Contains(t, line, "anomaly")
	assert.Contains(t, line, "category=rust")
	assert.Contains(t, line, "severity=medium")
	assert.Contains(t, line, "confidence=0.72")
}

func TestConnectDisabledFails(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("influx.enabled", false)

	m := NewManager(zerolog.Nop(), filepath.Join(t.TempDir(), "backup.lp.gz"))
	assert.Error(t, m.Connect())
}

func TestBackupWriterFallback(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("influx.bucket", "flight_telemetry")

	backupPath := filepath.Join(t.TempDir(), "backup.lp.gz")
	m := NewManager(zerolog.Nop(), backupPath)

	file, err := os.OpenFile(backupPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	require.NoError(t, err)
	m.backupFile = file
	m.BackupWriter = gzip.NewWriter(file)

	rec := &core.TickRecord{Tick: 1, Time: time.Now(), Battery: 99}
	require.NoError(t, m.WritePoint(context.Background(), "flight_telemetry", TickPoint(testMission(), rec)))
	require.NoError(t, m.Close())

	f, err := os.Open(backupPath)
	require.NoError(t, err)
	defer f.Close()

	gz, err := gzip.NewReader(f)
	require.NoError(t, err)
	defer gz.Close()

	scanner := bufio.NewScanner(gz)
	require.True(t, scanner.Scan())
	assert.Contains(t, scanner.Text(), "flight_tick")
}

func TestWritePointWithoutWriterFails(t *testing.T) {
	t.Cleanup(viper.Reset)
	m := NewManager(zerolog.Nop(), "")

	rec := &core.TickRecord{Tick: 1, Time: time.Now()}
	assert.Error(t, m.WritePoint(context.Background(), "flight_telemetry", TickPoint(testMission(), rec)))
}
