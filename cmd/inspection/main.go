// Command inspection runs one simulated drone inspection mission: it
// flies the configured flight plan tick by tick, runs the detection
// pipeline on every captured frame, streams records to the configured
// storage backends, and writes the final report artifacts.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"github.com/skyspect/inspection/internal/api"
	"github.com/skyspect/inspection/internal/camera"
	"github.com/skyspect/inspection/internal/chart"
	"github.com/skyspect/inspection/internal/config"
	"github.com/skyspect/inspection/internal/detect"
	"github.com/skyspect/inspection/internal/dispatch"
	"github.com/skyspect/inspection/internal/geo"
	"github.com/skyspect/inspection/internal/logging"
	"github.com/skyspect/inspection/internal/mission"
	intOtel "github.com/skyspect/inspection/internal/otel"
	"github.com/skyspect/inspection/internal/report"
	"github.com/skyspect/inspection/internal/sim"
	"github.com/skyspect/inspection/internal/storage"
	"github.com/skyspect/inspection/internal/telemetry"
	"github.com/skyspect/inspection/pkg/core"
)

var (
	Version   = "0.1.0"
	BuildDate = "unknown"
)

// maxTicks bounds a run so a bad flight plan cannot spin forever.
const maxTicks = 100_000

func main() {
	configDir := flag.String("config", ".", "directory containing inspection.cfg.json")
	missionName := flag.String("mission", "", "override the configured mission name")
	flag.Parse()

	if err := run(*configDir, *missionName); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(configDir, missionName string) error {
	sessionStart := time.Now()
	currentMissionID := fmt.Sprintf("m-%d", sessionStart.Unix())

	// Defaults apply even when no config file is present.
	if err := config.Load(configDir); err != nil {
		fmt.Fprintln(os.Stderr, "no config file loaded, using defaults:", err)
	}

	logsDir := config.GetString("logsDir")
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return fmt.Errorf("failed to create logs directory: %w", err)
	}
	logFile, err := os.Create(logging.LogFilePath(logsDir, "inspection", sessionStart))
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}
	defer logFile.Close()

	slogManager := logging.NewSlogManager()
	slogManager.Setup(logFile, config.GetString("logLevel"), nil)

	// Optional OTel log export; re-setup stamps every record with the
	// session's mission id.
	otelCfg := config.GetOTelConfig()
	otelProvider, err := intOtel.New(intOtel.Config{
		Enabled:      otelCfg.Enabled,
		ServiceName:  otelCfg.ServiceName,
		BatchTimeout: otelCfg.BatchTimeout,
		LogWriter:    logFile,
		Endpoint:     otelCfg.Endpoint,
		Insecure:     otelCfg.Insecure,
	})
	if err != nil {
		return fmt.Errorf("failed to init otel: %w", err)
	}
	var otelLogProvider *sdklog.LoggerProvider
	if otelProvider.Enabled() {
		otelLogProvider = otelProvider.LoggerProvider()
	}
	slogManager.Setup(logFile, config.GetString("logLevel"), otelLogProvider,
		logging.MissionAttrs(currentMissionID))
	logger := slogManager.Logger()
	logger.Info("inspection simulator starting", "version", Version, "buildDate", BuildDate)

	zlog := zerolog.New(logFile).With().Timestamp().Logger()

	siteCfg := config.GetSiteConfig()
	origin := geo.NewOrigin(siteCfg.Latitude, siteCfg.Longitude)

	// Storage backends.
	storageCfg := config.GetStorageConfig()
	backends, err := storage.NewBackends(storageCfg, storage.Dependencies{
		Origin: origin,
		Logger: logger,
		DBLog:  zlog,
	})
	if err != nil {
		return fmt.Errorf("failed to build storage backends: %w", err)
	}
	for _, be := range backends {
		if err := be.Init(); err != nil {
			return fmt.Errorf("failed to init storage backend: %w", err)
		}
	}
	defer func() {
		for _, be := range backends {
			if err := be.Close(); err != nil {
				logger.Error("storage backend close failed", "error", err)
			}
		}
	}()

	// Event bus fanning controller output to the sinks.
	bus, err := dispatch.New(logging.NewBusLogger(zlog))
	if err != nil {
		return fmt.Errorf("failed to create event bus: %w", err)
	}
	defer bus.Close()
	registerStorageSinks(bus, backends)

	// Build the mission before telemetry wiring so points can carry its id.
	missionCfg := config.GetMissionConfig()
	name := missionCfg.Name
	if missionName != "" {
		name = missionName
	}
	plan, err := buildPlan()
	if err != nil {
		return fmt.Errorf("invalid flight plan: %w", err)
	}
	m := core.Mission{
		ID:        currentMissionID,
		Name:      name,
		Site:      core.Site{Name: siteCfg.Name, Latitude: siteCfg.Latitude, Longitude: siteCfg.Longitude},
		StartTime: sessionStart,
		Tag:       missionCfg.Tag,
		Plan:      plan,
	}

	// Optional InfluxDB telemetry.
	influxCfg := config.GetInfluxConfig()
	if influxCfg.Enabled {
		if err := os.MkdirAll(influxCfg.BackupDir, 0755); err != nil {
			return fmt.Errorf("failed to create influx backup directory: %w", err)
		}
		backupPath := filepath.Join(influxCfg.BackupDir, fmt.Sprintf("telemetry_%s.lp.gz", sessionStart.Format("20060102_150405")))
		tm := telemetry.NewManager(zlog, backupPath)
		if err := tm.Connect(); err != nil {
			logger.Warn("telemetry disabled", "error", err)
		} else {
			defer tm.Close()
			registerTelemetrySink(bus, tm, &m, influxCfg.Bucket)
		}
	}

	// Detection pipeline, camera, motion model, controller.
	detectCfg := config.GetDetectConfig()
	seed := detectCfg.Seed
	if seed == 0 {
		seed = sessionStart.UnixNano()
	}
	pipeline, err := detect.New(detect.DefaultProfiles(), rand.New(rand.NewSource(seed)), logger)
	if err != nil {
		return fmt.Errorf("failed to build detection pipeline: %w", err)
	}
	frames := camera.NewSource(rand.New(rand.NewSource(seed + 1)))
	motion := sim.New(sim.Config{
		MaxSpeed:      missionCfg.MaxSpeed,
		ArrivalRadius: missionCfg.ArrivalRadius,
		BatteryDrain:  missionCfg.BatteryDrain,
	}, logger)

	ctrl, err := mission.NewController(motion, pipeline, frames, bus, logger)
	if err != nil {
		return fmt.Errorf("failed to build mission controller: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := ctrl.Start(m); err != nil {
		return fmt.Errorf("failed to start mission: %w", err)
	}

	fmt.Println("Starting bridge inspection mission...")

	dt := missionCfg.TickSeconds
	ticker := time.NewTicker(time.Duration(dt * float64(time.Second)))
	defer ticker.Stop()

loop:
	for tick := 0; tick < maxTicks; tick++ {
		select {
		case <-ctx.Done():
			logger.Warn("mission interrupted")
			break loop
		case <-ticker.C:
			phase, err := ctrl.Tick(ctx, dt)
			if err != nil {
				return fmt.Errorf("tick failed: %w", err)
			}
			if phase == mission.PhaseComplete {
				break loop
			}
		}
	}

	snap := ctrl.Snapshot()
	rep := report.Build(snap.Anomalies, snap.Vehicle, time.Now())

	for _, be := range backends {
		if err := be.EndMission(&rep); err != nil {
			logger.Error("storage backend end-mission failed", "error", err)
		}
	}
	apiCfg := config.GetAPIConfig()
	for _, be := range backends {
		exp, ok := be.(storage.Exportable)
		if !ok || exp.LastExportPath() == "" {
			continue
		}
		fmt.Printf("\nDetailed report saved to: %s\n", exp.LastExportPath())

		if apiCfg.Enabled {
			client := api.New(apiCfg.URL, apiCfg.Key)
			if err := client.Upload(exp.LastExportPath(), &snap.Mission, &rep); err != nil {
				logger.Error("report upload failed", "error", err)
			} else {
				logger.Info("report uploaded", "url", apiCfg.URL)
			}
		}
	}

	chartCfg := config.GetChartConfig()
	if chartCfg.Enabled {
		ticks := collectTicks(snap)
		if path, err := chart.Render(chartCfg, &snap.Mission, ticks, snap.Anomalies); err != nil {
			logger.Error("chart render failed", "error", err)
		} else {
			fmt.Printf("Flight chart saved to: %s\n", path)
		}
	}

	printSummary(&rep)

	if err := slogManager.Flush(ctx); err != nil {
		logger.Error("log flush failed", "error", err)
	}
	if otelProvider.Enabled() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelProvider.Shutdown(shutdownCtx); err != nil {
			logger.Error("otel shutdown failed", "error", err)
		}
	}
	return nil
}

// registerStorageSinks delivers mission records to every backend in
// publish order. Delivery is synchronous so a backend never sees a tick
// after the mission report.
func registerStorageSinks(bus *dispatch.Bus, backends []storage.Backend) {
	for i, be := range backends {
		be := be
		name := fmt.Sprintf("storage-%d", i)
		bus.Subscribe(dispatch.TopicMissionStart, name, func(e dispatch.Event) error {
			m := e.Payload.(core.Mission)
			return be.StartMission(&m)
		}, dispatch.Logged())
		bus.Subscribe(dispatch.TopicTick, name, func(e dispatch.Event) error {
			rec := e.Payload.(core.TickRecord)
			return be.RecordTick(&rec)
		})
		bus.Subscribe(dispatch.TopicAnomaly, name, func(e dispatch.Event) error {
			a := e.Payload.(core.Anomaly)
			return be.RecordAnomaly(&a)
		})
	}
}

// registerTelemetrySink ships tick and anomaly measurements to InfluxDB.
// Buffered: a slow or unreachable server must not stall the tick loop.
func registerTelemetrySink(bus *dispatch.Bus, tm *telemetry.Manager, m *core.Mission, bucket string) {
	bus.Subscribe(dispatch.TopicTick, "telemetry", func(e dispatch.Event) error {
		rec := e.Payload.(core.TickRecord)
		return tm.WritePoint(context.Background(), bucket, telemetry.TickPoint(m, &rec))
	}, dispatch.Buffered(1024), dispatch.Logged())
	bus.Subscribe(dispatch.TopicAnomaly, "telemetry", func(e dispatch.Event) error {
		a := e.Payload.(core.Anomaly)
		return tm.WritePoint(context.Background(), bucket, telemetry.AnomalyPoint(m, &a))
	}, dispatch.Buffered(256), dispatch.Logged())
}

// buildPlan reads the configured flight plan, falling back to the bridge
// demo route.
func buildPlan() ([]core.Waypoint, error) {
	specs := viper.GetStringSlice("mission.plan")
	if len(specs) > 0 {
		return geo.ParsePlan(specs)
	}
	return []core.Waypoint{
		core.NewWaypoint(0, 0, 50, "start"),
		core.NewWaypoint(100, 0, 50, "bridge_approach"),
		core.NewWaypoint(200, 0, 30, "bridge_deck"),
		core.NewWaypoint(300, 0, 30, "bridge_center"),
		core.NewWaypoint(400, 0, 30, "bridge_end"),
		core.NewWaypoint(500, 0, 50, "completion"),
	}, nil
}

func collectTicks(snap mission.Snapshot) []core.TickRecord {
	ticks := make([]core.TickRecord, 0, len(snap.Vehicle.FlightPath))
	for i, pos := range snap.Vehicle.FlightPath {
		ticks = append(ticks, core.TickRecord{Tick: i + 1, Position: pos})
	}
	return ticks
}

func printSummary(rep *core.Report) {
	fmt.Println()
	fmt.Println("==================================================")
	fmt.Println("INSPECTION REPORT")
	fmt.Println("==================================================")
	fmt.Printf("Date: %s\n", rep.GeneratedAt.Format(time.RFC3339))
	fmt.Printf("Total Anomalies Detected: %d\n", rep.TotalAnomalies)
	fmt.Printf("Battery Used: %.1f%%\n", rep.BatteryUsed)
	fmt.Printf("Flight Path Points: %d\n", rep.FlightPathLength)

	fmt.Println("\nAnomalies by Type:")
	for _, cat := range core.Categories {
		if count, ok := rep.ByCategory[string(cat)]; ok {
			fmt.Printf("  %s: %d\n", cat, count)
		}
	}

	fmt.Println("\nAnomalies by Severity:")
	for _, sev := range core.Severities {
		if count, ok := rep.BySeverity[string(sev)]; ok {
			fmt.Printf("  %s: %d\n", sev, count)
		}
	}
}
