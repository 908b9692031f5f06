// Package report aggregates a completed mission's anomaly log into the
// final inspection report document.
package report

import (
	"time"

	"github.com/skyspect/inspection/pkg/core"
)

// Build derives a report from the mission's accumulated anomalies and
// final vehicle state. It reads its inputs without retaining them, so
// callers may keep mutating the originals afterwards.
func Build(anomalies []core.Anomaly, vehicle core.VehicleState, generatedAt time.Time) core.Report {
	r := core.Report{
		GeneratedAt:      generatedAt,
		TotalAnomalies:   len(anomalies),
		FlightPathLength: len(vehicle.FlightPath),
		BatteryUsed:      vehicle.BatteryUsed(),
		ByCategory:       make(map[string]int),
		BySeverity:       make(map[string]int),
		Anomalies:        make([]core.AnomalySummary, 0, len(anomalies)),
	}

	for _, a := range anomalies {
		r.ByCategory[string(a.Category)]++
		r.BySeverity[string(a.Severity)]++
		r.Anomalies = append(r.Anomalies, core.AnomalySummary{
			ID:         a.ID,
			Category:   a.Category,
			Confidence: a.Confidence,
			Position:   a.Position,
			Timestamp:  a.DetectedAt,
			Severity:   a.Severity,
		})
	}

	return r
}
