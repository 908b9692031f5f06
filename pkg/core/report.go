// pkg/core/report.go
package core

import "time"

// AnomalySummary is the per-finding entry in a report's detailed list.
// Field names follow the established report document format.
type AnomalySummary struct {
	ID         string          `json:"id"`
	Category   AnomalyCategory `json:"type"`
	Confidence float64         `json:"confidence"`
	Position   Position3D      `json:"position"`
	Timestamp  time.Time       `json:"timestamp"`
	Severity   Severity        `json:"severity"`
}

// Report is the aggregate summary of one completed inspection mission.
// It is derived once from the anomaly log and final vehicle state and is
// read-only after construction.
type Report struct {
	GeneratedAt      time.Time        `json:"inspection_date"`
	TotalAnomalies   int              `json:"total_anomalies"`
	FlightPathLength int              `json:"flight_path_length"`
	BatteryUsed      float64          `json:"battery_used"`
	ByCategory       map[string]int   `json:"anomalies_by_type"`
	BySeverity       map[string]int   `json:"anomalies_by_severity"`
	Anomalies        []AnomalySummary `json:"detailed_anomalies"`
}

// CriticalCount returns the number of critical findings in the report.
func (r *Report) CriticalCount() int {
	return r.BySeverity[string(SeverityCritical)]
}
