// Package convert maps domain types onto their GORM row representations.
package convert

import (
	"encoding/json"

	"gorm.io/datatypes"

	"github.com/skyspect/inspection/internal/geo"
	"github.com/skyspect/inspection/internal/model"
	"github.com/skyspect/inspection/pkg/core"
)

// CoreToSite converts a core site to its GORM row.
func CoreToSite(s core.Site) model.Site {
	return model.Site{
		Name:      s.Name,
		Latitude:  s.Latitude,
		Longitude: s.Longitude,
	}
}

// CoreToMission converts a core mission to its GORM row. The site
// association is filled in by the caller after get-or-create.
func CoreToMission(m core.Mission) model.Mission {
	return model.Mission{
		MissionID:   m.ID,
		MissionName: m.Name,
		StartTime:   m.StartTime,
		Tag:         m.Tag,
	}
}

// CoreToTickState converts a tick record to its GORM row.
func CoreToTickState(missionID uint, rec core.TickRecord) model.TickState {
	return model.TickState{
		MissionID:     missionID,
		Tick:          rec.Tick,
		Time:          rec.Time,
		PosX:          rec.Position.X,
		PosY:          rec.Position.Y,
		PosZ:          rec.Position.Z,
		VelX:          rec.Velocity.X,
		VelY:          rec.Velocity.Y,
		VelZ:          rec.Velocity.Z,
		Battery:       rec.Battery,
		WaypointIndex: rec.WaypointIndex,
		Flying:        rec.Flying,
		Anomalies:     toJSON(rec.Anomalies),
	}
}

// CoreToAnomaly converts a finding to its GORM row, georeferencing the
// local position against the site origin.
func CoreToAnomaly(missionID uint, origin geo.Origin, a core.Anomaly) model.Anomaly {
	lon, lat, _ := origin.ToWGS84(a.Position)
	return model.Anomaly{
		MissionID:  missionID,
		AnomalyID:  a.ID,
		Category:   string(a.Category),
		Severity:   string(a.Severity),
		Confidence: a.Confidence,
		DetectedAt: a.DetectedAt,
		PosX:       a.Position.X,
		PosY:       a.Position.Y,
		PosZ:       a.Position.Z,
		Longitude:  lon,
		Latitude:   lat,
		BBox:       toJSON(a.BBox),
	}
}

// CoreToReport converts a report to its GORM row.
func CoreToReport(missionID uint, r core.Report) model.Report {
	return model.Report{
		MissionID:        missionID,
		GeneratedAt:      r.GeneratedAt,
		TotalAnomalies:   r.TotalAnomalies,
		FlightPathLength: r.FlightPathLength,
		BatteryUsed:      r.BatteryUsed,
		ByCategory:       toJSON(r.ByCategory),
		BySeverity:       toJSON(r.BySeverity),
		Details:          toJSON(r.Anomalies),
	}
}

// toJSON marshals v into a datatypes.JSON column value. Marshal errors
// degrade to an empty JSON document rather than failing the write.
func toJSON(v any) datatypes.JSON {
	data, err := json.Marshal(v)
	if err != nil {
		return datatypes.JSON("{}")
	}
	return datatypes.JSON(data)
}
