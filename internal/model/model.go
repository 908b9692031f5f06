package model

import (
	"database/sql"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// DatabaseModels is a list of all the structs exported here which represent tables in the database schema
var DatabaseModels = []interface{}{
	&Site{},
	&Mission{},
	&TickState{},
	&Anomaly{},
	&Report{},
}

// Site is an inspected structure. Sites are shared across missions, so
// repeated surveys of the same bridge reference one row.
type Site struct {
	gorm.Model
	Name      string  `json:"name" gorm:"size:200;index:idx_site_name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func (*Site) TableName() string {
	return "sites"
}

// Mission is one inspection flight over a site.
type Mission struct {
	gorm.Model
	MissionID   string       `json:"missionId" gorm:"size:64;index:idx_mission_external_id"`
	MissionName string       `json:"missionName" gorm:"size:200"`
	StartTime   time.Time    `json:"missionStart" gorm:"type:timestamptz;index:idx_mission_start"`
	EndTime     sql.NullTime `json:"missionEnd" gorm:"type:timestamptz"`
	Tag         string       `json:"tag" gorm:"size:127"`
	SiteID      uint
	Site        Site `gorm:"foreignkey:SiteID"`

	// Georeferenced flight path as WKT, filled in at mission end.
	FlightPath string `json:"flightPath" gorm:"type:text"`

	TickStates []TickState
	Anomalies  []Anomaly
}

// TickState is one per-tick sample of the vehicle state.
type TickState struct {
	gorm.Model
	MissionID uint    `json:"missionId" gorm:"index:idx_tickstate_mission_id"`
	Mission   Mission `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:MissionID;"`

	Tick int       `json:"tick" gorm:"index:idx_tickstate_tick"`
	Time time.Time `json:"time" gorm:"type:timestamptz"`

	// Local frame position and velocity, metres and m/s.
	PosX float64 `json:"posX"`
	PosY float64 `json:"posY"`
	PosZ float64 `json:"posZ"`
	VelX float64 `json:"velX"`
	VelY float64 `json:"velY"`
	VelZ float64 `json:"velZ"`

	Battery       float64 `json:"battery"`
	WaypointIndex int     `json:"waypointIndex"`
	Flying        bool    `json:"flying"`

	// Findings of this tick as a JSON array, empty most ticks.
	Anomalies datatypes.JSON `json:"anomalies"`
}

// Anomaly is one detected finding, georeferenced for map display.
type Anomaly struct {
	gorm.Model
	MissionID uint    `json:"missionId" gorm:"index:idx_anomaly_mission_id"`
	Mission   Mission `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:MissionID;"`

	AnomalyID  string    `json:"anomalyId" gorm:"size:64;index:idx_anomaly_external_id"`
	Category   string    `json:"type" gorm:"size:32;index:idx_anomaly_category"`
	Severity   string    `json:"severity" gorm:"size:16;index:idx_anomaly_severity"`
	Confidence float64   `json:"confidence"`
	DetectedAt time.Time `json:"timestamp" gorm:"type:timestamptz"`

	// Local frame position at detection time.
	PosX float64 `json:"posX"`
	PosY float64 `json:"posY"`
	PosZ float64 `json:"posZ"`

	// WGS84 position derived from the site origin.
	Longitude float64 `json:"longitude"`
	Latitude  float64 `json:"latitude"`

	// Frame bounding box as JSON {x, y, width, height}.
	BBox datatypes.JSON `json:"bbox"`
}

// Report is the aggregate summary row written at mission end.
type Report struct {
	gorm.Model
	MissionID uint    `json:"missionId" gorm:"index:idx_report_mission_id"`
	Mission   Mission `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:MissionID;"`

	GeneratedAt      time.Time `json:"inspection_date" gorm:"type:timestamptz"`
	TotalAnomalies   int       `json:"total_anomalies"`
	FlightPathLength int       `json:"flight_path_length"`
	BatteryUsed      float64   `json:"battery_used"`

	ByCategory datatypes.JSON `json:"anomalies_by_type"`
	BySeverity datatypes.JSON `json:"anomalies_by_severity"`
	Details    datatypes.JSON `json:"detailed_anomalies"`
}
