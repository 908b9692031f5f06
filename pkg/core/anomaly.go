// pkg/core/anomaly.go
package core

import (
	"fmt"
	"time"
)

// AnomalyCategory identifies the kind of structural defect a detector is
// specialized for. The set is closed: every anomaly carries one of the
// categories below.
type AnomalyCategory string

const (
	CategoryCrack     AnomalyCategory = "crack"
	CategoryRust      AnomalyCategory = "rust"
	CategoryLooseBolt AnomalyCategory = "loose_bolt"
	CategoryCorrosion AnomalyCategory = "corrosion"
)

// Categories lists all known anomaly categories in detector registration order.
var Categories = []AnomalyCategory{
	CategoryCrack,
	CategoryRust,
	CategoryLooseBolt,
	CategoryCorrosion,
}

// Valid returns true if the category is one of the known set.
func (c AnomalyCategory) Valid() bool {
	switch c {
	case CategoryCrack, CategoryRust, CategoryLooseBolt, CategoryCorrosion:
		return true
	}
	return false
}

// Severity is the ordered urgency classification of a finding:
// low < medium < high < critical.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Severities lists all severities in ascending order of urgency.
var Severities = []Severity{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}

// Rank returns the ordinal position of the severity (low=0 .. critical=3),
// or -1 for an unknown value.
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 0
	case SeverityMedium:
		return 1
	case SeverityHigh:
		return 2
	case SeverityCritical:
		return 3
	}
	return -1
}

// Valid returns true if the severity is one of the known set.
func (s Severity) Valid() bool {
	return s.Rank() >= 0
}

// BBox is a bounding region in camera-frame pixel space.
type BBox struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Anomaly is an immutable record of one detected defect. Anomalies are
// created inside the detection pipeline, appended to the mission's audit
// log, and never mutated or removed afterwards.
type Anomaly struct {
	ID         string          `json:"id"`
	Category   AnomalyCategory `json:"type"`
	Confidence float64         `json:"confidence"`
	Position   Position3D      `json:"position"`
	DetectedAt time.Time       `json:"timestamp"`
	BBox       BBox            `json:"bbox"`
	Severity   Severity        `json:"severity"`
}

// AnomalyID builds the identifier for a finding: the category plus a
// high-resolution timestamp token.
func AnomalyID(category AnomalyCategory, at time.Time) string {
	return fmt.Sprintf("%s_%d", category, at.UnixNano())
}
