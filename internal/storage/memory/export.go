// internal/storage/memory/export.go
package memory

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/skyspect/inspection/internal/geo"
	"github.com/skyspect/inspection/pkg/core"
)

// InspectionExport is the root JSON structure written at mission end.
type InspectionExport struct {
	FormatVersion int               `json:"formatVersion"`
	MissionID     string            `json:"missionId"`
	MissionName   string            `json:"missionName"`
	Tag           string            `json:"tag"`
	Site          core.Site         `json:"site"`
	StartTime     time.Time         `json:"startTime"`
	FlightPathWKT string            `json:"flightPathWkt,omitempty"`
	Report        *core.Report      `json:"report"`
	Ticks         []core.TickRecord `json:"ticks"`
	Anomalies     []core.Anomaly    `json:"anomalies"`
}

// buildExport assembles the export document from the recorded mission.
// Callers must hold b.mu.
func (b *Backend) buildExport() InspectionExport {
	export := InspectionExport{
		FormatVersion: 1,
		MissionID:     b.mission.ID,
		MissionName:   b.mission.Name,
		Tag:           b.mission.Tag,
		Site:          b.mission.Site,
		StartTime:     b.mission.StartTime,
		Report:        b.report,
		Ticks:         b.ticks,
		Anomalies:     b.anomalies,
	}

	positions := make([]core.Position3D, 0, len(b.ticks))
	for _, rec := range b.ticks {
		positions = append(positions, rec.Position)
	}
	if wkt, err := geo.FlightPathWKT(b.origin, positions); err == nil {
		export.FlightPathWKT = wkt
	}

	return export
}

// exportJSON writes the mission document to a JSON file. Callers must
// hold b.mu.
func (b *Backend) exportJSON() error {
	export := b.buildExport()

	// Build filename
	missionName := strings.ReplaceAll(b.mission.Name, " ", "_")
	missionName = strings.ReplaceAll(missionName, ":", "_")
	timestamp := b.mission.StartTime.Format("20060102_150405")

	var filename string
	if b.cfg.CompressOutput {
		filename = fmt.Sprintf("%s_%s.json.gz", missionName, timestamp)
	} else {
		filename = fmt.Sprintf("%s_%s.json", missionName, timestamp)
	}

	outputPath := filepath.Join(b.cfg.OutputDir, filename)

	// Ensure output directory exists
	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	var err error
	if b.cfg.CompressOutput {
		err = b.writeGzipJSON(outputPath, export)
	} else {
		err = b.writeJSON(outputPath, export)
	}
	if err != nil {
		return err
	}

	b.lastExportPath = outputPath
	return nil
}

func (b *Backend) writeJSON(path string, data InspectionExport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	return encoder.Encode(data)
}

func (b *Backend) writeGzipJSON(path string, data InspectionExport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	gzWriter := gzip.NewWriter(f)
	defer gzWriter.Close()

	encoder := json.NewEncoder(gzWriter)
	return encoder.Encode(data)
}
