package logging

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"
)

// LogFilePath builds a log file path using OS-appropriate path separators.
func LogFilePath(logsDir, appName string, sessionStart time.Time) string {
	return filepath.Join(
		logsDir,
		fmt.Sprintf("%s.%s.log", appName, sessionStart.Format("20060102_150405")),
	)
}

// MissionAttrs stamps every log record with the active mission id.
func MissionAttrs(missionID string) ContextProvider {
	return func() []slog.Attr {
		return []slog.Attr{slog.String("mission", missionID)}
	}
}
