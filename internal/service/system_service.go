package service

import (
	"database/sql"
	"runtime"

	"github.com/fundfolio/tax-lot-engine/internal/database"
)

// Version is set at build time via -ldflags.
var Version = "dev"

// SystemService handles health and version reporting.
type SystemService struct {
	db *sql.DB
}

// NewSystemService creates a new SystemService with the provided database connection.
func NewSystemService(db *sql.DB) *SystemService {
	return &SystemService{db: db}
}

// VersionInfo describes the running build.
type VersionInfo struct {
	Version   string `json:"version"`
	GoVersion string `json:"goVersion"`
}

// Health reports whether the database connection is usable.
func (s *SystemService) Health() error {
	return database.HealthCheck(s.db)
}

// GetVersionInfo returns the build version and Go runtime version.
func (s *SystemService) GetVersionInfo() VersionInfo {
	return VersionInfo{
		Version:   Version,
		GoVersion: runtime.Version(),
	}
}
