// Package templates holds the templ components of the dashboard.
package templates

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/JonMunkholm/hobo/internal/core"
	"github.com/JonMunkholm/hobo/internal/export"
	"github.com/JonMunkholm/hobo/internal/store"
)

// DashboardData is what the dashboard page renders.
type DashboardData struct {
	Parses         core.LimiterStatus
	StorageEnabled bool
	QCDefault      bool

	// APIKeyRequired hides the upload form and the stored files, since a
	// browser form cannot send the key.
	APIKeyRequired bool

	Files   []store.File
	Formats []export.Format
}

func exportURL(id uuid.UUID, f export.Format) string {
	return fmt.Sprintf("/api/files/%s/export?format=%s", id, f)
}

func parseLoad(s core.LimiterStatus) string {
	return fmt.Sprintf("%d of %d", s.Active, s.MaxConcurrent)
}
