package web

import (
	"net/http"

	"github.com/JonMunkholm/hobo/internal/export"
	"github.com/JonMunkholm/hobo/internal/logging"
	"github.com/JonMunkholm/hobo/internal/web/templates"
)

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	data := templates.DashboardData{
		Parses:         s.service.LimiterStatus(),
		StorageEnabled: s.service.StorageEnabled(),
		QCDefault:      s.cfg.QC.EnabledByDefault,
		APIKeyRequired: s.cfg.Security.RequireAPIKey,
		Formats:        export.Formats,
	}
	if data.StorageEnabled && !data.APIKeyRequired {
		files, err := s.service.ListFiles(r.Context(), 20, 0)
		if err != nil {
			logging.FromContext(r.Context()).Warn("dashboard: list files failed", "error", err)
		}
		data.Files = files
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.Dashboard(data).Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("dashboard render failed", "error", err)
	}
}
