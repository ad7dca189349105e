package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/JonMunkholm/hobo/internal/core"
	"github.com/JonMunkholm/hobo/internal/export"
	"github.com/JonMunkholm/hobo/internal/logging"
	"github.com/JonMunkholm/hobo/internal/store"
	"github.com/JonMunkholm/hobo/internal/table"
)

// multipartMemory is how much of an upload is held in memory before
// spilling to a temp file.
const multipartMemory = 8 << 20

// ChannelInfo describes one parsed data column in API responses.
type ChannelInfo struct {
	Slot     string `json:"slot"`
	Name     string `json:"name"`
	LongName string `json:"long_name"`
	Units    string `json:"units"`
}

// ParseResponse is the JSON body returned by POST /api/parse.
type ParseResponse struct {
	*core.ParseResult
	Rows     int           `json:"rows"`
	Channels []ChannelInfo `json:"channels"`
}

func channelsOf(t *table.Table) []ChannelInfo {
	out := make([]ChannelInfo, 0, len(t.Columns))
	for _, c := range t.Columns {
		out = append(out, ChannelInfo{Slot: c.Slot.String(), Name: c.Name, LongName: c.LongName, Units: c.Units})
	}
	return out
}

// handleParse parses an uploaded export. With a format form value the
// converted table is returned as a download instead of the JSON summary.
func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	// Leave room for multipart framing around the file itself.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Parse.MaxFileSize+1<<20)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
			s.respondError(w, r, core.ErrFileTooLarge)
			return
		}
		s.respondError(w, r, fmt.Errorf("invalid csv upload: %w", err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, fh, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, r, core.ErrNoFile)
		return
	}
	defer file.Close()

	var format export.Format
	if f := r.FormValue("format"); f != "" {
		if format, err = export.ParseFormat(f); err != nil {
			s.respondError(w, r, err)
			return
		}
	}

	opts := core.ParseOptions{
		QC:     formBool(r, "qc", s.cfg.QC.EnabledByDefault),
		Store:  formBool(r, "store", false),
		Strict: formBool(r, "strict", s.cfg.Parse.StrictFields),
	}

	ctx := WithRequestMetadata(r.Context(), r)
	res, err := s.service.Parse(ctx, fh.Filename, file, fh.Size, opts)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	if format != "" {
		s.writeExport(w, r, res.FileName, res.Table, format)
		return
	}

	status := http.StatusOK
	if res.Stored != nil {
		status = http.StatusCreated
	}
	writeJSON(w, status, ParseResponse{
		ParseResult: res,
		Rows:        res.Table.Len(),
		Channels:    channelsOf(res.Table),
	})
}

func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50, 1, 500)
	offset := queryInt(r, "offset", 0, 0, 1<<30)

	files, err := s.service.ListFiles(r.Context(), limit, offset)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if files == nil {
		files = []store.File{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"files":  files,
		"limit":  limit,
		"offset": offset,
	})
}

func (s *Server) handleGetFile(w http.ResponseWriter, r *http.Request) {
	id, ok := s.fileID(w, r)
	if !ok {
		return
	}
	f, err := s.service.GetFile(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

func (s *Server) handleDeleteFile(w http.ResponseWriter, r *http.Request) {
	id, ok := s.fileID(w, r)
	if !ok {
		return
	}
	if err := s.service.DeleteFile(r.Context(), id); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleExportFile(w http.ResponseWriter, r *http.Request) {
	id, ok := s.fileID(w, r)
	if !ok {
		return
	}

	name := r.URL.Query().Get("format")
	if name == "" {
		name = string(export.CSV)
	}
	format, err := export.ParseFormat(name)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	f, t, err := s.service.LoadTable(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.writeExport(w, r, f.FileName, t, format)
}

// writeExport streams t as an attachment named after the source file.
func (s *Server) writeExport(w http.ResponseWriter, r *http.Request, sourceName string, t *table.Table, format export.Format) {
	base := strings.TrimSuffix(filepath.Base(sourceName), filepath.Ext(sourceName))
	if base == "" || base == "." {
		base = "export"
	}
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", base+"."+format.Extension()))

	if err := export.Write(w, t, format); err != nil {
		// Headers are already sent.
		logging.FromContext(r.Context()).Error("export failed", "format", format, "error", err)
	}
}

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status  string             `json:"status"`
	Storage string             `json:"storage"`
	Parses  core.LimiterStatus `json:"parses"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "ok", Storage: "disabled", Parses: s.service.LimiterStatus()}
	status := http.StatusOK

	if s.service.StorageEnabled() && s.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.db.Ping(ctx); err != nil {
			logging.FromContext(r.Context()).Warn("health: database ping failed", "error", err)
			resp.Status = "degraded"
			resp.Storage = "unreachable"
			status = http.StatusServiceUnavailable
		} else {
			resp.Storage = "ok"
		}
	}
	writeJSON(w, status, resp)
}

// fileID parses the {fileID} route parameter. A malformed id is reported as
// not found.
func (s *Server) fileID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "fileID"))
	if err != nil {
		s.respondError(w, r, store.ErrNotFound)
		return uuid.Nil, false
	}
	return id, true
}

// formBool reads a boolean form value, returning def when it is absent or
// unparseable.
func formBool(r *http.Request, key string, def bool) bool {
	v := r.FormValue(key)
	if v == "" {
		return def
	}
	if v == "on" {
		return true
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func queryInt(r *http.Request, key string, def, lo, hi int) int {
	n, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return def
	}
	return min(max(n, lo), hi)
}
