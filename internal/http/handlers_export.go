package http

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/Badr133ne/sim-charge-guardian/internal/core"
	"github.com/Badr133ne/sim-charge-guardian/internal/export"
	"github.com/Badr133ne/sim-charge-guardian/internal/log"
)

const (
	contentTypeCSV  = "text/csv; charset=utf-8"
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	sheetsTimeout = 30 * time.Second
)

type shareResponse struct {
	Mailto   string `json:"mailto"`
	Filename string `json:"filename"`
}

type sheetsExportResponse struct {
	SimID string `json:"simId"`
	Rows  int    `json:"rows"`
}

func (s *Server) exportable(r *http.Request) (core.SimCard, []core.Recharge, error) {
	sim, err := s.simFromPath(r)
	if err != nil {
		return core.SimCard{}, nil, err
	}
	recs := s.store.GetRechargesBySim(sim.ID)
	if len(recs) == 0 {
		return sim, nil, export.ErrNothingToExport
	}
	return sim, recs, nil
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	s.serveFile(w, r, "csv", contentTypeCSV, func(buf *bytes.Buffer, _ core.SimCard, recs []core.Recharge) error {
		return export.WriteCSV(buf, recs)
	})
}

func (s *Server) handleExportXLSX(w http.ResponseWriter, r *http.Request) {
	s.serveFile(w, r, "xlsx", contentTypeXLSX, func(buf *bytes.Buffer, sim core.SimCard, recs []core.Recharge) error {
		return export.WriteXLSX(buf, sim, recs)
	})
}

// serveFile renders the export in memory so a failure can still be reported
// as JSON.
func (s *Server) serveFile(w http.ResponseWriter, r *http.Request, format, contentType string, render func(*bytes.Buffer, core.SimCard, []core.Recharge) error) {
	sim, recs, err := s.exportable(r)
	if err != nil {
		fail(w, r, log.OpExport, err)
		return
	}

	var buf bytes.Buffer
	if err := render(&buf, sim, recs); err != nil {
		fail(w, r, log.OpExport, fmt.Errorf("render %s: %w", format, err))
		return
	}
	s.metrics.Exported(format)
	log.FromContext(r.Context()).WithComponent(log.ComponentExport).InfoContext(r.Context(), "Recharges exported",
		log.FieldSimID, sim.ID,
		log.FieldOperation, log.OpExport,
		"format", format,
		"rows", len(recs))

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.SuggestedFilename(sim, format)))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleExportSheets(w http.ResponseWriter, r *http.Request) {
	if s.sheets == nil {
		writeError(w, http.StatusServiceUnavailable, "Google Sheets export is not configured")
		return
	}
	sim, recs, err := s.exportable(r)
	if err != nil {
		fail(w, r, log.OpExport, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), sheetsTimeout)
	defer cancel()
	n, err := s.sheets.AppendRecharges(ctx, sim, recs)
	if err != nil {
		log.FromContext(r.Context()).WithComponent(log.ComponentExport).ErrorContext(r.Context(), "Sheets export failed",
			log.FieldSimID, sim.ID,
			log.FieldErrorType, log.ErrorTypeNetwork,
			log.FieldError, err.Error())
		writeError(w, http.StatusBadGateway, "could not write to Google Sheets")
		return
	}
	s.metrics.Exported("sheets")
	writeJSON(w, http.StatusOK, sheetsExportResponse{SimID: sim.ID, Rows: n})
}

func (s *Server) handleShare(w http.ResponseWriter, r *http.Request) {
	sim, err := s.simFromPath(r)
	if err != nil {
		fail(w, r, log.OpExport, err)
		return
	}
	writeJSON(w, http.StatusOK, shareResponse{
		Mailto:   export.MailtoLink(sim),
		Filename: export.SuggestedFilename(sim, "csv"),
	})
}
