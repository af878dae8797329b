package http

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"budget/internal/export"
	applog "budget/internal/log"
)

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	s.handleExport(w, r, "csv", export.ContentTypeCSV, export.Report.WriteCSV)
}

func (s *Server) handleExportXLSX(w http.ResponseWriter, r *http.Request) {
	s.handleExport(w, r, "xlsx", export.ContentTypeXLSX, export.Report.WriteXLSX)
}

// handleExport writes the whole file to a buffer first so a failure can
// still be reported with a proper status.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request, ext, contentType string, write func(export.Report, io.Writer) error) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}
	ctx := r.Context()
	sess, _ := sessionFrom(ctx)

	d, err := s.budgets.Dashboard(ctx, sess.UserID)
	if err != nil {
		s.writeServiceError(w, r, err, applog.OpExport)
		return
	}
	report := export.NewReport(d.Settings, d.Period1, d.Period2)

	var buf bytes.Buffer
	if err := write(report, &buf); err != nil {
		s.writeServiceError(w, r, fmt.Errorf("export %s: %w", ext, err), applog.OpExport)
		return
	}
	s.appMetrics.exports.Add(1)
	applog.FromContext(ctx).InfoContext(ctx, "Budget exported",
		applog.FieldOperation, applog.OpExport,
		"format", ext,
		"rows", len(d.Period1)+len(d.Period2))

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, report.FileName(ext)))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
