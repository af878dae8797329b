package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"math"
	"net/http"
	"strings"

	"budget/internal/core"
	applog "budget/internal/log"
)

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"money": func(symbol string, a core.Amount) string { return a.Format(symbol) },
		"pct":   func(v float64) string { return fmt.Sprintf("%.0f%%", v) },
		"bar":   barWidth,
		"monthName": func(i int) string {
			return core.MonthName(i)
		},
		"whole": func(f float64) core.Amount { return core.Amount(math.Round(f)) },
	}
}

// barWidth clamps a percentage to [0,100] for inline progress bar widths,
// keeping small non-zero values visible.
func barWidth(v float64) int {
	w := int(v + 0.5)
	switch {
	case w <= 0 && v > 0:
		return 2
	case w < 0:
		return 0
	case w > 100:
		return 100
	}
	return w
}

// render executes name into a buffer so a template error still yields a clean 500.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	ctx := r.Context()
	if s.templates == nil {
		applog.FromContext(ctx).ErrorContext(ctx, "Templates not loaded",
			applog.FieldPath, r.URL.Path,
			applog.FieldComponent, applog.ComponentTemplate)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		s.structured.LogError(ctx, "Template execution failed", err, applog.ComponentTemplate, applog.OpRender,
			applog.NewFields().WithHTTPRequest(r.Method, r.URL.Path, "", ""))
		http.Error(w, "error rendering page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

func isAPI(r *http.Request) bool {
	return strings.HasPrefix(r.URL.Path, "/api/")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// sanitizeInput removes control characters except tab, newline and carriage return.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
