package http

import (
	"errors"
	"net/http"

	"budget/internal/core"
	applog "budget/internal/log"
	"budget/internal/period"
)

// handleDashboard renders the full dashboard page.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}
	ctx := r.Context()
	sess, _ := sessionFrom(ctx)

	d, err := s.budgets.Dashboard(ctx, sess.UserID)
	if err != nil {
		s.writeServiceError(w, r, err, applog.OpRead)
		return
	}
	if d.Warning != "" {
		s.appMetrics.syncWarnings.Add(1)
	}
	s.render(w, r, http.StatusOK, "dashboard.html", newDashboardPage(sess.Email, d))
}

// handleGoals renders the goal panel; the page reloads it on budget:updated.
func (s *Server) handleGoals(w http.ResponseWriter, r *http.Request) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}
	ctx := r.Context()
	sess, _ := sessionFrom(ctx)

	d, err := s.budgets.Dashboard(ctx, sess.UserID)
	if err != nil {
		s.writeServiceError(w, r, err, applog.OpRead)
		return
	}
	s.render(w, r, http.StatusOK, "goals", newGoalsView(d))
}

// handleUpdateMonth applies a single field edit to one month.
//
// HTMX callers get the re-rendered dashboard body, JSON callers the derived
// month, and plain form posts a redirect back to the dashboard.
func (s *Server) handleUpdateMonth(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	ctx := r.Context()
	sess, _ := sessionFrom(ctx)

	p, err := core.ParsePeriod(r.PathValue("period"))
	if err != nil {
		s.writeServiceError(w, r, err, applog.OpUpdate)
		return
	}
	monthID := r.PathValue("id")
	if _, _, err := core.ParseMonthID(monthID); err != nil {
		s.writeServiceError(w, r, err, applog.OpUpdate)
		return
	}

	parser := NewRequestBodyParser(r)
	edit, err := ParseMonthEdit(parser)
	if err != nil {
		s.writeServiceError(w, r, err, applog.OpValidate)
		return
	}

	res, err := s.budgets.UpdateMonth(ctx, sess.UserID, p, monthID, edit)
	if err != nil {
		s.writeServiceError(w, r, err, applog.OpUpdate)
		return
	}
	s.appMetrics.monthEdits.Add(1)
	if res.Warning != "" {
		s.appMetrics.syncWarnings.Add(1)
	}
	s.structured.LogMonthUpdated(ctx, sess.UserID, p.String(), monthID, string(edit.Field), int64(edit.Value))

	switch {
	case isHTMX(r):
		d, err := s.budgets.Dashboard(ctx, sess.UserID)
		if err != nil {
			s.writeServiceError(w, r, err, applog.OpRead)
			return
		}
		d.Warning = res.Warning
		s.renderWithTriggers(w, r, "dashboard_body", newDashboardPage(sess.Email, d),
			NewHTMXResponse().TriggerBudgetUpdated(res.Version).TriggerWarningNotification(res.Warning))
	case parser.IsJSON():
		d1, d2 := period.ChainPeriods(res.Data.Period1, res.Data.Period2)
		derived := d1
		if p == core.Period2 {
			derived = d2
		}
		for _, m := range derived {
			if m.ID == monthID {
				writeJSON(w, http.StatusOK, map[string]any{
					"month":   m,
					"version": res.Version,
					"warning": res.Warning,
				})
				return
			}
		}
		s.writeServiceError(w, r, period.ErrMonthNotFound, applog.OpRead)
	default:
		http.Redirect(w, r, "/", http.StatusSeeOther)
	}
}

// handleSave persists the current budget and queues it for sync.
func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	ctx := r.Context()
	sess, _ := sessionFrom(ctx)

	res, err := s.budgets.SaveCurrent(ctx, sess.UserID)
	if err != nil {
		s.writeServiceError(w, r, err, applog.OpSync)
		return
	}
	s.appMetrics.saves.Add(1)
	if res.Warning != "" {
		s.appMetrics.syncWarnings.Add(1)
	}
	s.structured.LogBudgetSaved(ctx, sess.UserID, res.Version, res.Warning)

	if !isHTMX(r) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	resp := NewHTMXResponse().Status(http.StatusNoContent).TriggerBudgetUpdated(res.Version)
	if res.Warning != "" {
		resp.TriggerWarningNotification(res.Warning)
	} else {
		resp.TriggerSuccessNotification("Budget saved")
	}
	resp.Write(w)
}

// handleAPIDashboard returns the dashboard figures as JSON.
func (s *Server) handleAPIDashboard(w http.ResponseWriter, r *http.Request) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}
	ctx := r.Context()
	sess, _ := sessionFrom(ctx)

	d, err := s.budgets.Dashboard(ctx, sess.UserID)
	if err != nil {
		s.writeServiceError(w, r, err, applog.OpRead)
		return
	}
	resp := map[string]any{
		"settings":      d.Settings,
		"source":        d.Source,
		"period1Months": d.Period1,
		"period2Months": d.Period2,
		"summaries":     []core.PeriodSummary{d.Summary1, d.Summary2},
		"goal":          d.Goal,
		"projection":    d.Projection,
		"goals":         d.GoalShares,
	}
	if d.Warning != "" {
		resp["warning"] = d.Warning
	}
	if d.HasCurrent {
		resp["currentMonth"] = d.Current.Month
	}
	writeJSON(w, http.StatusOK, resp)
}

// renderWithTriggers renders a partial carrying the builder's headers and triggers.
func (s *Server) renderWithTriggers(w http.ResponseWriter, r *http.Request, name string, data any, b *HTMXResponseBuilder) {
	b.applyHeaders(w.Header())
	s.render(w, r, b.statusCode, name, data)
}

// writeServiceError maps domain errors to status codes. Validation problems
// are 422, unknown months or periods 404, everything else 500.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error, op string) {
	ctx := r.Context()
	status := http.StatusInternalServerError
	msg := "Something went wrong. Please try again."

	switch {
	case errors.Is(err, core.ErrInvalidAmount):
		status, msg = http.StatusUnprocessableEntity, "Amounts must be whole numbers using digits only."
	case errors.Is(err, core.ErrFieldNotEditable):
		status, msg = http.StatusUnprocessableEntity, "This field cannot be edited."
	case errors.Is(err, core.ErrInvalidSettings):
		status, msg = http.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, period.ErrMonthNotFound), errors.Is(err, core.ErrInvalidMonthID):
		status, msg = http.StatusNotFound, "Month not found."
	case errors.Is(err, core.ErrInvalidPeriod):
		status, msg = http.StatusNotFound, "Period not found."
	}

	if status >= 500 {
		s.structured.LogError(ctx, "Request failed", err, applog.ComponentBudget, op,
			applog.NewFields().WithHTTPRequest(r.Method, r.URL.Path, "", ""))
	} else {
		applog.FromContext(ctx).WarnContext(ctx, "Request rejected",
			applog.FieldOperation, op,
			applog.FieldStatusCode, status,
			applog.FieldError, err.Error())
	}

	switch {
	case isAPI(r) || r.Header.Get("Content-Type") == "application/json":
		writeJSON(w, status, map[string]string{"error": msg})
	case isHTMX(r):
		ErrorResponse(status, msg).TriggerErrorNotification(msg).Write(w)
	default:
		ErrorResponse(status, msg).Write(w)
	}
}
