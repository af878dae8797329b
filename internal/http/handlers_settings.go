package http

import (
	"errors"
	"net/http"

	"budget/internal/core"
	applog "budget/internal/log"
)

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess, _ := sessionFrom(ctx)

	switch r.Method {
	case http.MethodGet, http.MethodHead:
		current, err := s.settings.Get(ctx, sess.UserID)
		if err != nil {
			s.writeServiceError(w, r, err, applog.OpRead)
			return
		}
		s.render(w, r, http.StatusOK, "settings.html", newSettingsPage(sess.Email, current))
	case http.MethodPost:
		s.saveSettings(w, r)
	default:
		MethodNotAllowedError("GET, POST").Write(w)
	}
}

// saveSettings overlays the form on the stored settings. Changing the period
// shape regenerates both month lists.
func (s *Server) saveSettings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess, _ := sessionFrom(ctx)

	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}
	current, err := s.settings.Get(ctx, sess.UserID)
	if err != nil {
		s.writeServiceError(w, r, err, applog.OpRead)
		return
	}

	submitted, err := ParseSettingsForm(r.PostForm, current)
	var next core.Settings
	if err == nil {
		next, err = s.settings.Validate(submitted)
	}
	if err != nil {
		if !errors.Is(err, core.ErrInvalidSettings) {
			s.writeServiceError(w, r, err, applog.OpValidate)
			return
		}
		page := newSettingsPage(sess.Email, submitted)
		page.Error = err.Error()
		applog.FromContext(ctx).WarnContext(ctx, "Settings rejected",
			applog.FieldOperation, applog.OpValidate,
			applog.FieldError, err.Error())
		s.render(w, r, http.StatusUnprocessableEntity, "settings.html", page)
		return
	}

	saved, regenerated, warning, err := s.budgets.ApplySettings(ctx, sess.UserID, next)
	if err != nil {
		s.writeServiceError(w, r, err, applog.OpUpdate)
		return
	}
	if warning != "" {
		s.appMetrics.syncWarnings.Add(1)
	}
	applog.FromContext(ctx).InfoContext(ctx, "Settings saved",
		applog.FieldOperation, applog.OpUpdate,
		"regenerated", regenerated,
		"currency", saved.CurrencyCode)

	if isHTMX(r) {
		resp := NewHTMXResponse().
			Redirect("/").
			TriggerSettingsSaved(regenerated).
			TriggerWarningNotification(warning)
		resp.Write(w)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// handleReset discards the month lists and regenerates them from settings.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	ctx := r.Context()
	sess, _ := sessionFrom(ctx)

	res, err := s.budgets.Reset(ctx, sess.UserID)
	if err != nil {
		s.writeServiceError(w, r, err, applog.OpReset)
		return
	}
	s.structured.LogBudgetSaved(ctx, sess.UserID, res.Version, res.Warning)

	if isHTMX(r) {
		NewHTMXResponse().
			Redirect("/").
			TriggerBudgetUpdated(res.Version).
			TriggerWarningNotification(res.Warning).
			Write(w)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
