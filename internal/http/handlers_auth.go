package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"budget/internal/auth"
	"budget/internal/core"
	applog "budget/internal/log"
)

const sessionCookie = "budget_session"

type sessionKey struct{}

func sessionFrom(ctx context.Context) (auth.Session, bool) {
	sess, ok := ctx.Value(sessionKey{}).(auth.Session)
	return sess, ok
}

// requireSession resolves the session cookie. Browsers are sent to /login,
// HTMX requests get HX-Redirect and API calls a bare 401.
func (s *Server) requireSession(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := s.currentSession(r)
		if err != nil {
			switch {
			case isHTMX(r):
				NewHTMXResponse().Status(http.StatusUnauthorized).Header("HX-Redirect", "/login").Write(w)
			case isAPI(r):
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			default:
				http.Redirect(w, r, "/login", http.StatusSeeOther)
			}
			return
		}

		ctx := context.WithValue(r.Context(), sessionKey{}, sess)
		logger := applog.FromContext(ctx).With(applog.FieldUserID, sess.UserID)
		ctx = applog.IntoContext(ctx, logger)
		w.Header().Set("Cache-Control", "no-store")
		next(w, r.WithContext(ctx))
	})
}

func (s *Server) currentSession(r *http.Request) (auth.Session, error) {
	if s.auth == nil {
		return auth.Session{}, auth.ErrInvalidToken
	}
	c, err := r.Cookie(sessionCookie)
	if err != nil {
		return auth.Session{}, auth.ErrInvalidToken
	}
	return s.auth.Verify(r.Context(), c.Value)
}

func (s *Server) setSessionCookie(w http.ResponseWriter, token string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		MaxAge:   int(time.Until(expires).Seconds()),
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

type loginPage struct {
	AllowSignup bool
	Email       string
	Error       string
	Mode        string
}

func (s *Server) renderLogin(w http.ResponseWriter, r *http.Request, status int, page loginPage) {
	page.AllowSignup = s.allowSignup
	if page.Mode == "" {
		page.Mode = "login"
	}
	s.render(w, r, status, "login.html", page)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if _, err := s.currentSession(r); err == nil {
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}
		s.renderLogin(w, r, http.StatusOK, loginPage{})
	case http.MethodPost:
		s.login(w, r)
	default:
		MethodNotAllowedError("GET, POST").Write(w)
	}
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}
	email := sanitizeInput(r.PostForm.Get("email"))
	password := r.PostForm.Get("password")

	user, err := s.auth.Login(ctx, email, password)
	if err != nil {
		s.appMetrics.loginFailures.Add(1)
		if errors.Is(err, auth.ErrInvalidCredentials) {
			applog.FromContext(ctx).WarnContext(ctx, "Login failed", applog.FieldOperation, applog.OpLogin)
			s.renderLogin(w, r, http.StatusUnauthorized, loginPage{Email: email, Error: "Invalid email or password."})
			return
		}
		s.structured.LogError(ctx, "Login error", err, applog.ComponentAuth, applog.OpLogin, nil)
		s.renderLogin(w, r, http.StatusInternalServerError, loginPage{Email: email, Error: "Something went wrong. Please try again."})
		return
	}
	s.startSession(w, r, user)
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	ctx := r.Context()
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}
	email := sanitizeInput(r.PostForm.Get("email"))
	password := r.PostForm.Get("password")

	user, err := s.auth.SignUp(ctx, email, password)
	if err != nil {
		page := loginPage{Email: email, Mode: "signup"}
		status := http.StatusUnprocessableEntity
		switch {
		case errors.Is(err, auth.ErrSignupDisabled):
			status, page.Error = http.StatusForbidden, "Sign up is disabled."
		case errors.Is(err, auth.ErrEmailTaken):
			status, page.Error = http.StatusConflict, "An account with this email already exists."
		case errors.Is(err, auth.ErrInvalidEmail):
			page.Error = "Please enter a valid email address."
		case errors.Is(err, auth.ErrWeakPassword):
			page.Error = "Password is too short."
		default:
			s.structured.LogError(ctx, "Sign up error", err, applog.ComponentAuth, applog.OpSignup, nil)
			status, page.Error = http.StatusInternalServerError, "Something went wrong. Please try again."
		}
		s.renderLogin(w, r, status, page)
		return
	}
	applog.FromContext(ctx).InfoContext(ctx, "User signed up", applog.FieldUserID, user.ID)
	s.startSession(w, r, user)
}

func (s *Server) startSession(w http.ResponseWriter, r *http.Request, user core.User) {
	ctx := r.Context()
	token, expires, err := s.auth.IssueToken(user)
	if err != nil {
		s.structured.LogError(ctx, "Token issue failed", err, applog.ComponentAuth, applog.OpLogin, applog.NewFields().WithUser(user.ID))
		s.renderLogin(w, r, http.StatusInternalServerError, loginPage{Email: user.Email, Error: "Something went wrong. Please try again."})
		return
	}
	s.appMetrics.logins.Add(1)
	s.setSessionCookie(w, token, expires)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	if c, err := r.Cookie(sessionCookie); err == nil && s.auth != nil {
		if err := s.auth.Revoke(r.Context(), c.Value); err != nil {
			s.structured.LogError(r.Context(), "Failed to revoke session", err, applog.ComponentAuth, applog.OpLogout, nil)
			InternalServerError("Could not sign out. Please try again.").Write(w)
			return
		}
	}
	s.clearSessionCookie(w)
	if isHTMX(r) {
		NewHTMXResponse().Header("HX-Redirect", "/login").Write(w)
		return
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}
