package server

import (
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-session/session/v3"
	"github.com/legit-games/oauth2-core"
	"github.com/legit-games/oauth2-core/errors"
)

//go:embed templates/*.html
var templatesFS embed.FS

var templates = template.Must(template.ParseFS(templatesFS, "templates/*.html"))

// session key holding the logged in user id
const sessionUserKey = "LoggedInUserID"

type loginView struct {
	Action   string
	ReturnTo string
	Username string
	Error    string
}

// SessionLogin keeps the resource owner's login in a cookie session and
// serves the login and logout pages.
type SessionLogin struct {
	LoginPath  string
	LogoutPath string

	manager  oauth2.Manager
	sessions *session.Manager
	logger   *slog.Logger
}

// NewSessionLogin creates a session login. The options configure the
// underlying session manager (cookie name, signing key, ...).
func NewSessionLogin(manager oauth2.Manager, logger *slog.Logger, opts ...session.Option) *SessionLogin {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionLogin{
		LoginPath:  "/login",
		LogoutPath: "/logout",
		manager:    manager,
		sessions:   session.NewManager(opts...),
		logger:     logger,
	}
}

// ResolveIdentity returns the user id stored in the session, or "" when
// nobody is logged in.
func (l *SessionLogin) ResolveIdentity(w http.ResponseWriter, r *http.Request) (string, error) {
	store, err := l.sessions.Start(r.Context(), w, r)
	if err != nil {
		return "", fmt.Errorf("start session: %w", err)
	}
	if v, ok := store.Get(sessionUserKey); ok {
		if id, ok := v.(string); ok {
			return id, nil
		}
	}
	return "", nil
}

// RedirectToLogin sends the browser to the login page, carrying the
// original request so it resumes unchanged after login.
func (l *SessionLogin) RedirectToLogin(w http.ResponseWriter, r *http.Request) error {
	returnTo := r.URL.Path
	if len(r.Form) > 0 {
		returnTo += "?" + r.Form.Encode()
	} else if r.URL.RawQuery != "" {
		returnTo += "?" + r.URL.RawQuery
	}
	target := l.LoginPath + "?" + url.Values{"returnTo": {returnTo}}.Encode()
	http.Redirect(w, r, target, http.StatusFound)
	return nil
}

// HandleLoginPage renders the login form.
func (l *SessionLogin) HandleLoginPage(w http.ResponseWriter, r *http.Request) error {
	return l.render(w, http.StatusOK, "login.html", loginView{
		Action:   l.LoginPath,
		ReturnTo: safeReturnTo(r.URL.Query().Get("returnTo")),
	})
}

// HandleLogin checks the submitted credentials, records the user in the
// session and continues to returnTo.
func (l *SessionLogin) HandleLogin(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	username := strings.TrimSpace(r.FormValue("username"))
	returnTo := safeReturnTo(r.FormValue("returnTo"))

	user, err := l.manager.AuthenticateUser(ctx, username, r.FormValue("password"))
	if err != nil {
		if pub := errors.Public(err); pub != errors.ErrInvalidGrant && pub != errors.ErrInvalidRequest {
			l.logger.Error("login failed", "error", err)
			http.Error(w, "Login failed", http.StatusInternalServerError)
			return nil
		}
		l.logger.Info("invalid credentials", "username", username)
		return l.render(w, http.StatusUnauthorized, "login.html", loginView{
			Action:   l.LoginPath,
			ReturnTo: returnTo,
			Username: username,
			Error:    "Invalid credentials",
		})
	}

	store, err := l.sessions.Start(ctx, w, r)
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	// the session id is reused across login; rotating it is a known gap
	store.Set(sessionUserKey, user.GetID())
	if err := store.Save(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	l.logger.Info("user logged in", "user_id", user.GetID())

	if returnTo == "" {
		return l.render(w, http.StatusOK, "loggedin.html", map[string]string{
			"Username":   user.GetUsername(),
			"LogoutPath": l.LogoutPath,
		})
	}
	http.Redirect(w, r, returnTo, http.StatusFound)
	return nil
}

// HandleLogout revokes every refresh token of the logged in user and ends
// the session. Access tokens already issued stay valid until they expire.
func (l *SessionLogin) HandleLogout(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	userID, err := l.ResolveIdentity(w, r)
	if err != nil {
		return err
	}
	if userID == "" {
		http.Redirect(w, r, l.LoginPath, http.StatusFound)
		return nil
	}

	if _, err := l.manager.RevokeUserRefreshTokens(ctx, userID); err != nil {
		l.logger.Error("logout failed", "user_id", userID, "error", err)
		http.Error(w, "Logout failed", http.StatusInternalServerError)
		return nil
	}
	if err := l.sessions.Destroy(ctx, w, r); err != nil {
		l.logger.Error("logout failed", "user_id", userID, "error", err)
		http.Error(w, "Logout failed", http.StatusInternalServerError)
		return nil
	}
	l.logger.Info("user logged out", "user_id", userID)
	http.Redirect(w, r, l.LoginPath, http.StatusFound)
	return nil
}

func (l *SessionLogin) render(w http.ResponseWriter, status int, name string, data interface{}) error {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	return templates.ExecuteTemplate(w, name, data)
}

// safeReturnTo only lets local absolute paths through.
func safeReturnTo(v string) string {
	if v == "" || !strings.HasPrefix(v, "/") || strings.HasPrefix(v, "//") || strings.ContainsAny(v, "\\\r\n") {
		return ""
	}
	u, err := url.Parse(v)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return ""
	}
	return v
}
