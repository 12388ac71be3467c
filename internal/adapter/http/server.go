package adapthttp

import (
	"net/http"

	"bodycomp/internal/app"
)

// Services bundles the application services the HTTP adapter drives.
type Services struct {
	Auth      *app.AuthService
	Weight    *app.WeightService
	Profile   *app.ProfileService
	Workflows *app.WorkflowService
	History   *app.HistoryService
	Records   *app.RecordsService
}

// Server is the driving HTTP adapter that routes requests to application
// services.
type Server struct {
	authSvc     *app.AuthService
	weight      *app.WeightService
	profile     *app.ProfileService
	workflows   *app.WorkflowService
	history     *app.HistoryService
	records     *app.RecordsService
	oidcConfig  OIDCConfig
	disableAuth bool
}

// New creates a Server wired to the given application services.
func New(svc Services, oidc OIDCConfig) *Server {
	return &Server{
		authSvc:    svc.Auth,
		weight:     svc.Weight,
		profile:    svc.Profile,
		workflows:  svc.Workflows,
		history:    svc.History,
		records:    svc.Records,
		oidcConfig: oidc,
	}
}

// WithoutAuth disables authentication. Every request acts as the local
// user.
func (s *Server) WithoutAuth() *Server {
	s.disableAuth = true
	return s
}

// Handler returns the root http.Handler for the application.
func (s *Server) Handler() http.Handler {
	api := http.NewServeMux()
	api.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})
	api.HandleFunc("/login", s.handleLogin)
	api.HandleFunc("/logout", s.handleLogout)
	api.HandleFunc("/setup", s.handleSetupUser)
	api.HandleFunc("/config", s.handleConfig)
	api.HandleFunc("/sso/login", s.handleSSOLogin)
	api.HandleFunc("/sso/callback", s.handleSSOCallback)

	private := http.NewServeMux()
	private.HandleFunc("/profile", s.handleProfile)

	private.HandleFunc("/weight/today", s.handleWeightToday)
	private.HandleFunc("/weight/recent", s.handleWeightRecent)
	private.HandleFunc("/weight/undo-last", s.handleWeightUndoLast)

	private.HandleFunc("POST /workflows", s.handleWorkflowStart)
	private.HandleFunc("GET /workflows/{id}", s.handleWorkflowGet)
	private.HandleFunc("DELETE /workflows/{id}", s.handleWorkflowDelete)
	private.HandleFunc("POST /workflows/{id}/{action}", s.handleWorkflowAction)

	private.HandleFunc("GET /history", s.handleHistory)
	private.HandleFunc("DELETE /history/{kind}/{id}", s.handleHistoryDelete)
	private.HandleFunc("GET /compositions/recent", s.handleCompositionsRecent)

	protected := s.authMiddleware(private)
	for _, p := range []string{"/profile", "/weight/", "/workflows", "/workflows/", "/history", "/history/", "/compositions/"} {
		api.Handle(p, protected)
	}

	root := http.NewServeMux()
	root.Handle("/api/", http.StripPrefix("/api", api))

	return s.loggingMiddleware(withNoCache(root))
}
