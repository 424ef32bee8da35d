// Package httpserver exposes the clipshare HTTP API handlers.
package httpserver

import (
	"net/http"

	"github.com/gofrs/uuid/v5"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/akulinich/clipshare/internal/errs"
	"github.com/akulinich/clipshare/internal/service"
)

// Server wires services into HTTP handlers.
type Server struct {
	auth       *service.AuthService
	clipboards *service.ClipboardService
	items      *service.ItemService
	gate       *service.AccessGate
	maxUpload  int64
	log        *zap.Logger
	router     *mux.Router
}

// New constructs the HTTP server with injected services. maxUpload bounds
// multipart request bodies and should match the file store's limit.
func New(
	auth *service.AuthService,
	clipboards *service.ClipboardService,
	items *service.ItemService,
	gate *service.AccessGate,
	maxUpload int64,
	log *zap.Logger,
) *Server {
	s := &Server{
		auth:       auth,
		clipboards: clipboards,
		items:      items,
		gate:       gate,
		maxUpload:  maxUpload,
		log:        log,
	}
	s.router = s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(Recover(s.log), Logging(s.log))

	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/auth/signup", s.handleSignup).Methods(http.MethodPost)
	api.HandleFunc("/auth/login", s.handleLogin).Methods(http.MethodPost)

	// Visitor routes: PIN or grant marker, no account needed.
	api.HandleFunc("/clipboards/by-name/{name}", s.handleGetClipboardByName).Methods(http.MethodGet)
	api.HandleFunc("/clipboards/{id}/verify-pin", s.handleVerifyPin).Methods(http.MethodPost)
	api.HandleFunc("/clipboards/{id}/items", s.handleListItems).Methods(http.MethodGet)
	api.HandleFunc("/clipboards/{id}/items", s.handleCreateItem).Methods(http.MethodPost)
	api.HandleFunc("/clipboards/{id}/items/{itemID}", s.handleGetItem).Methods(http.MethodGet)
	api.HandleFunc("/clipboards/{id}/items/{itemID}", s.handleUpdateItem).Methods(http.MethodPut)
	api.HandleFunc("/clipboards/{id}/items/{itemID}", s.handleDeleteItem).Methods(http.MethodDelete)
	api.HandleFunc("/clipboards/{id}/files/{itemID}", s.handleServeFile).Methods(http.MethodGet)
	api.HandleFunc("/clipboards/{id}", s.handleGetClipboard).Methods(http.MethodGet)

	// Owner routes: Bearer access token required.
	owner := api.NewRoute().Subrouter()
	owner.Use(RequireOwner(s.auth))
	owner.HandleFunc("/clipboards", s.handleCreateClipboard).Methods(http.MethodPost)
	owner.HandleFunc("/clipboards", s.handleListClipboards).Methods(http.MethodGet)
	owner.HandleFunc("/clipboards/{id}", s.handleUpdateClipboard).Methods(http.MethodPatch)
	owner.HandleFunc("/clipboards/{id}", s.handleDeactivateClipboard).Methods(http.MethodDelete)
	owner.HandleFunc("/clipboards/{id}/restore", s.handleRestoreClipboard).Methods(http.MethodPost)
	owner.HandleFunc("/clipboards/{id}/purge", s.handlePurgeClipboard).Methods(http.MethodDelete)

	return r
}

// pathID parses a UUID path variable.
func pathID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.FromString(mux.Vars(r)[name])
	if err != nil {
		return uuid.Nil, errs.ErrInvalidInput
	}
	return id, nil
}

// readAccess pulls visitor credentials off the request: a plaintext PIN or
// a previously issued grant marker, header first, query as fallback.
func readAccess(r *http.Request) service.Access {
	a := service.Access{
		Pin:    r.Header.Get("X-Clipboard-Pin"),
		Marker: r.Header.Get("X-Clipboard-Grant"),
	}
	q := r.URL.Query()
	if a.Pin == "" {
		a.Pin = q.Get("pin")
	}
	if a.Marker == "" {
		a.Marker = q.Get("grant")
	}
	return a
}
