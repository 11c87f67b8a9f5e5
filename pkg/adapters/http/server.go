package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/tree"
	"github.com/aretw0/arbor/pkg/view"
)

// Node is the JSON form of a tree row.
type Node struct {
	Key string `json:"key,omitempty"`
	tree.Presentation
	Group    string `json:"group,omitempty"`
	Children []Node `json:"children,omitempty"`
}

// Server serves a bookmark tree over HTTP.
type Server struct {
	Tree    *arbor.Tree
	Popup   *arbor.Tree
	Streams *StreamManager

	gatherer prometheus.Gatherer
	logger   *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithPopupTree serves ?popup=true requests from a tree built with arbor.WithPopup.
func WithPopupTree(t *arbor.Tree) Option {
	return func(s *Server) {
		s.Popup = t
	}
}

// WithGatherer exposes the gatherer's metrics on GET /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a Server for t.
func NewServer(t *arbor.Tree, opts ...Option) *Server {
	s := &Server{
		Tree:    t,
		Streams: NewStreamManager(),
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewHandler creates a new HTTP handler for the tree.
func NewHandler(t *arbor.Tree, opts ...Option) http.Handler {
	return NewServer(t, opts...).Handler()
}

// Handler returns the routes of the server.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Get("/groups", s.Groups)
	r.Get("/groups/{group}/children", s.Children)
	r.Post("/groups/{group}/refresh", s.Refresh)
	r.Get("/events", s.SubscribeEvents)
	if s.gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Groups handles GET /groups.
func (s *Server) Groups(w http.ResponseWriter, r *http.Request) {
	roots, err := s.Tree.Roots(r.Context())
	if err != nil {
		http.Error(w, fmt.Sprintf("Groups error: %v", err), http.StatusInternalServerError)
		s.logger.Error("Listing groups failed", "err", err)
		return
	}

	resp := make([]Node, len(roots))
	for i, g := range roots {
		resp[i] = Node{Key: g.Key(), Presentation: g.Node().Presentation()}
	}
	s.writeJSON(w, resp)
}

// Children handles GET /groups/{group}/children.
func (s *Server) Children(w http.ResponseWriter, r *http.Request) {
	group, ok := s.groupParam(w, r)
	if !ok {
		return
	}

	t := s.Tree
	if raw := r.URL.Query().Get("popup"); raw != "" {
		popup, err := strconv.ParseBool(raw)
		if err != nil {
			http.Error(w, "Invalid popup flag", http.StatusBadRequest)
			return
		}
		if popup {
			if s.Popup == nil {
				http.Error(w, "Popup view not configured", http.StatusBadRequest)
				return
			}
			t = s.Popup
		}
	}

	children, err := t.Children(r.Context(), group)
	if err != nil {
		if errors.Is(err, domain.ErrGroupNotFound) {
			http.Error(w, fmt.Sprintf("Group %q not found", group), http.StatusNotFound)
			return
		}
		http.Error(w, fmt.Sprintf("Children error: %v", err), http.StatusInternalServerError)
		s.logger.Error("Computing children failed", "group", group, "err", err)
		return
	}
	s.writeJSON(w, MapEntries(children))
}

// Refresh handles POST /groups/{group}/refresh. The refresh runs asynchronously.
func (s *Server) Refresh(w http.ResponseWriter, r *http.Request) {
	group, ok := s.groupParam(w, r)
	if !ok {
		return
	}
	s.Tree.RequestRefresh(group)
	if s.Popup != nil {
		s.Popup.RequestRefresh(group)
	}
	w.WriteHeader(http.StatusAccepted)
}

// Publish broadcasts a finished refresh to /events subscribers.
// It matches the callback of arbor.Tree.Run.
func (s *Server) Publish(ctx context.Context, r arbor.Refresh) {
	if r.Err != nil {
		return
	}
	s.Streams.Broadcast(r.Group)
}

func (s *Server) groupParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	group, err := url.PathUnescape(chi.URLParam(r, "group"))
	if err != nil || group == "" {
		http.Error(w, "Invalid group", http.StatusBadRequest)
		return "", false
	}
	return group, true
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Response encode failed", "err", err)
	}
}

// MapEntries converts pipeline output into its JSON form, nested rows included.
func MapEntries(entries []*view.Entry) []Node {
	out := make([]Node, len(entries))
	for i, e := range entries {
		out[i] = mapNode(e.Node())
		out[i].Key = e.Key()
		out[i].Group = e.Group()
	}
	return out
}

func mapNode(n tree.Node) Node {
	node := Node{Presentation: n.Presentation()}
	if p, ok := n.(tree.Parent); ok {
		for _, c := range p.Children() {
			node.Children = append(node.Children, mapNode(c))
		}
	}
	return node
}
