package http_test

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/arbor"
	arborhttp "github.com/aretw0/arbor/pkg/adapters/http"
	"github.com/aretw0/arbor/pkg/adapters/memory"
	"github.com/aretw0/arbor/pkg/observability"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/aretw0/arbor/pkg/view"
)

func newServer(t *testing.T, opts ...arborhttp.Option) (*arborhttp.Server, *memory.Source) {
	t.Helper()
	src := memory.NewSource()
	fx := ports.SampleFixture()
	for _, g := range fx.Groups {
		require.NoError(t, src.PutGroup(context.Background(), g, fx.Bookmarks[g.Name]))
	}
	tr, err := arbor.New(src)
	require.NoError(t, err)
	t.Cleanup(func() { _ = tr.Close() })
	return arborhttp.NewServer(tr, opts...), src
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestServer_Groups(t *testing.T) {
	srv, _ := newServer(t)
	w := get(t, srv.Handler(), "/groups")

	require.Equal(t, http.StatusOK, w.Code)
	var groups []arborhttp.Node
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &groups))
	require.Len(t, groups, 3)
	assert.Equal(t, "Work", groups[0].Key)
	assert.Equal(t, view.IconGroup, groups[0].Icon)
	assert.Equal(t, view.DefaultGroupMarker, groups[0].Hint)
}

func TestServer_Children(t *testing.T) {
	srv, _ := newServer(t)
	w := get(t, srv.Handler(), "/groups/Work/children")

	require.Equal(t, http.StatusOK, w.Code)
	var children []arborhttp.Node
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &children))
	require.Len(t, children, 2)

	assert.Equal(t, "main.go", children[0].Text)
	assert.Equal(t, "Work", children[0].Group)
	require.Len(t, children[0].Children, 2)
	assert.Equal(t, "main.go:12", children[0].Children[0].Text)
	assert.Equal(t, "file:go.mod", children[1].Key)
}

func TestServer_Children_Popup(t *testing.T) {
	src := memory.NewSource()
	fx := ports.SampleFixture()
	for _, g := range fx.Groups {
		require.NoError(t, src.PutGroup(context.Background(), g, fx.Bookmarks[g.Name]))
	}
	full, err := arbor.New(src)
	require.NoError(t, err)
	defer full.Close()

	h := arborhttp.NewHandler(full)
	assert.Equal(t, http.StatusBadRequest, get(t, h, "/groups/Work/children?popup=true").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, h, "/groups/Work/children?popup=maybe").Code)

	popup, err := arbor.New(src, arbor.WithPopup())
	require.NoError(t, err)
	defer popup.Close()

	h = arborhttp.NewHandler(full, arborhttp.WithPopupTree(popup))
	w := get(t, h, "/groups/Reading/children?popup=true")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestServer_Children_NotFound(t *testing.T) {
	srv, _ := newServer(t)
	w := get(t, srv.Handler(), "/groups/nope/children")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServer_Refresh(t *testing.T) {
	srv, _ := newServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan arbor.Refresh, 1)
	go func() {
		_ = srv.Tree.Run(ctx, func(ctx context.Context, r arbor.Refresh) { done <- r })
	}()

	req := httptest.NewRequest(http.MethodPost, "/groups/Work/refresh", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusAccepted, w.Code)

	select {
	case r := <-done:
		assert.Equal(t, "Work", r.Group)
		assert.NoError(t, r.Err)
		assert.Len(t, r.Result.Children, 2)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for refresh")
	}
}

func TestServer_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := observability.NewMetrics("arbor")
	require.NoError(t, metrics.Register(reg))

	src := memory.NewSource()
	fx := ports.SampleFixture()
	for _, g := range fx.Groups {
		require.NoError(t, src.PutGroup(context.Background(), g, fx.Bookmarks[g.Name]))
	}
	tr, err := arbor.New(src, arbor.WithHooks(metrics.Hooks()))
	require.NoError(t, err)
	defer tr.Close()

	h := arborhttp.NewHandler(tr, arborhttp.WithGatherer(reg))
	require.Equal(t, http.StatusOK, get(t, h, "/groups/Work/children").Code)

	w := get(t, h, "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `arbor_wrappers_reconciled_total{branch="Work",outcome="created"} 3`)

	assert.Equal(t, http.StatusNotFound, get(t, arborhttp.NewHandler(tr), "/metrics").Code)
}

func TestServer_SubscribeEvents(t *testing.T) {
	srv, _ := newServer(t)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	lines := bufio.NewScanner(resp.Body)
	readEvent := func() []string {
		var ev []string
		for lines.Scan() {
			if lines.Text() == "" {
				return ev
			}
			ev = append(ev, lines.Text())
		}
		return ev
	}

	assert.Equal(t, []string{"event: ping", "data: connected"}, readEvent())

	srv.Publish(ctx, arbor.Refresh{Group: "Work"})
	assert.Equal(t, []string{"event: refresh", "data: Work"}, readEvent())
}

func TestServer_CORS(t *testing.T) {
	srv, _ := newServer(t)
	req := httptest.NewRequest(http.MethodOptions, "/groups", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Header().Get("Access-Control-Allow-Methods"), "POST"))
}

func TestStreamManager_Close(t *testing.T) {
	sm := arborhttp.NewStreamManager()
	ch, cancel := sm.Subscribe()

	sm.Close()
	_, ok := <-ch
	assert.False(t, ok, "open subscriptions end on Close")
	cancel()

	late, _ := sm.Subscribe()
	_, ok = <-late
	assert.False(t, ok, "subscriptions after Close are already closed")

	sm.Broadcast("Work")
}
