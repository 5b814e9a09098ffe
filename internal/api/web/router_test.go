package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/ghost-host/internal/audio"
	"github.com/oshokin/ghost-host/internal/config"
	domain "github.com/oshokin/ghost-host/internal/domain/performance"
)

// fakeService records triggers and answers with a fixed error.
type fakeService struct {
	mu sync.Mutex
	// err is returned by Trigger.
	err error
	// requests are the received triggers.
	requests []domain.TriggerRequest
}

func (f *fakeService) Trigger(_ context.Context, req domain.TriggerRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.requests = append(f.requests, req)

	return f.err
}

func (f *fakeService) Status(context.Context) domain.Status {
	return domain.Status{
		Active:  true,
		State:   domain.StateActive,
		Session: &domain.Session{ID: "s-1", Source: domain.SourceNetwork, Clip: "boo.wav"},
	}
}

// fakeClips returns a fixed clip list.
type fakeClips []audio.Clip

func (f fakeClips) List() ([]audio.Clip, error) { return f, nil }

func newTestRouter(t *testing.T, svc *fakeService) http.Handler {
	t.Helper()

	disabled := false

	r, err := NewRouter(context.Background(), &Options{
		Service: svc,
		Triggers: []config.NetworkTrigger{
			{ID: "porch", Secret: "s3cret", Clip: "porch.wav"},
			{ID: "open"},
			{ID: "off", Enabled: &disabled},
		},
		Clips:   fakeClips{{Name: "boo.wav", Size: 10, Duration: 1500 * time.Millisecond}},
		Metrics: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte("ghost_host_up 1\n")) }),
	})
	require.NoError(t, err)

	return r
}

func serve(h http.Handler, method, target, body string, header map[string]string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}

	var req *http.Request
	if reader != nil {
		req = httptest.NewRequest(method, target, reader)
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}

	for k, v := range header {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	return rec
}

// TestNewRouter_RequiresService rejects a router without a trigger target.
func TestNewRouter_RequiresService(t *testing.T) {
	t.Parallel()

	_, err := NewRouter(context.Background(), nil)
	require.Error(t, err)

	_, err = NewRouter(context.Background(), new(Options))
	require.Error(t, err)
}

// TestPlay_Lookup answers 404 for unknown and disabled triggers.
func TestPlay_Lookup(t *testing.T) {
	t.Parallel()

	svc := new(fakeService)
	r := newTestRouter(t, svc)

	require.Equal(t, http.StatusNotFound, serve(r, http.MethodPost, "/api/trigger/garage/play", "", nil).Code)
	require.Equal(t, http.StatusNotFound, serve(r, http.MethodPost, "/api/trigger/off/play", "", nil).Code)
	require.Empty(t, svc.requests)
}

// TestPlay_Secret accepts the secret as a bearer token or a query parameter only.
func TestPlay_Secret(t *testing.T) {
	t.Parallel()

	svc := new(fakeService)
	r := newTestRouter(t, svc)

	require.Equal(t, http.StatusUnauthorized, serve(r, http.MethodPost, "/api/trigger/porch/play", "", nil).Code)
	require.Equal(t, http.StatusUnauthorized,
		serve(r, http.MethodPost, "/api/trigger/porch/play", "", map[string]string{"Authorization": "Bearer nope"}).Code)

	rec := serve(r, http.MethodPost, "/api/trigger/porch/play", "", map[string]string{"Authorization": "Bearer s3cret"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = serve(r, http.MethodPost, "/api/trigger/porch/play?token=s3cret", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var reply map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reply))
	require.Equal(t, true, reply["accepted"])
	require.Equal(t, "s-1", reply["session_id"])

	require.Len(t, svc.requests, 2)
	require.Equal(t, domain.SourceNetwork, svc.requests[0].Source)
	require.Equal(t, "porch.wav", svc.requests[0].Clip)
}

// TestPlay_ClipOverride lets the body choose the clip.
func TestPlay_ClipOverride(t *testing.T) {
	t.Parallel()

	svc := new(fakeService)
	r := newTestRouter(t, svc)

	rec := serve(r, http.MethodPost, "/api/trigger/open/play", `{"audio_file":"scream.mp3"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "scream.mp3", svc.requests[0].Clip)

	rec = serve(r, http.MethodPost, "/api/trigger/open/play", `{"audio_file":`, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Len(t, svc.requests, 1)
}

// TestPlay_Rejections maps rejection reasons onto status codes.
func TestPlay_Rejections(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		code int
	}{
		{name: "cooldown", err: domain.ErrInCooldown, code: http.StatusConflict},
		{name: "busy", err: domain.ErrAlreadyActive, code: http.StatusConflict},
		{name: "duration", err: domain.ErrDurationUnknown, code: http.StatusBadRequest},
		{name: "aborted", err: domain.ErrAborted, code: http.StatusBadRequest},
		{name: "other", err: errors.New("boom"), code: http.StatusBadRequest},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r := newTestRouter(t, &fakeService{err: tt.err})

			rec := serve(r, http.MethodPost, "/api/trigger/open/play", "", nil)
			require.Equal(t, tt.code, rec.Code)

			var reply map[string]any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reply))
			require.Equal(t, false, reply["accepted"])
		})
	}
}

// TestReadOnlyRoutes serves status, clips and metrics.
func TestReadOnlyRoutes(t *testing.T) {
	t.Parallel()

	r := newTestRouter(t, new(fakeService))

	rec := serve(r, http.MethodGet, "/api/status", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var status map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	require.Equal(t, "active", status["state"])
	require.Equal(t, "s-1", status["session"].(map[string]any)["id"])

	rec = serve(r, http.MethodGet, "/api/clips", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"clips":[{"name":"boo.wav","size":10,"duration_ms":1500}]}`, rec.Body.String())

	rec = serve(r, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "ghost_host_up")
}
