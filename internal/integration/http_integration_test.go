package integration

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/ghost-host/internal/config"
)

// post sends an empty POST and returns status code and body.
func post(t *testing.T, url, token string) (int, string) {
	t.Helper()

	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, url, nil)
	require.NoError(t, err)

	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)

	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp.StatusCode, string(body)
}

// TestHTTP_NetworkTrigger drives the daemon through the network trigger endpoint.
func TestHTTP_NetworkTrigger(t *testing.T) {
	t.Parallel()

	settings := testSettings(t, reservePort(t))
	settings.HTTP.Enabled = true
	settings.HTTP.ListenAddress = reservePort(t)
	settings.HTTP.NetworkTriggers = []config.NetworkTrigger{{ID: "porch", Secret: "s3cret"}}

	client := startDaemon(t, settings)
	base := "http://" + settings.HTTP.ListenAddress

	require.Eventually(t, func() bool {
		resp, err := http.Get(base + "/api/status") //nolint:noctx // Readiness probe in tests.
		if err != nil {
			return false
		}

		_ = resp.Body.Close()

		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	code, _ := post(t, base+"/api/trigger/garage/play", "")
	require.Equal(t, http.StatusNotFound, code)

	code, _ = post(t, base+"/api/trigger/porch/play", "")
	require.Equal(t, http.StatusUnauthorized, code)

	code, body := post(t, base+"/api/trigger/porch/play", "s3cret")
	require.Equal(t, http.StatusOK, code, body)
	require.Contains(t, body, `"accepted":true`)

	code, body = post(t, base+"/api/trigger/porch/play", "s3cret")
	require.Equal(t, http.StatusConflict, code)
	require.Contains(t, body, "already_active")

	_, err := client.ForceStop(context.Background())
	require.NoError(t, err)

	resp, err := http.Get(base + "/metrics") //nolint:noctx // Test scrape.
	require.NoError(t, err)

	defer resp.Body.Close()

	metrics, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.True(t, strings.Contains(string(metrics), "ghost_host_rejected_triggers_total"))
	require.Contains(t, string(metrics), "ghost_host_cooldown_remaining_seconds")
}
