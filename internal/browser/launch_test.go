package browser

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWaitForEndpoint(t *testing.T) {
	t.Run("returns the debugger url once the browser answers", func(t *testing.T) {
		var hits atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/json/version", r.URL.Path)
			if hits.Add(1) < 3 {
				http.Error(w, "starting", http.StatusServiceUnavailable)
				return
			}
			_, _ = w.Write([]byte(`{"Browser":"HeadlessChrome/120.0.0.0","Protocol-Version":"1.3","webSocketDebuggerUrl":"ws://127.0.0.1:9222/devtools/browser/xyz"}`))
		}))
		defer srv.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		ws, err := WaitForEndpoint(ctx, srv.URL)
		require.NoError(t, err)
		assert.Equal(t, "ws://127.0.0.1:9222/devtools/browser/xyz", ws)
		assert.GreaterOrEqual(t, hits.Load(), int32(3))
	})

	t.Run("times out when no url is reported", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"Browser":"HeadlessChrome/120.0.0.0"}`))
		}))
		defer srv.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
		defer cancel()

		_, err := WaitForEndpoint(ctx, srv.URL)
		require.Error(t, err)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestLaunchArgs(t *testing.T) {
	opts := LaunchOptions{Home: "/home/u/.surf", Profile: "work", WindowSize: "1920x1080"}

	args := launchArgs(opts, 9333)
	assert.Contains(t, args, "--remote-debugging-port=9333")
	assert.Contains(t, args, "--user-data-dir="+filepath.Join("/home/u/.surf", "profiles", "work"))
	assert.Contains(t, args, "--headless=new")
	assert.Contains(t, args, "--window-size=1920,1080")
	assert.Equal(t, "about:blank", args[len(args)-1])

	opts.Headful = true
	opts.WindowSize = ""
	args = launchArgs(opts, 9333)
	assert.NotContains(t, args, "--headless=new")
	for _, a := range args {
		assert.NotContains(t, a, "--window-size")
	}
}

func TestLaunchMissingBinary(t *testing.T) {
	home := t.TempDir()
	_, err := Launch(context.Background(), LaunchOptions{
		ExecPath: filepath.Join(home, "no-such-chrome"),
		Home:     home,
		Profile:  "default",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to start browser")
}

func TestFreePort(t *testing.T) {
	port, err := freePort()
	require.NoError(t, err)
	assert.Greater(t, port, 0)
}

func TestStopIgnoresEmptyPID(t *testing.T) {
	assert.NoError(t, Stop(0))
}
