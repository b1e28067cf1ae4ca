package browser

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	goruntime "runtime"
	"time"

	"github.com/go-json-experiment/json"
	"github.com/go-rod/rod/lib/launcher"
)

// LaunchOptions describes a chromium process started for surf.
type LaunchOptions struct {
	ExecPath       string
	Home           string
	Profile        string
	Headful        bool
	WindowSize     string
	StartupTimeout time.Duration
}

// Process is a running chromium with remote debugging enabled.
type Process struct {
	WSURL string
	PID   int
	Port  int
}

// ExecPath returns the chromium binary surf uses: the copy under home when
// present, otherwise the first browser found on the system.
func ExecPath(home string) string {
	var p string
	switch goruntime.GOOS {
	case "darwin":
		arch := ""
		if goruntime.GOARCH == "arm64" {
			arch = "-arm64"
		}
		p = filepath.Join(home, "chromium", "chrome-mac"+arch, "Google Chrome for Testing.app", "Contents", "MacOS", "Google Chrome for Testing")
	case "linux":
		p = filepath.Join(home, "chromium", "chrome-linux", "chrome")
	}
	if p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	if found, ok := launcher.LookPath(); ok {
		return found
	}
	return p
}

func launchArgs(opts LaunchOptions, port int) []string {
	args := []string{
		fmt.Sprintf("--remote-debugging-port=%d", port),
		fmt.Sprintf("--user-data-dir=%s", filepath.Join(opts.Home, "profiles", opts.Profile)),
		"--disable-gpu",
		"--no-sandbox",
		"--disable-dev-shm-usage",
		"--disable-backgrounding-occluded-windows",
		"--disable-renderer-backgrounding",
		"--disable-extensions",
		"--disable-component-extensions-with-background-pages",
		"--disable-default-apps",
		"--disable-blink-features=AutomationControlled",
		"--no-first-run",
		"--disable-fre",
	}
	if !opts.Headful {
		args = append(args, "--headless=new")
	}
	if opts.WindowSize != "" {
		w, h := ParseWindowSize(opts.WindowSize)
		args = append(args, fmt.Sprintf("--window-size=%d,%d", w, h))
	}
	return append(args, "about:blank")
}

// Launch starts a detached chromium that outlives surf and waits until its
// DevTools endpoint answers.
func Launch(ctx context.Context, opts LaunchOptions) (*Process, error) {
	if opts.ExecPath == "" {
		opts.ExecPath = ExecPath(opts.Home)
	}
	if opts.ExecPath == "" {
		return nil, errors.New("no chromium executable found")
	}
	if err := os.MkdirAll(filepath.Join(opts.Home, "profiles", opts.Profile), 0o755); err != nil {
		return nil, err
	}

	port, err := freePort()
	if err != nil {
		return nil, fmt.Errorf("find debugging port: %w", err)
	}

	cmd := exec.Command(opts.ExecPath, launchArgs(opts, port)...)
	detach(cmd)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	timeout := opts.StartupTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	wctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	wsURL, err := WaitForEndpoint(wctx, fmt.Sprintf("http://127.0.0.1:%d", port))
	if err != nil {
		_ = cmd.Process.Kill()
		return nil, fmt.Errorf("browser failed to start: %w", err)
	}
	pid := cmd.Process.Pid
	_ = cmd.Process.Release()
	return &Process{WSURL: wsURL, PID: pid, Port: port}, nil
}

func freePort() (int, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}

type versionInfo struct {
	Browser              string `json:"Browser"`
	WebSocketDebuggerURL string `json:"webSocketDebuggerUrl"`
}

// WaitForEndpoint polls <base>/json/version until it reports a websocket
// debugger URL or ctx is done.
func WaitForEndpoint(ctx context.Context, base string) (string, error) {
	url := base + "/json/version"
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		if ws, err := fetchWSURL(ctx, url); err == nil {
			return ws, nil
		}
		select {
		case <-ctx.Done():
			return "", fmt.Errorf("waiting for %s: %w", url, ctx.Err())
		case <-ticker.C:
		}
	}
}

func fetchWSURL(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %s", resp.Status)
	}
	var info versionInfo
	if err := json.UnmarshalRead(resp.Body, &info); err != nil {
		return "", err
	}
	if info.WebSocketDebuggerURL == "" {
		return "", errors.New("no webSocketDebuggerUrl")
	}
	return info.WebSocketDebuggerURL, nil
}

// Stop asks the process to exit, then kills it.
func Stop(pid int) error {
	if pid <= 0 {
		return nil
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	if err := proc.Signal(os.Interrupt); err != nil {
		if errors.Is(err, os.ErrProcessDone) {
			return nil
		}
	}
	time.Sleep(500 * time.Millisecond)
	if err := proc.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	return nil
}
