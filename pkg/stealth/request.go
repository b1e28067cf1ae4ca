package stealth

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/chromedp/cdproto/browser"
)

const (
	DefaultVendor        = "Google Inc."
	DefaultPlatform      = "None"
	DefaultWebGLVendor   = "Intel Inc."
	DefaultWebGLRenderer = "Intel Iris OpenGL Engine"
)

// DefaultLanguages returns a fresh copy of the default language list.
func DefaultLanguages() []string {
	return []string{"en-US", "en"}
}

// Request is the per-session configuration. Every field is optional; the zero
// value of a field selects the documented default of its evasion.
type Request struct {
	// UserAgent is sent as is, with no headless rewrite or parentheses.
	// Empty means derive it from the live browser version.
	UserAgent     string
	Languages     []string // default ["en-US","en"]
	Vendor        string   // default "Google Inc."
	Platform      string   // default "None"
	WebGLVendor   string   // default "Intel Inc."
	WebGLRenderer string   // default "Intel Iris OpenGL Engine"

	// FixHairline applies the hairline fix unless explicitly false.
	FixHairline *bool
	// RunOnInsecureOrigins lets the chrome.runtime shim install on http pages.
	RunOnInsecureOrigins bool
}

// Bool returns a pointer to v, for Request.FixHairline.
func Bool(v bool) *bool {
	return &v
}

// Settings is a Request with every slot resolved.
type Settings struct {
	UserAgent            string
	Languages            []string
	Vendor               string
	Platform             string
	WebGLVendor          string
	WebGLRenderer        string
	FixHairline          bool
	RunOnInsecureOrigins bool
}

// Settings applies the static defaults. UserAgent is left empty when the
// request does not carry one; Activate fills it from the session.
func (r Request) Settings() Settings {
	s := Settings{
		UserAgent:            r.UserAgent,
		Languages:            slices.Clone(r.Languages),
		Vendor:               or(r.Vendor, DefaultVendor),
		Platform:             or(r.Platform, DefaultPlatform),
		WebGLVendor:          or(r.WebGLVendor, DefaultWebGLVendor),
		WebGLRenderer:        or(r.WebGLRenderer, DefaultWebGLRenderer),
		FixHairline:          r.FixHairline == nil || *r.FixHairline,
		RunOnInsecureOrigins: r.RunOnInsecureOrigins,
	}
	if len(s.Languages) == 0 {
		s.Languages = DefaultLanguages()
	}
	return s
}

// AcceptLanguage is the header value sent with the user agent override.
func (s Settings) AcceptLanguage() string {
	return strings.Join(s.Languages, ",")
}

// NormalizeUserAgent turns the browser-reported user agent into the override
// value: the headless marker is dropped and the trimmed result is wrapped in
// one pair of parentheses.
func NormalizeUserAgent(raw string) string {
	ua := strings.ReplaceAll(raw, "HeadlessChrome", "Chrome")
	return "(" + strings.TrimSpace(ua) + ")"
}

// ResolveUserAgent queries the running browser for its user agent.
func ResolveUserAgent(ctx context.Context, s Session) (string, error) {
	_, _, _, ua, _, err := browser.GetVersion().Do(withSession(ctx, s))
	if err != nil {
		return "", err
	}
	if ua == "" {
		return "", fmt.Errorf("%s returned an empty user agent", browser.CommandGetVersion)
	}
	return NormalizeUserAgent(ua), nil
}

func or(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
