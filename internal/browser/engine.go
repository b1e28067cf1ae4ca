package browser

import (
	"context"
	"fmt"

	"github.com/assimelha/surf/pkg/stealth"
)

const (
	EngineChromedp   = "chromedp"
	EngineRod        = "rod"
	EnginePlaywright = "playwright"
)

// Browser is one attached tab driven by an automation engine. Session exposes
// the raw protocol channel of that tab for stealth activation.
type Browser interface {
	Session() stealth.Session
	TargetID() string
	Navigate(ctx context.Context, url string) error
	HTML(ctx context.Context) (string, error)
	Screenshot(ctx context.Context) ([]byte, error)
	// Close releases the tab. With keep set the tab stays open for the
	// next attach.
	Close(keep bool) error
}

// Open attaches to the browser at wsURL. An empty targetID opens a new tab.
func Open(ctx context.Context, engine, wsURL, targetID string) (Browser, error) {
	switch engine {
	case EngineChromedp, "":
		return openChromedp(ctx, wsURL, targetID)
	case EngineRod:
		return openRod(ctx, wsURL, targetID)
	case EnginePlaywright:
		return openPlaywright(ctx, wsURL, targetID)
	default:
		return nil, fmt.Errorf("unknown engine %q", engine)
	}
}
