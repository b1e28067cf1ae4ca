package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-json-experiment/json"
	"github.com/playwright-community/playwright-go"

	"github.com/assimelha/surf/pkg/stealth"
)

// cdpSender is the send surface of playwright.CDPSession.
type cdpSender interface {
	Send(method string, params map[string]any) (any, error)
}

// PlaywrightSession issues protocol commands through a playwright CDP session.
// playwright has no per-call context, so ctx is checked around each send.
type PlaywrightSession struct {
	cdp cdpSender
}

func NewPlaywrightSession(s playwright.CDPSession) PlaywrightSession {
	return PlaywrightSession{cdp: s}
}

func (s PlaywrightSession) Execute(ctx context.Context, method string, params, res any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var args map[string]any
	if params != nil {
		b, err := json.Marshal(params)
		if err != nil {
			return fmt.Errorf("encode %s params: %w", method, err)
		}
		if err := json.Unmarshal(b, &args); err != nil {
			return fmt.Errorf("encode %s params: %w", method, err)
		}
	}
	out, err := s.cdp.Send(method, args)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if res == nil || out == nil {
		return nil
	}
	b, err := json.Marshal(out)
	if err != nil {
		return fmt.Errorf("decode %s result: %w", method, err)
	}
	if err := json.Unmarshal(b, res); err != nil {
		return fmt.Errorf("decode %s result: %w", method, err)
	}
	return nil
}

type playwrightBrowser struct {
	pw       *playwright.Playwright
	page     playwright.Page
	cdp      playwright.CDPSession
	targetID string
}

type targetInfoResult struct {
	TargetInfo struct {
		TargetID string `json:"targetId"`
	} `json:"targetInfo"`
}

func openPlaywright(ctx context.Context, wsURL, targetID string) (b *playwrightBrowser, err error) {
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("could not start playwright: %w", err)
	}
	defer func() {
		if err != nil {
			_ = pw.Stop()
		}
	}()

	browser, err := pw.Chromium.ConnectOverCDP(wsURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	var bctx playwright.BrowserContext
	if contexts := browser.Contexts(); len(contexts) > 0 {
		bctx = contexts[0]
	} else if bctx, err = browser.NewContext(); err != nil {
		return nil, fmt.Errorf("failed to initialize browser context: %w", err)
	}

	if targetID != "" {
		for _, page := range bctx.Pages() {
			cdp, id, err := attachPlaywright(ctx, bctx, page)
			if err != nil {
				return nil, err
			}
			if id == targetID {
				return &playwrightBrowser{pw: pw, page: page, cdp: cdp, targetID: id}, nil
			}
			_ = cdp.Detach()
		}
		return nil, fmt.Errorf("target %s not found", targetID)
	}

	page, err := bctx.NewPage()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize browser context: %w", err)
	}
	cdp, id, err := attachPlaywright(ctx, bctx, page)
	if err != nil {
		return nil, err
	}
	return &playwrightBrowser{pw: pw, page: page, cdp: cdp, targetID: id}, nil
}

func attachPlaywright(ctx context.Context, bctx playwright.BrowserContext, page playwright.Page) (playwright.CDPSession, string, error) {
	cdp, err := bctx.NewCDPSession(page)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create CDP session: %w", err)
	}
	var info targetInfoResult
	if err := NewPlaywrightSession(cdp).Execute(ctx, "Target.getTargetInfo", nil, &info); err != nil {
		_ = cdp.Detach()
		return nil, "", fmt.Errorf("failed to read target info: %w", err)
	}
	return cdp, info.TargetInfo.TargetID, nil
}

func (b *playwrightBrowser) Session() stealth.Session { return NewPlaywrightSession(b.cdp) }

func (b *playwrightBrowser) TargetID() string { return b.targetID }

// timeoutMs maps a context deadline onto playwright's millisecond timeouts.
func timeoutMs(ctx context.Context) *float64 {
	d, ok := ctx.Deadline()
	if !ok {
		return playwright.Float(0)
	}
	return playwright.Float(float64(max(time.Until(d).Milliseconds(), 1)))
}

func (b *playwrightBrowser) Navigate(ctx context.Context, url string) error {
	if _, err := b.page.Goto(url, playwright.PageGotoOptions{
		Timeout:   timeoutMs(ctx),
		WaitUntil: playwright.WaitUntilStateLoad,
	}); err != nil {
		return fmt.Errorf("could not navigate to %s: %w", url, err)
	}
	return nil
}

func (b *playwrightBrowser) HTML(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	content, err := b.page.Content()
	if err != nil {
		return "", fmt.Errorf("could not get page content: %w", err)
	}
	return content, nil
}

func (b *playwrightBrowser) Screenshot(ctx context.Context) ([]byte, error) {
	buf, err := b.page.Screenshot(playwright.PageScreenshotOptions{
		FullPage: playwright.Bool(true),
		Timeout:  timeoutMs(ctx),
	})
	if err != nil {
		return nil, fmt.Errorf("error taking screenshot: %w", err)
	}
	return buf, nil
}

// Close detaches from the tab and stops the playwright driver. The browser
// itself belongs to surf's launcher, not to playwright.
func (b *playwrightBrowser) Close(keep bool) error {
	var errs []error
	if err := b.cdp.Detach(); err != nil {
		errs = append(errs, err)
	}
	if !keep {
		if err := b.page.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := b.pw.Stop(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
