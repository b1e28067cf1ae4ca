package browser

import (
	"context"
	"fmt"

	"github.com/go-json-experiment/json"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/assimelha/surf/pkg/stealth"
)

// rodCaller is the raw call surface of *rod.Page.
type rodCaller interface {
	Call(ctx context.Context, sessionID, method string, params any) ([]byte, error)
}

// RodSession issues protocol commands through a rod page.
type RodSession struct {
	page      rodCaller
	sessionID string
}

func NewRodSession(page *rod.Page) RodSession {
	return RodSession{page: page, sessionID: string(page.SessionID)}
}

func (s RodSession) Execute(ctx context.Context, method string, params, res any) error {
	var payload any
	if params != nil {
		b, err := json.Marshal(params)
		if err != nil {
			return fmt.Errorf("encode %s params: %w", method, err)
		}
		payload = rawParams(b)
	}
	raw, err := s.page.Call(ctx, s.sessionID, method, payload)
	if err != nil {
		return err
	}
	if res == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, res); err != nil {
		return fmt.Errorf("decode %s result: %w", method, err)
	}
	return nil
}

// rawParams carries params already encoded with the cdproto codec through
// rod's encoder unchanged.
type rawParams []byte

func (p rawParams) MarshalJSON() ([]byte, error) { return p, nil }

type rodBrowser struct {
	browser *rod.Browser
	page    *rod.Page
}

func openRod(ctx context.Context, wsURL, targetID string) (*rodBrowser, error) {
	b := rod.New().Context(ctx).ControlURL(wsURL)
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	var (
		page *rod.Page
		err  error
	)
	if targetID != "" {
		page, err = b.PageFromTarget(proto.TargetTargetID(targetID))
	} else {
		page, err = b.Page(proto.TargetCreateTarget{URL: "about:blank"})
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize browser context: %w", err)
	}
	return &rodBrowser{browser: b, page: page}, nil
}

func (b *rodBrowser) Session() stealth.Session { return NewRodSession(b.page) }

func (b *rodBrowser) TargetID() string { return string(b.page.TargetID) }

func (b *rodBrowser) Navigate(ctx context.Context, url string) error {
	p := b.page.Context(ctx)
	if err := p.Navigate(url); err != nil {
		return fmt.Errorf("could not navigate to %s: %w", url, err)
	}
	if err := p.WaitLoad(); err != nil {
		return fmt.Errorf("page did not load: %w", err)
	}
	return nil
}

func (b *rodBrowser) HTML(ctx context.Context) (string, error) {
	html, err := b.page.Context(ctx).HTML()
	if err != nil {
		return "", fmt.Errorf("could not get page content: %w", err)
	}
	return html, nil
}

func (b *rodBrowser) Screenshot(ctx context.Context) ([]byte, error) {
	buf, err := b.page.Context(ctx).Screenshot(true, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
	if err != nil {
		return nil, fmt.Errorf("error taking screenshot: %w", err)
	}
	return buf, nil
}

// Close never calls rod's Browser.Close, which would shut chromium down.
func (b *rodBrowser) Close(keep bool) error {
	if keep {
		return nil
	}
	return b.page.Close()
}
