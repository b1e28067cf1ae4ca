package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"

	"github.com/assimelha/surf/pkg/stealth"
)

type chromedpBrowser struct {
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
}

// The tab context is rooted in Background: cancelling it closes the tab, so it
// must not follow the caller's deadline.
func openChromedp(ctx context.Context, wsURL, targetID string) (*chromedpBrowser, error) {
	allocCtx, allocCancel := chromedp.NewRemoteAllocator(context.Background(), wsURL)

	var opts []chromedp.ContextOption
	if targetID != "" {
		opts = append(opts, chromedp.WithTargetID(target.ID(targetID)))
	}
	tabCtx, cancel := chromedp.NewContext(allocCtx, opts...)

	b := &chromedpBrowser{ctx: tabCtx, cancel: cancel, allocCancel: allocCancel}
	if err := b.run(ctx); err != nil {
		cancel()
		allocCancel()
		return nil, fmt.Errorf("failed to initialize browser context: %w", err)
	}
	return b, nil
}

// run executes actions on the tab, bounded by ctx.
func (b *chromedpBrowser) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(b.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func (b *chromedpBrowser) Session() stealth.Session {
	return chromedp.FromContext(b.ctx).Target
}

func (b *chromedpBrowser) TargetID() string {
	return string(chromedp.FromContext(b.ctx).Target.TargetID)
}

func (b *chromedpBrowser) Navigate(ctx context.Context, url string) error {
	if err := b.run(ctx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("could not navigate to %s: %w", url, err)
	}
	if err := b.run(ctx, chromedp.WaitReady("body")); err != nil {
		return fmt.Errorf("page did not load: %w", err)
	}
	return nil
}

func (b *chromedpBrowser) HTML(ctx context.Context) (string, error) {
	var content string
	if err := b.run(ctx, chromedp.OuterHTML("html", &content)); err != nil {
		return "", fmt.Errorf("could not get page content: %w", err)
	}
	return content, nil
}

func (b *chromedpBrowser) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	if err := b.run(ctx, chromedp.FullScreenshot(&buf, 100)); err != nil {
		return nil, fmt.Errorf("error taking screenshot: %w", err)
	}
	return buf, nil
}

func (b *chromedpBrowser) Close(keep bool) error {
	if keep {
		// Cancelling would close the tab the session points at.
		return nil
	}
	// Leaving the page flushes localStorage before the tab goes away.
	_ = chromedp.Run(b.ctx, chromedp.Navigate("about:blank"))
	time.Sleep(100 * time.Millisecond)
	b.cancel()
	time.Sleep(500 * time.Millisecond)
	b.allocCancel()
	return nil
}
