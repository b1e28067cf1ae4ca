package stealth

import (
	"context"
	"fmt"
	"math"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/page"
)

type layoutMetrics struct {
	ContentSize struct {
		Width  float64 `json:"width"`
		Height float64 `json:"height"`
	} `json:"contentSize"`
}

// FitViewport resizes the emulated device to the full content size of the
// current document, so a screenshot covers the page the way a headed
// desktop window would.
func FitViewport(ctx context.Context, s Session) error {
	// Decoded by hand; only contentSize is needed.
	var metrics layoutMetrics
	if err := s.Execute(ctx, page.CommandGetLayoutMetrics, nil, &metrics); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrTransport, page.CommandGetLayoutMetrics, err)
	}

	width := int64(math.Ceil(metrics.ContentSize.Width))
	height := int64(math.Ceil(metrics.ContentSize.Height))
	if width <= 0 || height <= 0 {
		return fmt.Errorf("stealth: empty content size %dx%d", width, height)
	}

	err := emulation.SetDeviceMetricsOverride(width, height, 1, false).
		WithScreenOrientation(&emulation.ScreenOrientation{
			Type:  emulation.OrientationTypePortraitPrimary,
			Angle: 0,
		}).
		Do(withSession(ctx, s))
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrTransport, emulation.CommandSetDeviceMetricsOverride, err)
	}
	return nil
}
