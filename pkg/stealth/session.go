package stealth

import (
	"context"

	"github.com/chromedp/cdproto/cdp"
)

// Session is a live browser control session. It issues one protocol command
// and decodes the result into res when res is non-nil. *chromedp.Target
// satisfies it, as does any cdp.Executor.
//
// The session is borrowed: Activate issues commands on it sequentially and
// never closes it.
type Session interface {
	Execute(ctx context.Context, method string, params, res any) error
}

var _ cdp.Executor = Session(nil)

func withSession(ctx context.Context, s Session) context.Context {
	return cdp.WithExecutor(ctx, s)
}
