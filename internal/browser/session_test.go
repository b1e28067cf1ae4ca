package browser

import (
	"context"
	"errors"
	"testing"

	"github.com/go-json-experiment/json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/assimelha/surf/pkg/stealth"
)

var cannedResults = map[string]string{
	"Browser.getVersion":                    `{"product":"HeadlessChrome/120.0.0.0","userAgent":"Mozilla/5.0 (X11; Linux x86_64) HeadlessChrome/120.0.0.0 Safari/537.36"}`,
	"Page.addScriptToEvaluateOnNewDocument": `{"identifier":"1"}`,
}

type sent struct {
	method string
	params map[string]any
}

// fakeRodPage stands in for *rod.Page.
type fakeRodPage struct {
	sessionIDs []string
	calls      []sent
	err        error
}

func (p *fakeRodPage) Call(ctx context.Context, sessionID, method string, params any) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.sessionIDs = append(p.sessionIDs, sessionID)
	c := sent{method: method}
	if params != nil {
		m, ok := params.(interface{ MarshalJSON() ([]byte, error) })
		if !ok {
			return nil, errors.New("params are not pre-encoded")
		}
		b, err := m.MarshalJSON()
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(b, &c.params); err != nil {
			return nil, err
		}
	}
	p.calls = append(p.calls, c)
	if p.err != nil {
		return nil, p.err
	}
	return []byte(cannedResults[method]), nil
}

// fakeCDPSession stands in for playwright.CDPSession.
type fakeCDPSession struct {
	calls []sent
	err   error
}

func (s *fakeCDPSession) Send(method string, params map[string]any) (any, error) {
	s.calls = append(s.calls, sent{method: method, params: params})
	if s.err != nil {
		return nil, s.err
	}
	raw, ok := cannedResults[method]
	if !ok {
		return nil, nil
	}
	var out any
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func methodsOf(calls []sent) []string {
	out := make([]string, len(calls))
	for i, c := range calls {
		out[i] = c.method
	}
	return out
}

func expectedMethods() []string {
	out := []string{"Browser.getVersion"}
	for _, ev := range stealth.Catalog() {
		out = append(out, ev.Command)
	}
	return out
}

func userAgentParams(t *testing.T, calls []sent) map[string]any {
	t.Helper()
	for _, c := range calls {
		if c.method == "Network.setUserAgentOverride" {
			return c.params
		}
	}
	t.Fatal("no user agent override issued")
	return nil
}

func TestRodSessionActivation(t *testing.T) {
	page := &fakeRodPage{}
	sess := RodSession{page: page, sessionID: "S1"}

	require.NoError(t, stealth.Activate(context.Background(), sess, stealth.Request{}))

	assert.Equal(t, expectedMethods(), methodsOf(page.calls))
	for _, id := range page.sessionIDs {
		assert.Equal(t, "S1", id)
	}

	ua := userAgentParams(t, page.calls)
	assert.Equal(t, "(Mozilla/5.0 (X11; Linux x86_64) Chrome/120.0.0.0 Safari/537.36)", ua["userAgent"])
	assert.Equal(t, "en-US,en", ua["acceptLanguage"])
	assert.Equal(t, "None", ua["platform"])

	first := page.calls[1].params["source"]
	assert.IsType(t, "", first)
	assert.Contains(t, first, "utils")
}

func TestRodSessionTransportError(t *testing.T) {
	page := &fakeRodPage{err: errors.New("websocket closed")}
	err := stealth.Activate(context.Background(), RodSession{page: page}, stealth.Request{UserAgent: "UA"})

	var stepErr *stealth.StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, 1, stepErr.Step)
	assert.ErrorIs(t, err, stealth.ErrTransport)
	assert.Len(t, page.calls, 1)
}

func TestRodSessionDecodeError(t *testing.T) {
	var out struct{ N int }
	sess := RodSession{page: rodFunc(func() []byte { return []byte(`{"N":"x"}`) })}
	err := sess.Execute(context.Background(), "X.y", nil, &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode X.y result")
}

type rodFunc func() []byte

func (f rodFunc) Call(context.Context, string, string, any) ([]byte, error) { return f(), nil }

func TestPlaywrightSessionActivation(t *testing.T) {
	cdp := &fakeCDPSession{}
	sess := PlaywrightSession{cdp: cdp}

	req := stealth.Request{Languages: []string{"de-DE", "de"}, FixHairline: stealth.Bool(false)}
	require.NoError(t, stealth.Activate(context.Background(), sess, req))

	want := expectedMethods()
	want = want[:len(want)-1]
	assert.Equal(t, want, methodsOf(cdp.calls))

	ua := userAgentParams(t, cdp.calls)
	assert.Equal(t, "de-DE,de", ua["acceptLanguage"])
}

func TestPlaywrightSessionHonoursContext(t *testing.T) {
	cdp := &fakeCDPSession{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := stealth.Activate(ctx, PlaywrightSession{cdp: cdp}, stealth.Request{UserAgent: "UA"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, err, stealth.ErrTransport)
	assert.Empty(t, cdp.calls)
}

func TestPlaywrightSessionTransportError(t *testing.T) {
	cdp := &fakeCDPSession{err: errors.New("Target closed")}
	err := stealth.Activate(context.Background(), PlaywrightSession{cdp: cdp}, stealth.Request{})

	var stepErr *stealth.StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, 11, stepErr.Step)
	assert.Equal(t, "Browser.getVersion", stepErr.Op)
}
