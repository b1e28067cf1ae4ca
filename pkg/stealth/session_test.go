package stealth

import (
	"context"
	"errors"
	"sync"

	"github.com/go-json-experiment/json"
)

type call struct {
	Method string
	Params map[string]any
}

// fakeSession records every command and answers from canned results.
type fakeSession struct {
	mu      sync.Mutex
	calls   []call
	results map[string]string
	// failAt makes the n-th command (1-based, counting every method) fail.
	failAt  int
	failErr error
}

func newFakeSession(userAgent string) *fakeSession {
	ua, _ := json.Marshal(userAgent)
	return &fakeSession{
		results: map[string]string{
			"Browser.getVersion":                    `{"product":"HeadlessChrome/100.0","userAgent":` + string(ua) + `}`,
			"Page.addScriptToEvaluateOnNewDocument": `{"identifier":"1"}`,
		},
	}
}

func (f *fakeSession) Execute(ctx context.Context, method string, params, res any) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	c := call{Method: method}
	if params != nil {
		b, err := json.Marshal(params)
		if err != nil {
			return err
		}
		if err := json.Unmarshal(b, &c.Params); err != nil {
			return err
		}
	}
	f.calls = append(f.calls, c)

	if f.failAt == len(f.calls) {
		if f.failErr != nil {
			return f.failErr
		}
		return errors.New("target closed")
	}
	if raw, ok := f.results[method]; ok && res != nil {
		return json.Unmarshal([]byte(raw), res)
	}
	return nil
}

func (f *fakeSession) methods() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	for i, c := range f.calls {
		out[i] = c.Method
	}
	return out
}

// commands drops the version query so only the activation steps remain.
func (f *fakeSession) commands() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []call
	for _, c := range f.calls {
		if c.Method != "Browser.getVersion" {
			out = append(out, c)
		}
	}
	return out
}

// namedTemplates returns "() => '<name>'" for every name, so each rendered
// payload identifies its template.
type namedTemplates struct {
	missing string
}

func (t namedTemplates) Template(name string) (string, error) {
	if name == t.missing {
		return "", errors.New("no such template")
	}
	return "() => '" + name + "'", nil
}
