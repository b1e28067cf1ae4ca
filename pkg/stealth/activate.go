package stealth

import (
	"context"
	"fmt"

	"github.com/chromedp/cdproto/browser"
	"github.com/chromedp/cdproto/page"
	"go.uber.org/zap"
)

// Activator applies the evasion catalog to browser sessions. It holds no
// per-session state and is safe for concurrent use on different sessions.
type Activator struct {
	templates TemplateSource
	logger    *zap.Logger
}

type Option func(*Activator)

// WithTemplates replaces the embedded templates.
func WithTemplates(src TemplateSource) Option {
	return func(a *Activator) {
		a.templates = src
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(a *Activator) {
		if logger != nil {
			a.logger = logger
		}
	}
}

func New(opts ...Option) *Activator {
	a := &Activator{
		templates: Embedded(),
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = a.logger.Named("stealth")
	return a
}

// Activate applies every evasion with the embedded templates.
func Activate(ctx context.Context, s Session, req Request) error {
	return New().Activate(ctx, s, req)
}

// Activate resolves req, then registers each script evasion to run on every
// new document of the session and issues the protocol overrides, in catalog
// order. The first failure aborts the sequence and is returned as a
// *StepError; steps already applied stay applied.
//
// Calling Activate again on the same session registers the scripts a second
// time.
func (a *Activator) Activate(ctx context.Context, s Session, req Request) error {
	ctx = withSession(ctx, s)

	settings := req.Settings()
	if settings.UserAgent == "" {
		ua, err := ResolveUserAgent(ctx, s)
		if err != nil {
			return a.fail(&StepError{
				Step:    stepOf(userAgentOverride),
				Evasion: userAgentOverride,
				Op:      browser.CommandGetVersion,
				Kind:    ErrTransport,
				Err:     err,
			})
		}
		settings.UserAgent = ua
	}

	applied := 0
	for i, ev := range catalog {
		step := i + 1
		if !ev.applies(settings) {
			a.logger.Debug("Skipping evasion", zap.Int("step", step), zap.String("evasion", ev.Name))
			continue
		}
		if err := a.apply(ctx, ev, settings); err != nil {
			err.Step = step
			return a.fail(err)
		}
		applied++
		a.logger.Debug("Applied evasion",
			zap.Int("step", step),
			zap.String("evasion", ev.Name),
			zap.String("command", ev.Command))
	}

	a.logger.Info("Stealth activated",
		zap.Int("applied", applied),
		zap.String("user_agent", settings.UserAgent),
		zap.Strings("languages", settings.Languages))
	return nil
}

// Payload renders the script evasion name with settings, without a session.
func (a *Activator) Payload(name string, settings Settings) (string, error) {
	ev, ok := Lookup(name)
	if !ok {
		return "", fmt.Errorf("stealth: unknown evasion %q", name)
	}
	if !ev.Script() {
		return "", fmt.Errorf("stealth: %s is a protocol override, not a script", name)
	}
	code, serr := a.render(ev, settings)
	if serr != nil {
		serr.Step = stepOf(name)
		return "", serr
	}
	return code, nil
}

func (a *Activator) apply(ctx context.Context, ev Evasion, settings Settings) *StepError {
	if !ev.Script() {
		if err := ev.override(ctx, settings); err != nil {
			return &StepError{Evasion: ev.Name, Op: ev.Command, Kind: ErrTransport, Err: err}
		}
		return nil
	}

	code, serr := a.render(ev, settings)
	if serr != nil {
		return serr
	}
	if _, err := page.AddScriptToEvaluateOnNewDocument(code).Do(ctx); err != nil {
		return &StepError{Evasion: ev.Name, Op: ev.Command, Kind: ErrTransport, Err: err}
	}
	return nil
}

func (a *Activator) render(ev Evasion, settings Settings) (string, *StepError) {
	tmpl, err := a.templates.Template(ev.Template)
	if err != nil {
		return "", &StepError{Evasion: ev.Name, Op: "template", Kind: ErrTemplateLoad, Err: err}
	}
	code, err := Render(tmpl, ev.arguments(settings)...)
	if err != nil {
		return "", &StepError{Evasion: ev.Name, Op: "render", Kind: ErrSerialization, Err: err}
	}
	return code, nil
}

func (a *Activator) fail(err *StepError) error {
	a.logger.Error("Stealth activation failed",
		zap.Int("step", err.Step),
		zap.String("evasion", err.Evasion),
		zap.String("op", err.Op),
		zap.Error(err.Err))
	return err
}

const userAgentOverride = "user_agent_override"

func stepOf(name string) int {
	for i, ev := range catalog {
		if ev.Name == name {
			return i + 1
		}
	}
	return 0
}
