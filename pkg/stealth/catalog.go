package stealth

import (
	"context"
	"slices"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/page"
)

// Param documents one argument slot of an evasion.
type Param struct {
	Name    string
	Default string
}

// Evasion is one entry of the activation catalog.
type Evasion struct {
	Name string
	// Template names the script template; empty for protocol evasions.
	Template string
	// Command is the protocol command the step issues.
	Command string
	Params  []Param

	args     func(Settings) []any
	override func(context.Context, Settings) error
	enabled  func(Settings) bool
}

// Script reports whether the evasion is registered as a new-document script.
func (e Evasion) Script() bool {
	return e.Template != ""
}

const addScript = page.CommandAddScriptToEvaluateOnNewDocument

// cdproto only generates the Emulation variant of the user agent override.
// The Network command takes the same parameters and also rewrites the
// request headers, so it is issued by name.
const commandSetUserAgentOverride = "Network.setUserAgentOverride"

func script(name string, params []Param, args func(Settings) []any) Evasion {
	return Evasion{Name: name, Template: name, Command: addScript, Params: params, args: args}
}

// catalog is walked in order by Activate. The order is part of the contract:
// every template after the first calls into utils.
var catalog = []Evasion{
	script("utils", nil, nil),
	script("chrome.app", nil, nil),
	script("chrome.runtime",
		[]Param{{Name: "run_on_insecure_origins", Default: "false"}},
		func(s Settings) []any { return []any{s.RunOnInsecureOrigins} }),
	script("iframe.contentWindow", nil, nil),
	script("media.codecs", nil, nil),
	script("navigator.languages",
		[]Param{{Name: "languages", Default: `["en-US","en"]`}},
		func(s Settings) []any { return []any{s.Languages} }),
	script("navigator.permissions", nil, nil),
	script("navigator.plugins", nil, nil),
	script("navigator.vendor",
		[]Param{{Name: "vendor", Default: DefaultVendor}},
		func(s Settings) []any { return []any{s.Vendor} }),
	script("navigator.webdriver", nil, nil),
	{
		Name:    userAgentOverride,
		Command: commandSetUserAgentOverride,
		Params: []Param{
			{Name: "user_agent", Default: "live Browser.getVersion, headless marker removed"},
			{Name: "accept_language", Default: "languages joined by ','"},
			{Name: "platform", Default: DefaultPlatform},
		},
		override: func(ctx context.Context, s Settings) error {
			params := emulation.SetUserAgentOverride(s.UserAgent).
				WithAcceptLanguage(s.AcceptLanguage()).
				WithPlatform(s.Platform)
			return cdp.Execute(ctx, commandSetUserAgentOverride, params, nil)
		},
	},
	script("webgl.vendor",
		[]Param{
			{Name: "vendor", Default: DefaultWebGLVendor},
			{Name: "renderer", Default: DefaultWebGLRenderer},
		},
		func(s Settings) []any { return []any{s.WebGLVendor, s.WebGLRenderer} }),
	script("window.outerdimensions", nil, nil),
	withCondition(script("hairline.fix", nil, nil), func(s Settings) bool { return s.FixHairline }),
}

func withCondition(e Evasion, enabled func(Settings) bool) Evasion {
	e.enabled = enabled
	return e
}

// Catalog returns the ordered evasion table.
func Catalog() []Evasion {
	out := slices.Clone(catalog)
	for i := range out {
		out[i].Params = slices.Clone(out[i].Params)
	}
	return out
}

// Lookup finds an evasion by name.
func Lookup(name string) (Evasion, bool) {
	i := slices.IndexFunc(catalog, func(e Evasion) bool { return e.Name == name })
	if i < 0 {
		return Evasion{}, false
	}
	return catalog[i], true
}

func (e Evasion) arguments(s Settings) []any {
	if e.args == nil {
		return nil
	}
	return e.args(s)
}

func (e Evasion) applies(s Settings) bool {
	return e.enabled == nil || e.enabled(s)
}
