package cli

import (
	"github.com/spf13/pflag"

	"github.com/assimelha/surf/pkg/stealth"
)

// addStealthFlags registers the activation overrides. Empty values keep the
// evasion defaults.
func addStealthFlags(f *pflag.FlagSet) {
	f.String("user-agent", "", "user agent to present (default: the browser's own, without the headless marker)")
	f.StringSlice("languages", nil, "navigator.languages and Accept-Language (default en-US,en)")
	f.String("vendor", "", "navigator.vendor (default \""+stealth.DefaultVendor+"\")")
	f.String("platform", "", "platform sent with the user agent override (default \""+stealth.DefaultPlatform+"\")")
	f.String("webgl-vendor", "", "WebGL UNMASKED_VENDOR (default \""+stealth.DefaultWebGLVendor+"\")")
	f.String("webgl-renderer", "", "WebGL UNMASKED_RENDERER (default \""+stealth.DefaultWebGLRenderer+"\")")
	f.Bool("fix-hairline", true, "apply the hairline fix")
	f.Bool("run-on-insecure-origins", false, "install the chrome.runtime shim on http pages")
	f.String("templates-dir", "", "directory of evasion templates overriding the built-in ones")
}
