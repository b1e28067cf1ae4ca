package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/assimelha/surf/pkg/stealth"
	"github.com/spf13/viper"
)

// Config is the root configuration of the surf binary.
type Config struct {
	Logger  LoggerConfig  `mapstructure:"logger"`
	Browser BrowserConfig `mapstructure:"browser"`
	Stealth StealthConfig `mapstructure:"stealth"`
	Output  OutputConfig  `mapstructure:"output"`
}

// LoggerConfig controls the process logger.
type LoggerConfig struct {
	Level       string `mapstructure:"level"`
	Format      string `mapstructure:"format"` // console or json
	ServiceName string `mapstructure:"service_name"`
	AddSource   bool   `mapstructure:"add_source"`
	LogFile     string `mapstructure:"log_file"`
	MaxSize     int    `mapstructure:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups"`
	MaxAge      int    `mapstructure:"max_age"`
	Compress    bool   `mapstructure:"compress"`
}

// BrowserConfig describes how to reach or start the browser.
type BrowserConfig struct {
	Engine         string        `mapstructure:"engine"` // chromedp, rod or playwright
	Home           string        `mapstructure:"home"`
	ExecPath       string        `mapstructure:"exec_path"`
	RemoteURL      string        `mapstructure:"remote_url"`
	Profile        string        `mapstructure:"profile"`
	Headless       bool          `mapstructure:"headless"`
	WindowSize     string        `mapstructure:"window_size"`
	Timeout        time.Duration `mapstructure:"timeout"`
	StartupTimeout time.Duration `mapstructure:"startup_timeout"`
}

// StealthConfig mirrors stealth.Request. Empty values keep the evasion defaults.
type StealthConfig struct {
	Enabled              bool     `mapstructure:"enabled"`
	TemplatesDir         string   `mapstructure:"templates_dir"`
	UserAgent            string   `mapstructure:"user_agent"`
	Languages            []string `mapstructure:"languages"`
	Vendor               string   `mapstructure:"vendor"`
	Platform             string   `mapstructure:"platform"`
	WebGLVendor          string   `mapstructure:"webgl_vendor"`
	WebGLRenderer        string   `mapstructure:"webgl_renderer"`
	FixHairline          *bool    `mapstructure:"fix_hairline"`
	RunOnInsecureOrigins bool     `mapstructure:"run_on_insecure_origins"`
	FitViewport          bool     `mapstructure:"fit_viewport"`
}

type OutputConfig struct {
	Raw           bool `mapstructure:"raw"`
	TruncateAfter int  `mapstructure:"truncate_after"`
}

var stealthKeys = []string{
	"templates_dir", "user_agent", "languages", "vendor", "platform",
	"webgl_vendor", "webgl_renderer", "fix_hairline", "run_on_insecure_origins",
}

var engines = map[string]bool{"chromedp": true, "rod": true, "playwright": true}

// SetDefaults registers every default so the binary runs without a config file.
// Stealth overrides have no defaults here; the evasions carry their own.
func SetDefaults(v *viper.Viper) {
	home, _ := os.UserHomeDir()

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.service_name", "surf")
	v.SetDefault("logger.max_size", 10)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 28)

	v.SetDefault("browser.engine", "chromedp")
	v.SetDefault("browser.home", filepath.Join(home, ".surf"))
	v.SetDefault("browser.profile", "default")
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.timeout", 60*time.Second)
	v.SetDefault("browser.startup_timeout", 10*time.Second)

	v.SetDefault("stealth.enabled", true)
	v.SetDefault("stealth.fit_viewport", true)

	v.SetDefault("output.truncate_after", 100000)
}

// Setup points v at the config file and the SURF_ environment.
func Setup(v *viper.Viper, cfgFile string) error {
	SetDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".surf"))
		}
		v.SetConfigName("surf")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("SURF")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Keys without defaults are invisible to Unmarshal unless bound.
	for _, key := range stealthKeys {
		if err := v.BindEnv("stealth." + key); err != nil {
			return err
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}
	return nil
}

// Load decodes and validates the configuration held by v.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if !engines[c.Browser.Engine] {
		return fmt.Errorf("browser.engine must be one of chromedp, rod, playwright; got %q", c.Browser.Engine)
	}
	if c.Browser.Home == "" {
		return errors.New("browser.home is required")
	}
	if c.Browser.Timeout <= 0 {
		return errors.New("browser.timeout must be positive")
	}
	if c.Browser.StartupTimeout <= 0 {
		return errors.New("browser.startup_timeout must be positive")
	}
	if c.Logger.Format != "console" && c.Logger.Format != "json" {
		return fmt.Errorf("logger.format must be console or json; got %q", c.Logger.Format)
	}
	if c.Output.TruncateAfter < 0 {
		return errors.New("output.truncate_after cannot be negative")
	}
	for _, lang := range c.Stealth.Languages {
		if strings.TrimSpace(lang) == "" {
			return errors.New("stealth.languages cannot contain empty tags")
		}
	}
	return nil
}

// Request converts the stealth section into an activation request.
func (s StealthConfig) Request() stealth.Request {
	return stealth.Request{
		UserAgent:            s.UserAgent,
		Languages:            s.Languages,
		Vendor:               s.Vendor,
		Platform:             s.Platform,
		WebGLVendor:          s.WebGLVendor,
		WebGLRenderer:        s.WebGLRenderer,
		FixHairline:          s.FixHairline,
		RunOnInsecureOrigins: s.RunOnInsecureOrigins,
	}
}

// Templates returns the on-disk template override, or the embedded set.
func (s StealthConfig) Templates() stealth.TemplateSource {
	if s.TemplatesDir != "" {
		return stealth.DirTemplates(s.TemplatesDir)
	}
	return stealth.Embedded()
}
