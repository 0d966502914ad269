package config

import (
	"flag"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/vshulcz/formmetrics/internal/misc"
)

const (
	defaultSubmitURL       = "https://bparr.homelinux.com/formmetrics.php"
	defaultSubmitDelay     = "1s"
	defaultSendTimeout     = "10s"
	defaultCollectBudget   = "50ms"
	defaultRefreshInterval = "60s"
	defaultShutdownTimeout = "15s"
	defaultPrefsFile       = "formmetrics-prefs.json"
	defaultPrefKey         = "extensions.formmetrics.id"
	defaultEventsFile      = "-"
	defaultLogLevel        = "info"
)

// DefaultProviders is the provider set of the original add-on, in record order.
var DefaultProviders = []string{
	"clientID", "time", "form", "uri", "history",
	"bookmarks", "password", "pinned", "privateBrowsing",
}

type AgentConfig struct {
	SubmitURL       string
	PrefsFile       string
	PrefKey         string
	ProfileDir      string
	EventsFile      string
	LogLevel        string
	ConfigFile      string
	Providers       []string
	SubmitDelay     time.Duration
	SendTimeout     time.Duration
	CollectBudget   time.Duration
	RefreshInterval time.Duration
	ShutdownTimeout time.Duration
}

type agentKey struct {
	key  string
	env  string
	flag string
}

var agentKeys = []agentKey{
	{key: "submit-url", env: "SUBMIT_URL", flag: "u"},
	{key: "submit-delay", env: "SUBMIT_DELAY", flag: "delay"},
	{key: "send-timeout", env: "SEND_TIMEOUT", flag: "timeout"},
	{key: "collect-budget", env: "COLLECT_BUDGET", flag: "budget"},
	{key: "refresh-interval", env: "REFRESH_INTERVAL", flag: "refresh"},
	{key: "shutdown-timeout", env: "SHUTDOWN_TIMEOUT", flag: "shutdown"},
	{key: "prefs-file", env: "PREFS_FILE", flag: "prefs"},
	{key: "pref-key", env: "PREF_KEY", flag: "pref-key"},
	{key: "profile-dir", env: "PROFILE_DIR", flag: "profile"},
	{key: "events-file", env: "EVENTS_FILE", flag: "events"},
	{key: "providers", env: "PROVIDERS", flag: "providers"},
	{key: "log-level", env: "LOG_LEVEL", flag: "log-level"},
}

// ENV > CLI > config file > defaults
func LoadAgentConfig(args []string, out io.Writer) (AgentConfig, error) {
	if out == nil {
		out = io.Discard
	}

	fs := flag.NewFlagSet("agent", flag.ContinueOnError)
	fs.SetOutput(out)

	var configOpt string
	fs.StringVar(&configOpt, "c", "", "config file (yaml or json)")
	fs.String("u", "", fmt.Sprintf("collector URL, default: %s", defaultSubmitURL))
	fs.String("delay", "", fmt.Sprintf("delay before a record is sent, default: %s", defaultSubmitDelay))
	fs.String("timeout", "", fmt.Sprintf("timeout of one delivery attempt, default: %s", defaultSendTimeout))
	fs.String("budget", "", fmt.Sprintf("deadline handed to providers, default: %s", defaultCollectBudget))
	fs.String("refresh", "", fmt.Sprintf("profile store refresh interval, default: %s", defaultRefreshInterval))
	fs.String("shutdown", "", fmt.Sprintf("wait for pending deliveries on exit, default: %s", defaultShutdownTimeout))
	fs.String("prefs", "", fmt.Sprintf("preferences file, default: %s", defaultPrefsFile))
	fs.String("pref-key", "", fmt.Sprintf("client id preference key, default: %s", defaultPrefKey))
	fs.String("profile", "", "browser profile directory (places.sqlite, logins.json)")
	fs.String("events", "", "submission event stream (NDJSON), '-' for stdin")
	fs.String("providers", "", fmt.Sprintf("comma separated providers, default: %s", strings.Join(DefaultProviders, ",")))
	fs.String("log-level", "", fmt.Sprintf("log level, default: %s", defaultLogLevel))

	if err := fs.Parse(args); err != nil {
		return AgentConfig{}, err
	}

	v := viper.New()
	v.SetDefault("submit-url", defaultSubmitURL)
	v.SetDefault("submit-delay", defaultSubmitDelay)
	v.SetDefault("send-timeout", defaultSendTimeout)
	v.SetDefault("collect-budget", defaultCollectBudget)
	v.SetDefault("refresh-interval", defaultRefreshInterval)
	v.SetDefault("shutdown-timeout", defaultShutdownTimeout)
	v.SetDefault("prefs-file", defaultPrefsFile)
	v.SetDefault("pref-key", defaultPrefKey)
	v.SetDefault("profile-dir", "")
	v.SetDefault("events-file", defaultEventsFile)
	v.SetDefault("providers", strings.Join(DefaultProviders, ","))
	v.SetDefault("log-level", defaultLogLevel)

	configPath := FromEnvOrFlag("CONFIG", configOpt, "")
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return AgentConfig{}, fmt.Errorf("read config %q: %w", configPath, err)
		}
	}

	visited := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { visited[f.Name] = true })
	for _, k := range agentKeys {
		if visited[k.flag] {
			v.Set(k.key, fs.Lookup(k.flag).Value.String())
		}
		if ev := strings.TrimSpace(os.Getenv(k.env)); ev != "" {
			v.Set(k.key, ev)
		}
	}

	cfg := AgentConfig{
		SubmitURL:  normalizeSubmitURL(v.GetString("submit-url")),
		PrefsFile:  strings.TrimSpace(v.GetString("prefs-file")),
		PrefKey:    strings.TrimSpace(v.GetString("pref-key")),
		ProfileDir: strings.TrimSpace(v.GetString("profile-dir")),
		EventsFile: strings.TrimSpace(v.GetString("events-file")),
		LogLevel:   strings.TrimSpace(v.GetString("log-level")),
		ConfigFile: configPath,
		Providers:  splitList(v.Get("providers")),
	}
	if _, err := url.ParseRequestURI(cfg.SubmitURL); err != nil {
		return AgentConfig{}, fmt.Errorf("invalid submit url: %q", cfg.SubmitURL)
	}

	durations := []struct {
		dst       *time.Duration
		key       string
		allowZero bool
	}{
		{&cfg.SubmitDelay, "submit-delay", true},
		{&cfg.SendTimeout, "send-timeout", false},
		{&cfg.CollectBudget, "collect-budget", false},
		{&cfg.RefreshInterval, "refresh-interval", true},
		{&cfg.ShutdownTimeout, "shutdown-timeout", false},
	}
	for _, d := range durations {
		val, err := misc.ParseDuration(v.GetString(d.key))
		if err != nil {
			return AgentConfig{}, fmt.Errorf("%s: %w", d.key, err)
		}
		if val < 0 || (val == 0 && !d.allowZero) {
			return AgentConfig{}, fmt.Errorf("%s must be > 0, got %v", d.key, val)
		}
		*d.dst = val
	}

	if cfg.PrefKey == "" {
		return AgentConfig{}, fmt.Errorf("pref key must not be empty")
	}
	if len(cfg.Providers) == 0 {
		return AgentConfig{}, fmt.Errorf("at least one provider is required")
	}
	return cfg, nil
}

func splitList(raw any) []string {
	var parts []string
	switch x := raw.(type) {
	case string:
		parts = strings.Split(x, ",")
	case []string:
		parts = x
	case []any:
		for _, it := range x {
			parts = append(parts, fmt.Sprint(it))
		}
	}
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func normalizeSubmitURL(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return defaultSubmitURL
	}
	if strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") {
		return s
	}
	if strings.HasPrefix(s, ":") {
		return "http://localhost" + s
	}
	return "https://" + s
}
