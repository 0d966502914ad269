package config

import (
	"flag"
	"fmt"
	"io"
	"net"
	"net/url"
	"strings"
)

const (
	defaultListenAndServeAddr = ":8080"
	defaultArchiveFile        = "formmetrics-records.ndjson"
	defaultDSN                = ""
	defaultRestore            = false
)

type ServerConfig struct {
	Address        string
	ArchiveFile    string
	DSN            string
	LogLevel       string
	TrustedProxies []string
	Restore        bool
}

// ENV > CLI > defaults
func LoadServerConfig(args []string, out io.Writer) (ServerConfig, error) {
	if out == nil {
		out = io.Discard
	}

	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.SetOutput(out)

	var addrOpt string
	var fileOpt string
	var dsnOpt string
	var levelOpt string
	var proxiesOpt string
	var restoreOpt bool

	fs.StringVar(&addrOpt, "a", "", fmt.Sprintf("HTTP listen address, default: %s", defaultListenAndServeAddr))
	fs.StringVar(&fileOpt, "f", "", fmt.Sprintf("ARCHIVE_FILE for accepted records (empty disables), default: %s", defaultArchiveFile))
	fs.StringVar(&dsnOpt, "d", "", "DATABASE_DSN for Postgres, default: in-memory storage")
	fs.StringVar(&levelOpt, "log-level", "", fmt.Sprintf("log level, default: %s", defaultLogLevel))
	fs.StringVar(&proxiesOpt, "trusted-proxies", "", "comma separated proxy IPs or CIDRs allowed to set X-Forwarded-For, default: none")
	fs.BoolVar(&restoreOpt, "r", false, fmt.Sprintf("RESTORE archive on start (true/false), default: %t", defaultRestore))

	if err := fs.Parse(args); err != nil {
		return ServerConfig{}, err
	}

	addr := normalizeListenAndServeURL(FromEnvOrFlag("ADDRESS", addrOpt, defaultListenAndServeAddr))
	_, port, err := net.SplitHostPort(addr)
	if err != nil || port == "" {
		return ServerConfig{}, fmt.Errorf("invalid listen address: %q", addr)
	}

	proxies := splitList(FromEnvOrFlag("TRUSTED_PROXIES", proxiesOpt, ""))
	for _, p := range proxies {
		if net.ParseIP(p) == nil {
			if _, _, err := net.ParseCIDR(p); err != nil {
				return ServerConfig{}, fmt.Errorf("invalid trusted proxy: %q", p)
			}
		}
	}
	if len(proxies) == 0 {
		proxies = nil
	}

	return ServerConfig{
		Address:        addr,
		ArchiveFile:    FromEnvOrFlag("ARCHIVE_FILE", fileOpt, defaultArchiveFile),
		DSN:            FromEnvOrFlag("DATABASE_DSN", dsnOpt, defaultDSN),
		LogLevel:       FromEnvOrFlag("LOG_LEVEL", levelOpt, defaultLogLevel),
		TrustedProxies: proxies,
		Restore:        FromEnvOrFlagBool("RESTORE", restoreOpt, defaultRestore),
	}, nil
}

func normalizeListenAndServeURL(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return defaultListenAndServeAddr
	}
	if strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") {
		if u, err := url.Parse(s); err == nil && u.Host != "" {
			return u.Host
		}
	}
	if !strings.Contains(s, ":") {
		return ":" + s
	}
	return s
}
