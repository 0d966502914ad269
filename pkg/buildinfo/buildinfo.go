// Package buildinfo carries the version stamped into binaries at link time.
package buildinfo

import "go.uber.org/zap"

// Info describes one build. Empty values are reported as "N/A".
type Info struct {
	Version string
	Date    string
	Commit  string
}

func na(v string) string {
	if v == "" {
		return "N/A"
	}
	return v
}

// Fields renders the build as structured log fields.
func (i Info) Fields() []zap.Field {
	return []zap.Field{
		zap.String("build_version", na(i.Version)),
		zap.String("build_date", na(i.Date)),
		zap.String("build_commit", na(i.Commit)),
	}
}
