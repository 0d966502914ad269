package providers

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/vshulcz/formmetrics/internal/domain"
)

var defaultPorts = map[string]int{
	"http":  80,
	"https": 443,
	"ftp":   21,
	"ws":    80,
	"wss":   443,
}

// URI reports the form document, top-level document and action addresses.
// An address that is missing encodes as null.
type URI struct{}

func (URI) Get(_ context.Context, sc *domain.SubmissionContext) (domain.Value, error) {
	return domain.Object(
		domain.F("form", uriValue(sc.Document)),
		domain.F("top", uriValue(sc.Top)),
		domain.F("action", uriValue(sc.Action)),
	), nil
}

func uriValue(u *url.URL) domain.Value {
	if u == nil {
		return domain.Null()
	}
	return domain.Object(
		domain.F("spec", domain.String(u.String())),
		domain.F("scheme", domain.String(u.Scheme)),
		domain.F("host", domain.String(u.Hostname())),
		domain.F("port", domain.Int(int64(ExplicitPort(u)))),
		domain.F("path", domain.String(uriPath(u))),
	)
}

// ExplicitPort returns the port written in u, or -1 when there is none.
func ExplicitPort(u *url.URL) int {
	p := u.Port()
	if p == "" {
		return -1
	}
	n, err := strconv.Atoi(p)
	if err != nil {
		return -1
	}
	return n
}

// uriPath is everything after the authority: path, query and fragment.
func uriPath(u *url.URL) string {
	if u.Opaque != "" {
		return u.Opaque
	}
	var b strings.Builder
	p := u.EscapedPath()
	if p == "" && u.Host != "" {
		p = "/"
	}
	b.WriteString(p)
	if u.RawQuery != "" || u.ForceQuery {
		b.WriteByte('?')
		b.WriteString(u.RawQuery)
	}
	if u.Fragment != "" {
		b.WriteByte('#')
		b.WriteString(u.EscapedFragment())
	}
	return b.String()
}

// FormatOrigin renders scheme://host, adding the port only when it is
// explicit and not the scheme's default.
func FormatOrigin(u *url.URL) string {
	host := u.Hostname()
	if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	origin := u.Scheme + "://" + host
	if port := ExplicitPort(u); port != -1 {
		if def, ok := defaultPorts[strings.ToLower(u.Scheme)]; !ok || def != port {
			origin += ":" + strconv.Itoa(port)
		}
	}
	return origin
}
