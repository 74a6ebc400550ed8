package transport

import (
	"fmt"
	"net"
	"net/url"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/idna"
)

// Locator is a parsed scheme://[user:pass@]host[:port]/root string.
// Netloc keeps any embedded credentials; use SplitNetloc to separate them.
type Locator struct {
	Scheme string
	Netloc string
	Root   string
}

func (l Locator) String() string {
	return l.Scheme + "://" + l.Netloc + l.Root
}

// ParseLocator splits a locator into scheme, netloc and root path. The netloc
// ends at the first '/', so a secret containing '/' must be written as %2F.
func ParseLocator(s string) (Locator, error) {
	scheme, rest, ok := strings.Cut(s, "://")
	if !ok || scheme == "" {
		return Locator{}, fmt.Errorf("%w: locator %q has no scheme", ErrInvalidArgument, s)
	}
	loc := Locator{Scheme: strings.ToLower(scheme)}
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		loc.Netloc, loc.Root = rest[:i], rest[i:]
	} else {
		loc.Netloc = rest
	}
	return loc, nil
}

// SplitNetloc separates "user:password@host[:port]" into its parts. ok is
// false when no credentials could be extracted; host is still returned and
// the caller keeps whatever credentials it already had. Percent-encoded
// credentials are decoded. A non-ASCII hostname is converted to its ASCII
// (punycode) form.
func SplitNetloc(netloc string) (host, user, password string, ok bool) {
	at := strings.LastIndexByte(netloc, '@')
	if at < 0 {
		return asciiHost(netloc), "", "", false
	}
	host = asciiHost(netloc[at+1:])
	user, password, ok = strings.Cut(netloc[:at], ":")
	if !ok || user == "" {
		return host, "", "", false
	}
	if u, err := url.PathUnescape(user); err == nil {
		user = u
	}
	if p, err := url.PathUnescape(password); err == nil {
		password = p
	}
	return host, user, password, true
}

func asciiHost(hostport string) string {
	if isASCII(hostport) {
		return hostport
	}
	name, port, err := net.SplitHostPort(hostport)
	if err != nil {
		name, port = hostport, ""
	}
	a, err := idna.Lookup.ToASCII(name)
	if err != nil {
		return hostport
	}
	if port == "" {
		return a
	}
	return net.JoinHostPort(a, port)
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}
