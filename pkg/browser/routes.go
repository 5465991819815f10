package browser

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/gobwas/glob"
	"golang.org/x/net/publicsuffix"
)

// Routes classifies page URLs for the target site.
type Routes struct {
	domain  string
	signIn  glob.Glob
	history glob.Glob
}

// NewRoutes builds a classifier. The site is identified by the registrable
// domain of baseURL, so subdomains count as on-site. The patterns are globs
// matched against the full URL.
func NewRoutes(baseURL, signInPattern, historyPattern string) (*Routes, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Hostname() == "" {
		return nil, fmt.Errorf("invalid base url %q", baseURL)
	}

	signIn, err := glob.Compile(signInPattern)
	if err != nil {
		return nil, fmt.Errorf("invalid sign-in pattern %q: %w", signInPattern, err)
	}

	history, err := glob.Compile(historyPattern)
	if err != nil {
		return nil, fmt.Errorf("invalid history pattern %q: %w", historyPattern, err)
	}

	return &Routes{
		domain:  registrableDomain(u.Hostname()),
		signIn:  signIn,
		history: history,
	}, nil
}

func registrableDomain(host string) string {
	host = strings.ToLower(host)
	if d, err := publicsuffix.EffectiveTLDPlusOne(host); err == nil {
		return d
	}
	// localhost, IPs and bare suffixes
	return host
}

// OnSite reports whether raw belongs to the target site.
func (r *Routes) OnSite(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return false
	}
	return registrableDomain(u.Hostname()) == r.domain
}

// IsSignIn reports whether raw is the sign-in route.
func (r *Routes) IsSignIn(raw string) bool {
	return r.signIn.Match(raw)
}

// IsHistory reports whether raw is the generation history route.
func (r *Routes) IsHistory(raw string) bool {
	return r.history.Match(raw)
}

// IsAuthenticated reports whether a page sitting at raw is logged in: on the
// site and not bounced to sign-in.
func (r *Routes) IsAuthenticated(raw string) bool {
	return r.OnSite(raw) && !r.IsSignIn(raw)
}
