// Package gate decides whether a navigation proceeds or is intercepted by
// the reflection page.
package gate

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/Fdondi/MindfulTab/internal/config"
	"github.com/Fdondi/MindfulTab/internal/karma"
)

// GatePagePath identifies the reflection page inside the extension bundle.
// The gate never intercepts its own page.
const GatePagePath = "/src/gate/gate.html"

// Action is the outcome of a gate decision.
type Action string

const (
	// ActionAllow lets the navigation proceed unmodified.
	ActionAllow Action = "allow"
	// ActionGate redirects the tab to the reflection page.
	ActionGate Action = "gate"
)

// Decision carries the outcome plus the inputs the gate page needs.
type Decision struct {
	Action Action
	Domain string
	Score  int
	State  karma.State
}

// Input bundles everything Decide needs. Decide itself is pure; callers
// resolve karma, opt-out, and bypass state first.
type Input struct {
	URL          string
	Domain       string
	Score        int
	Thresholds   config.Thresholds
	OptedOut     bool
	BypassActive bool
}

// Decide runs the gate procedure: non-gateable URLs, opt-out domains,
// normal-karma domains, active bypass windows, and the gate page itself all
// pass through; everything else is gated. Unextractable domains fail open.
func Decide(in Input) Decision {
	allow := Decision{
		Action: ActionAllow,
		Domain: in.Domain,
		Score:  in.Score,
		State:  karma.Classify(in.Score, in.Thresholds),
	}

	if NeverGate(in.URL) || in.Domain == "" {
		return allow
	}
	if in.OptedOut {
		return allow
	}
	if allow.State == karma.StateNormal {
		return allow
	}
	if in.BypassActive {
		return allow
	}
	if strings.Contains(in.URL, GatePagePath) {
		return allow
	}

	gated := allow
	gated.Action = ActionGate
	return gated
}

// NeverGate reports whether a URL is categorically exempt: extension-scheme
// pages and anything that is not http(s). Empty URLs are exempt too, which
// is the fail-open behavior for unparseable navigation.
func NeverGate(rawURL string) bool {
	if rawURL == "" {
		return true
	}
	if strings.HasPrefix(rawURL, "moz-extension://") || strings.HasPrefix(rawURL, "chrome-extension://") {
		return true
	}
	lower := strings.ToLower(rawURL)
	return !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://")
}

// PageURL builds the gate page URL carrying the intended target, the domain,
// and its score: <gatePage>?target=..&domain=..&score=..
func PageURL(gatePage, targetURL, domain string, score int) string {
	params := url.Values{}
	params.Set("target", targetURL)
	params.Set("domain", domain)
	params.Set("score", strconv.Itoa(score))
	return gatePage + "?" + params.Encode()
}
