package engine

import (
	"net/url"
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// blockedTypes never affect extraction or screenshots.
var blockedTypes = map[proto.NetworkResourceType]struct{}{
	proto.NetworkResourceTypeFont:  {},
	proto.NetworkResourceTypeMedia: {},
}

// adHosts are ad and tracking hosts dropped when ad blocking is on. Their
// scripts slow the DOMContentLoaded wait and inject overlays into
// screenshots.
var adHosts = map[string]struct{}{
	"doubleclick.net":       {},
	"googlesyndication.com": {},
	"googleadservices.com":  {},
	"google-analytics.com":  {},
	"googletagmanager.com":  {},
	"facebook.net":          {},
	"criteo.com":            {},
	"criteo.net":            {},
	"hotjar.com":            {},
	"taboola.com":           {},
	"outbrain.com":          {},
	"adnxs.com":             {},
	"scorecardresearch.com": {},
	"mercadoads.com":        {},
}

// isAdHost reports whether host or any parent domain is listed.
func isAdHost(host string) bool {
	host = strings.ToLower(host)
	for host != "" {
		if _, ok := adHosts[host]; ok {
			return true
		}
		_, rest, found := strings.Cut(host, ".")
		if !found {
			return false
		}
		host = rest
	}
	return false
}

// setupHijack installs a request interceptor that drops fonts, media and
// (optionally) ad hosts. The caller must Stop the returned router.
func setupHijack(page *rod.Page, blockAds bool) *rod.HijackRouter {
	router := page.HijackRequests()
	_ = router.Add("*", "", func(h *rod.Hijack) {
		if _, drop := blockedTypes[h.Request.Type()]; drop {
			h.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
			return
		}
		if blockAds {
			if u, err := url.Parse(h.Request.URL().String()); err == nil && isAdHost(u.Hostname()) {
				h.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
				return
			}
		}
		h.ContinueRequest(&proto.FetchContinueRequest{})
	})

	// Run blocks until Stop.
	go router.Run()
	return router
}
