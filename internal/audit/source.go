// Auditrail - Audit Event Logging and Risk Assessment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditrail

package audit

import (
	"net"
	"net/http"
	"strings"
)

// LoopbackIP is recorded when no client address can be determined.
const LoopbackIP = "127.0.0.1"

// RequestContext is the transport information attached to a write.
type RequestContext struct {
	IP        string
	UserAgent string
	Location  string
}

// RequestFromHTTP extracts the client address and user agent from a request.
// X-Forwarded-For (first hop) wins over X-Real-IP, which wins over RemoteAddr.
func RequestFromHTTP(r *http.Request) *RequestContext {
	if r == nil {
		return nil
	}
	return &RequestContext{
		IP:        clientIP(r),
		UserAgent: r.UserAgent(),
	}
}

func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	if r.RemoteAddr != "" {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			return r.RemoteAddr
		}
		return host
	}
	return ""
}

// InferPlatform derives the client platform from a user agent string.
// Mobile markers are checked before browser markers since mobile browsers
// also advertise Mozilla.
func InferPlatform(userAgent string) Platform {
	if userAgent == "" {
		return PlatformUnknown
	}
	switch {
	case containsAny(userAgent, "Mobile", "Android", "iPhone"):
		return PlatformMobile
	case containsAny(userAgent, "Mozilla", "Chrome"):
		return PlatformWeb
	case containsAny(userAgent, "API", "curl"):
		return PlatformAPI
	}
	return PlatformUnknown
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// buildSource fills Source defaults from an optional request context.
func buildSource(req *RequestContext, system bool) Source {
	src := Source{IP: LoopbackIP, Platform: PlatformUnknown}
	if req != nil {
		if req.IP != "" {
			src.IP = req.IP
		}
		src.UserAgent = req.UserAgent
		src.Location = req.Location
		src.Platform = InferPlatform(req.UserAgent)
	}
	if system && req == nil {
		src.Platform = PlatformSystem
	}
	return src
}
