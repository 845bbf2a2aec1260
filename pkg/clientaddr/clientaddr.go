// Package clientaddr resolves the visitor address behind reverse proxies.
package clientaddr

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// DefaultPrecedence is the header order consulted by Resolve.
var DefaultPrecedence = []string{
	"CF-Connecting-IP",
	"True-Client-IP",
	"X-Real-IP",
	"X-Forwarded-For",
	"Forwarded",
}

// Resolve returns the first syntactically valid address found in header,
// walking precedence in order. X-Forwarded-For contributes its leftmost
// entry and Forwarded its first for= parameter. When no header yields an
// address the host part of fallback (usually RemoteAddr) is returned.
func Resolve(header http.Header, fallback string, precedence []string) string {
	if precedence == nil {
		precedence = DefaultPrecedence
	}
	for _, name := range precedence {
		v := strings.TrimSpace(header.Get(name))
		if v == "" {
			continue
		}
		var candidate string
		switch http.CanonicalHeaderKey(name) {
		case "X-Forwarded-For":
			candidate, _, _ = strings.Cut(v, ",")
		case "Forwarded":
			candidate = forwardedFor(v)
		default:
			candidate = v
		}
		if addr, ok := parse(candidate); ok {
			return addr
		}
	}

	if addr, ok := parse(fallback); ok {
		return addr
	}
	return fallback
}

// forwardedFor extracts the first for= value of an RFC 7239 header.
func forwardedFor(v string) string {
	first, _, _ := strings.Cut(v, ",")
	for _, pair := range strings.Split(first, ";") {
		k, val, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if ok && strings.EqualFold(k, "for") {
			return strings.Trim(val, `"`)
		}
	}
	return ""
}

// parse accepts a bare IP, an IP with port, or a bracketed IPv6 with port.
func parse(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	if addr, err := netip.ParseAddr(strings.Trim(s, "[]")); err == nil {
		return addr.Unmap().String(), true
	}
	if host, _, err := net.SplitHostPort(s); err == nil {
		if addr, err := netip.ParseAddr(host); err == nil {
			return addr.Unmap().String(), true
		}
	}
	return "", false
}
