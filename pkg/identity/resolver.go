package identity

import (
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/cespare/xxhash/v2"
)

const (
	HeaderForwardedFor   = "X-Forwarded-For"
	HeaderRealIP         = "X-Real-IP"
	HeaderUserAgent      = "User-Agent"
	HeaderAcceptLanguage = "Accept-Language"

	fingerprintPrefix = "fp:"
	redactedPrefix    = "id:"
)

var (
	ipv4Pattern = regexp.MustCompile(`^(\d{1,3}\.){3}\d{1,3}$`)
	ipv6Pattern = regexp.MustCompile(`^[0-9a-fA-F]{0,4}(:[0-9a-fA-F]{0,4}){2,7}$`)
)

// HeaderFunc looks up a request header by name, returning "" when absent.
type HeaderFunc func(key string) string

// FromHTTPHeader adapts a net/http header map.
func FromHTTPHeader(h http.Header) HeaderFunc {
	return h.Get
}

// Resolve derives the rate-limit identity of a request.
// Order: first IP-looking token of X-Forwarded-For, then X-Real-IP, then a
// fingerprint of User-Agent and Accept-Language.
//
// The fingerprint is defense in depth only. Every input is client controlled,
// so it must never be treated as a security boundary.
func Resolve(get HeaderFunc) string {
	if forwarded := get(HeaderForwardedFor); forwarded != "" {
		for _, token := range strings.Split(forwarded, ",") {
			candidate := strings.TrimSpace(token)
			if IsIP(candidate) {
				return candidate
			}
		}
	}

	if realIP := strings.TrimSpace(get(HeaderRealIP)); IsIP(realIP) {
		return realIP
	}

	return Fingerprint(get(HeaderUserAgent), get(HeaderAcceptLanguage))
}

// IsIP reports whether s looks like a dotted-quad IPv4 or colon-segmented IPv6 address.
func IsIP(s string) bool {
	if s == "" {
		return false
	}
	return ipv4Pattern.MatchString(s) || ipv6Pattern.MatchString(s)
}

// Fingerprint builds a short, non-cryptographic identifier from header values.
func Fingerprint(userAgent, acceptLanguage string) string {
	sum := xxhash.Sum64String(userAgent + "\x00" + acceptLanguage)
	return fmt.Sprintf("%s%016x", fingerprintPrefix, sum)
}

// Redact returns the form of an identity that may be written to logs and events.
// Fingerprints are already hashes; anything else, usually an IP, is hashed.
func Redact(id string) string {
	if strings.HasPrefix(id, fingerprintPrefix) {
		return id
	}
	return fmt.Sprintf("%s%016x", redactedPrefix, xxhash.Sum64String(id))
}
