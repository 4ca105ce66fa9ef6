package identity

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func headers(kv map[string]string) HeaderFunc {
	h := http.Header{}
	for k, v := range kv {
		h.Set(k, v)
	}
	return FromHTTPHeader(h)
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{
			name:    "first forwarded ipv4",
			headers: map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.1"},
			want:    "203.0.113.7",
		},
		{
			name:    "skips junk forwarded tokens",
			headers: map[string]string{"X-Forwarded-For": "unknown, 198.51.100.4"},
			want:    "198.51.100.4",
		},
		{
			name:    "forwarded ipv6",
			headers: map[string]string{"X-Forwarded-For": "2001:db8::1"},
			want:    "2001:db8::1",
		},
		{
			name:    "real ip when forwarded is unusable",
			headers: map[string]string{"X-Forwarded-For": "garbage", "X-Real-IP": "192.0.2.10"},
			want:    "192.0.2.10",
		},
		{
			name:    "real ip alone",
			headers: map[string]string{"X-Real-IP": " 192.0.2.11 "},
			want:    "192.0.2.11",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Resolve(headers(tt.headers)))
		})
	}
}

func TestResolveFallsBackToFingerprint(t *testing.T) {
	get := headers(map[string]string{
		"X-Real-IP":       "not-an-ip",
		"User-Agent":      "Mozilla/5.0",
		"Accept-Language": "en-GB",
	})

	id := Resolve(get)
	assert.True(t, strings.HasPrefix(id, "fp:"))
	assert.Equal(t, Fingerprint("Mozilla/5.0", "en-GB"), id)
	assert.Len(t, id, len("fp:")+16)
}

func TestFingerprintIsStableAndDistinct(t *testing.T) {
	a := Fingerprint("Mozilla/5.0", "en-GB")
	assert.Equal(t, a, Fingerprint("Mozilla/5.0", "en-GB"))
	assert.NotEqual(t, a, Fingerprint("Mozilla/5.0", "de-DE"))
	// the separator keeps concatenation boundaries distinct
	assert.NotEqual(t, Fingerprint("ab", "c"), Fingerprint("a", "bc"))
}

func TestIsIP(t *testing.T) {
	assert.True(t, IsIP("127.0.0.1"))
	assert.True(t, IsIP("::1"))
	assert.True(t, IsIP("fe80::1ff:fe23:4567:890a"))
	assert.False(t, IsIP(""))
	assert.False(t, IsIP("localhost"))
	assert.False(t, IsIP("1.2.3"))
	assert.False(t, IsIP("1.2.3.4; DROP"))
}

func TestRedact(t *testing.T) {
	tests := []struct {
		name string
		id   string
	}{
		{"ipv4", "203.0.113.7"},
		{"ipv6", "2001:db8::1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Redact(tt.id)
			assert.True(t, strings.HasPrefix(got, "id:"))
			assert.NotContains(t, got, tt.id)
			assert.Equal(t, got, Redact(tt.id))
		})
	}

	fp := Fingerprint("Mozilla/5.0", "en-GB")
	assert.Equal(t, fp, Redact(fp))
	assert.NotEqual(t, Redact("203.0.113.7"), Redact("203.0.113.8"))
}
