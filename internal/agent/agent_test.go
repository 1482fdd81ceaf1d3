package agent

import (
	"net/http/httptest"
	"testing"

	"github.com/BradenHooton/authtrail/internal/models"
	pkghttp "github.com/BradenHooton/authtrail/pkg/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	chromeWindowsUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	firefoxLinuxUA  = "Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0"
	safariIPhoneUA  = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1"
)

func TestDescribe_DesktopChrome(t *testing.T) {
	p := NewParser()

	desc := p.Describe(RequestMeta{
		IPAddress:          "203.0.113.7",
		UserAgent:          chromeWindowsUA,
		AcceptLanguage:     "fr;q=0.8,en-US,en;q=0.9",
		SessionFingerprint: "sess-abc",
	})

	assert.Equal(t, "Windows", desc.Platform)
	assert.Equal(t, "10", desc.PlatformVersion)
	assert.Equal(t, "Chrome", desc.Browser)
	assert.Equal(t, "120.0.0.0", desc.BrowserVersion)
	assert.True(t, desc.IsDesktop)
	assert.False(t, desc.IsMobile)
	assert.Equal(t, []string{"en-US", "en", "fr"}, desc.Languages)
	assert.Equal(t, "sess-abc", desc.SessionFingerprint)
	assert.Equal(t, "203.0.113.7", desc.IPAddress)
}

func TestDescribe_MissingPlatformVersionUsesSentinel(t *testing.T) {
	desc := NewParser().Describe(RequestMeta{UserAgent: firefoxLinuxUA})

	assert.Equal(t, "Linux", desc.Platform)
	assert.Equal(t, models.UnknownPlatformVersion, desc.PlatformVersion)
	assert.Equal(t, "Firefox", desc.Browser)
}

func TestDescribe_Mobile(t *testing.T) {
	desc := NewParser().Describe(RequestMeta{UserAgent: safariIPhoneUA})

	assert.True(t, desc.IsMobile)
	assert.False(t, desc.IsDesktop)
}

func TestDescribe_EmptyUserAgent(t *testing.T) {
	desc := NewParser().Describe(RequestMeta{AcceptLanguage: "de-DE"})

	assert.Equal(t, "unknown", desc.Platform)
	assert.Equal(t, models.UnknownPlatformVersion, desc.PlatformVersion)
	assert.Equal(t, "unknown", desc.Browser)
	assert.Empty(t, desc.BrowserVersion)
	assert.False(t, desc.IsDesktop)
	assert.False(t, desc.IsMobile)
	assert.Equal(t, []string{"de-DE"}, desc.Languages)
	assert.Nil(t, models.AgentDescriptor{}.PreferredLanguage())
}

func TestParseLanguages_InvalidHeaderFallsBackToLocalization(t *testing.T) {
	assert.Equal(t, []string{"es"}, parseLanguages("", "es"))
	assert.Empty(t, parseLanguages("", ""))
}

func TestMetaFromRequest(t *testing.T) {
	req := httptest.NewRequest("POST", "/events/login", nil)
	req.RemoteAddr = "10.0.0.5:4321"
	req.Header.Set("User-Agent", chromeWindowsUA)
	req.Header.Set("Accept-Language", "en-GB")
	req.Header.Set("X-Forwarded-For", "198.51.100.20")
	req.Header.Set("X-Device", "fp-1")

	meta := MetaFromRequest(req, &pkghttp.IPConfig{TrustedProxies: []string{"10.0.0.0/8"}}, "X-Device")

	assert.Equal(t, "198.51.100.20", meta.IPAddress)
	assert.Equal(t, chromeWindowsUA, meta.UserAgent)
	assert.Equal(t, "en-GB", meta.AcceptLanguage)
	assert.Equal(t, "fp-1", meta.SessionFingerprint)
}

func TestRequestMetaMerge(t *testing.T) {
	body := RequestMeta{IPAddress: "192.0.2.1"}
	fallback := RequestMeta{IPAddress: "10.0.0.1", UserAgent: "curl/8.0", SessionFingerprint: "fp"}

	merged := body.Merge(fallback)

	require.Equal(t, "192.0.2.1", merged.IPAddress)
	assert.Equal(t, "curl/8.0", merged.UserAgent)
	assert.Equal(t, "fp", merged.SessionFingerprint)
}
