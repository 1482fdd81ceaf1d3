// Package agent turns raw client request metadata into a models.AgentDescriptor.
package agent

import (
	"net/http"
	"sort"
	"strings"

	"github.com/BradenHooton/authtrail/internal/models"
	pkghttp "github.com/BradenHooton/authtrail/pkg/http"
	"github.com/mssola/useragent"
	"golang.org/x/text/language"
)

// DefaultFingerprintHeader carries the opaque session fingerprint set by the client
const DefaultFingerprintHeader = "X-Session-Fingerprint"

const unknown = "unknown"

// RequestMeta is the raw client metadata an authentication event was observed with
type RequestMeta struct {
	IPAddress          string `json:"ip_address,omitempty" validate:"omitempty,ip"`
	UserAgent          string `json:"user_agent,omitempty"`
	AcceptLanguage     string `json:"accept_language,omitempty"`
	SessionFingerprint string `json:"session_fingerprint,omitempty" validate:"omitempty,max=255"`
}

// MetaFromRequest reads client metadata from an inbound HTTP request
func MetaFromRequest(r *http.Request, ipConfig *pkghttp.IPConfig, fingerprintHeader string) RequestMeta {
	if fingerprintHeader == "" {
		fingerprintHeader = DefaultFingerprintHeader
	}
	return RequestMeta{
		IPAddress:          pkghttp.ExtractClientIP(r, ipConfig),
		UserAgent:          r.UserAgent(),
		AcceptLanguage:     r.Header.Get("Accept-Language"),
		SessionFingerprint: r.Header.Get(fingerprintHeader),
	}
}

// Merge fills empty fields of m from fallback
func (m RequestMeta) Merge(fallback RequestMeta) RequestMeta {
	if m.IPAddress == "" {
		m.IPAddress = fallback.IPAddress
	}
	if m.UserAgent == "" {
		m.UserAgent = fallback.UserAgent
	}
	if m.AcceptLanguage == "" {
		m.AcceptLanguage = fallback.AcceptLanguage
	}
	if m.SessionFingerprint == "" {
		m.SessionFingerprint = fallback.SessionFingerprint
	}
	return m
}

// Parser derives agent descriptors from user agent strings
type Parser struct{}

// NewParser creates a new Parser
func NewParser() *Parser {
	return &Parser{}
}

// Describe builds the descriptor for a request. Platform and browser fall back to
// "unknown"; an unknown platform version becomes models.UnknownPlatformVersion.
func (p *Parser) Describe(meta RequestMeta) models.AgentDescriptor {
	ua := useragent.New(meta.UserAgent)

	desc := models.AgentDescriptor{
		Platform:           unknown,
		PlatformVersion:    models.UnknownPlatformVersion,
		Browser:            unknown,
		SessionFingerprint: meta.SessionFingerprint,
		IPAddress:          meta.IPAddress,
	}

	if meta.UserAgent == "" {
		desc.Languages = parseLanguages(meta.AcceptLanguage, "")
		return desc
	}

	os := ua.OSInfo()
	if os.Name != "" {
		desc.Platform = os.Name
	} else if platform := ua.Platform(); platform != "" {
		desc.Platform = platform
	}
	if os.Version != "" {
		desc.PlatformVersion = os.Version
	}

	name, version := ua.Browser()
	if name != "" {
		desc.Browser = name
		desc.BrowserVersion = version
	}

	if !ua.Bot() {
		desc.IsMobile = ua.Mobile()
		desc.IsDesktop = !desc.IsMobile
	}

	desc.Languages = parseLanguages(meta.AcceptLanguage, ua.Localization())
	return desc
}

// parseLanguages orders Accept-Language tags by quality; the UA localization token is
// used only when the header is absent or unparseable.
func parseLanguages(acceptLanguage, localization string) []string {
	if acceptLanguage != "" {
		tags, weights, err := language.ParseAcceptLanguage(acceptLanguage)
		if err == nil && len(tags) > 0 {
			idx := make([]int, len(tags))
			for i := range idx {
				idx[i] = i
			}
			sort.SliceStable(idx, func(a, b int) bool {
				return weights[idx[a]] > weights[idx[b]]
			})

			langs := make([]string, 0, len(tags))
			for _, i := range idx {
				langs = append(langs, tags[i].String())
			}
			return langs
		}
	}

	if localization = strings.TrimSpace(localization); localization != "" {
		if tag, err := language.Parse(localization); err == nil {
			return []string{tag.String()}
		}
		return []string{localization}
	}

	return []string{}
}
