package models

// UnknownPlatformVersion is the sentinel stored when no platform version could be derived
const UnknownPlatformVersion = "0"

// AgentDescriptor is derived per request from client metadata and never persisted as-is
type AgentDescriptor struct {
	Platform           string
	PlatformVersion    string
	Browser            string
	BrowserVersion     string
	IsDesktop          bool
	IsMobile           bool
	Languages          []string
	SessionFingerprint string
	IPAddress          string
}

// PreferredLanguage returns the first language or nil when none was sent
func (a AgentDescriptor) PreferredLanguage() *string {
	if len(a.Languages) == 0 || a.Languages[0] == "" {
		return nil
	}
	lang := a.Languages[0]
	return &lang
}
