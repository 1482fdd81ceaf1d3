package models

import "time"

// Device is a client a user has authenticated from. Matching never mutates it; only
// the explicit trust operations change IsTrusted/IsUntrusted/VerifiedAt.
type Device struct {
	ID              string     `json:"id"`
	UserID          string     `json:"user_id"`
	Platform        string     `json:"platform"`
	PlatformVersion string     `json:"platform_version"`
	Browser         string     `json:"browser"`
	BrowserVersion  string     `json:"browser_version"`
	IsDesktop       bool       `json:"is_desktop"`
	IsMobile        bool       `json:"is_mobile"`
	Language        *string    `json:"language,omitempty"`
	Fingerprint     string     `json:"-"`
	IPAddress       string     `json:"ip_address"`
	PinHash         string     `json:"-"`
	PinAttempts     int        `json:"-"`
	IsTrusted       bool       `json:"is_trusted"`
	IsUntrusted     bool       `json:"is_untrusted"`
	VerifiedAt      *time.Time `json:"verified_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// PinConsumed reports whether the verification pin has already been used
func (d *Device) PinConsumed() bool {
	return d.PinHash == ""
}

// Label returns a short human description such as "Chrome 120.0 on Windows 10".
func (d *Device) Label() string {
	browser := d.Browser
	if d.BrowserVersion != "" {
		browser += " " + d.BrowserVersion
	}
	platform := d.Platform
	if d.PlatformVersion != "" && d.PlatformVersion != UnknownPlatformVersion {
		platform += " " + d.PlatformVersion
	}
	return browser + " on " + platform
}
