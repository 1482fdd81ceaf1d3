package services

import (
	"fmt"
	"strconv"

	"github.com/BradenHooton/authtrail/internal/models"
)

// Matchable device attributes
const (
	AttrPlatform        = "platform"
	AttrPlatformVersion = "platform_version"
	AttrBrowser         = "browser"
	AttrBrowserVersion  = "browser_version"
	AttrFingerprint     = "fingerprint"
	AttrIP              = "ip"
	AttrIsDesktop       = "is_desktop"
	AttrIsMobile        = "is_mobile"
	AttrLanguage        = "language"
)

// DefaultMatchAttributes identifies a device by its software stack and session fingerprint
var DefaultMatchAttributes = []string{AttrPlatform, AttrPlatformVersion, AttrBrowser, AttrBrowserVersion, AttrFingerprint}

// DeviceMatcher decides whether a stored device is the same client as a descriptor.
// The configured attributes are compared conjunctively. An empty attribute set
// matches every device.
type DeviceMatcher struct {
	attrs []string
}

// NewDeviceMatcher validates attribute names up front so a typo in configuration fails
// at startup instead of silently never matching.
func NewDeviceMatcher(attrs []string) (*DeviceMatcher, error) {
	for _, a := range attrs {
		if _, _, ok := attributeValues(&models.Device{}, models.AgentDescriptor{}, a); !ok {
			return nil, fmt.Errorf("%w: device attribute %q", models.ErrUnsupportedKey, a)
		}
	}
	copied := make([]string, len(attrs))
	copy(copied, attrs)
	return &DeviceMatcher{attrs: copied}, nil
}

// Attributes returns the configured attribute names
func (m *DeviceMatcher) Attributes() []string {
	out := make([]string, len(m.attrs))
	copy(out, m.attrs)
	return out
}

func (m *DeviceMatcher) Matches(device *models.Device, desc models.AgentDescriptor) bool {
	return Matches(device, desc, m.attrs)
}

// Matches reports whether every attribute in attrs is equal on device and desc.
// Unknown attribute names count as unequal.
func Matches(device *models.Device, desc models.AgentDescriptor, attrs []string) bool {
	if device == nil {
		return false
	}
	for _, a := range attrs {
		stored, current, ok := attributeValues(device, desc, a)
		if !ok || stored != current {
			return false
		}
	}
	return true
}

func attributeValues(d *models.Device, desc models.AgentDescriptor, attr string) (string, string, bool) {
	switch attr {
	case AttrPlatform:
		return d.Platform, desc.Platform, true
	case AttrPlatformVersion:
		return normalizeVersion(d.PlatformVersion), normalizeVersion(desc.PlatformVersion), true
	case AttrBrowser:
		return d.Browser, desc.Browser, true
	case AttrBrowserVersion:
		return d.BrowserVersion, desc.BrowserVersion, true
	case AttrFingerprint:
		return d.Fingerprint, desc.SessionFingerprint, true
	case AttrIP:
		return d.IPAddress, desc.IPAddress, true
	case AttrIsDesktop:
		return strconv.FormatBool(d.IsDesktop), strconv.FormatBool(desc.IsDesktop), true
	case AttrIsMobile:
		return strconv.FormatBool(d.IsMobile), strconv.FormatBool(desc.IsMobile), true
	case AttrLanguage:
		return derefString(d.Language), derefString(desc.PreferredLanguage()), true
	}
	return "", "", false
}

func normalizeVersion(v string) string {
	if v == "" {
		return models.UnknownPlatformVersion
	}
	return v
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
