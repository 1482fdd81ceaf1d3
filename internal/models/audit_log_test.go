package models

import (
	"testing"
)

func TestNewLoginAuditMetadata_Complete(t *testing.T) {
	login := &Login{
		ID:        "login-1",
		DeviceID:  "device-1",
		Type:      LoginTypeFailed,
		IPAddress: "81.2.69.142",
		IPInsights: IPInsights{
			CountryCode: "GB",
			City:        "London",
			ASN:         1234,
		},
	}
	device := &Device{
		ID:              "device-1",
		Platform:        "Windows",
		PlatformVersion: "10",
		Browser:         "Chrome",
		BrowserVersion:  "120.0",
	}

	metadata := NewLoginAuditMetadata(login, device)

	if metadata["login_id"] != "login-1" {
		t.Errorf("expected login_id login-1, got %v", metadata["login_id"])
	}
	if metadata["type"] != "failed" {
		t.Errorf("expected type failed, got %v", metadata["type"])
	}
	if metadata["device"] != "Chrome 120.0 on Windows 10" {
		t.Errorf("unexpected device label: %v", metadata["device"])
	}
	if metadata["country_code"] != "GB" {
		t.Errorf("expected country_code GB, got %v", metadata["country_code"])
	}
	if metadata["asn"] != uint(1234) {
		t.Errorf("expected asn 1234, got %v", metadata["asn"])
	}
}

func TestNewLoginAuditMetadata_OmitLocationWhenEmpty(t *testing.T) {
	login := &Login{ID: "login-2", DeviceID: "device-2", Type: LoginTypeLogin}

	metadata := NewLoginAuditMetadata(login, nil)

	if _, ok := metadata["country_code"]; ok {
		t.Errorf("expected country_code to be omitted, got %v", metadata["country_code"])
	}
	if _, ok := metadata["device"]; ok {
		t.Errorf("expected device to be omitted when nil, got %v", metadata["device"])
	}
}

func TestIPInsights_ScanRoundTrip(t *testing.T) {
	in := IPInsights{CountryCode: "US", City: "Mountain View", Latitude: 37.4}
	raw, err := in.Value()
	if err != nil {
		t.Fatalf("Value() = %v", err)
	}

	var out IPInsights
	if err := out.Scan(raw); err != nil {
		t.Fatalf("Scan() = %v", err)
	}
	if out != in {
		t.Errorf("got %+v, want %+v", out, in)
	}

	var empty IPInsights
	if err := empty.Scan(nil); err != nil || !empty.IsEmpty() {
		t.Errorf("expected empty insights from NULL, got %+v (err %v)", empty, err)
	}
}

func TestParseLoginType(t *testing.T) {
	for _, valid := range []string{"login", "failed", "lockout"} {
		if _, err := ParseLoginType(valid); err != nil {
			t.Errorf("ParseLoginType(%q) = %v", valid, err)
		}
	}
	if _, err := ParseLoginType("logout"); err == nil {
		t.Error("expected error for unknown type")
	}
}

func TestDeviceLabel_UnknownPlatformVersion(t *testing.T) {
	d := &Device{Platform: "Linux", PlatformVersion: UnknownPlatformVersion, Browser: "Firefox"}
	if got := d.Label(); got != "Firefox on Linux" {
		t.Errorf("Label() = %q", got)
	}
}
