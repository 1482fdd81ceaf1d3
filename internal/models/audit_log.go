package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// Event types for audit logging
const (
	AuditEventTypeLogin         = "login"
	AuditEventTypeAuthFailed    = "auth_failed"
	AuditEventTypeAuthLockout   = "auth_lockout"
	AuditEventTypeDeviceCreated = "device_created"
	AuditEventTypeDeviceTrust   = "device_trust"
)

// Resource types
const (
	AuditResourceTypeDevice = "device"
	AuditResourceTypeLogin  = "login"
)

// Actions
const (
	AuditActionCreate = "create"
	AuditActionUpdate = "update"
	AuditActionAccess = "access"
)

type AuditLog struct {
	ID            string        `db:"id"`
	EventType     string        `db:"event_type"`
	ActorID       *string       `db:"actor_id"`
	ResourceType  *string       `db:"resource_type"`
	ResourceID    *string       `db:"resource_id"`
	Action        string        `db:"action"`
	Success       bool          `db:"success"`
	FailureReason *string       `db:"failure_reason"`
	IPAddress     *string       `db:"ip_address"`
	Metadata      AuditMetadata `db:"metadata"`
	CreatedAt     time.Time     `db:"created_at"`
}

// AuditMetadata holds additional context for audit events
type AuditMetadata map[string]interface{}

// NewLoginAuditMetadata builds metadata describing the device and location of a login.
// Location keys are omitted when enrichment produced nothing.
func NewLoginAuditMetadata(login *Login, device *Device) AuditMetadata {
	metadata := AuditMetadata{
		"login_id":  login.ID,
		"device_id": login.DeviceID,
		"type":      string(login.Type),
	}

	if device != nil {
		metadata["device"] = device.Label()
		metadata["device_trusted"] = device.IsTrusted
	}

	if !login.IPInsights.IsEmpty() {
		if login.IPInsights.CountryCode != "" {
			metadata["country_code"] = login.IPInsights.CountryCode
		}
		if login.IPInsights.City != "" {
			metadata["city"] = login.IPInsights.City
		}
		if login.IPInsights.ASN != 0 {
			metadata["asn"] = login.IPInsights.ASN
		}
	}

	return metadata
}

// Scan implements sql.Scanner for JSONB
func (am *AuditMetadata) Scan(value interface{}) error {
	if value == nil {
		*am = make(AuditMetadata)
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return ErrBadRequest
	}

	var m map[string]interface{}
	if err := json.Unmarshal(bytes, &m); err != nil {
		return err
	}
	*am = AuditMetadata(m)
	return nil
}

// Value implements driver.Valuer for JSONB
func (am AuditMetadata) Value() (driver.Value, error) {
	if am == nil {
		return nil, nil
	}
	return json.Marshal(am)
}
