package models

import (
	"database/sql/driver"
	"encoding/json"
)

// IPInsights is the geolocation enrichment stored alongside a Login.
// The zero value is the empty payload used when enrichment fails.
type IPInsights struct {
	CountryCode  string  `json:"country_code,omitempty"`
	Country      string  `json:"country,omitempty"`
	Region       string  `json:"region,omitempty"`
	City         string  `json:"city,omitempty"`
	PostalCode   string  `json:"postal_code,omitempty"`
	Continent    string  `json:"continent,omitempty"`
	TimeZone     string  `json:"time_zone,omitempty"`
	Latitude     float64 `json:"latitude,omitempty"`
	Longitude    float64 `json:"longitude,omitempty"`
	ASN          uint    `json:"asn,omitempty"`
	Organization string  `json:"organization,omitempty"`
}

// IsEmpty reports whether no enrichment data is present
func (i IPInsights) IsEmpty() bool {
	return i == IPInsights{}
}

// Scan implements sql.Scanner for JSONB
func (i *IPInsights) Scan(value interface{}) error {
	if value == nil {
		*i = IPInsights{}
		return nil
	}

	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return ErrBadRequest
	}

	var out IPInsights
	if err := json.Unmarshal(data, &out); err != nil {
		return err
	}
	*i = out
	return nil
}

// Value implements driver.Valuer for JSONB
func (i IPInsights) Value() (driver.Value, error) {
	return json.Marshal(i)
}
