package geo

import (
	"context"
	"fmt"
	"net"

	"github.com/BradenHooton/authtrail/internal/models"
	"github.com/oschwald/geoip2-golang"
)

// MaxMindLocator reads GeoLite2/GeoIP2 City and, optionally, ASN databases
type MaxMindLocator struct {
	cityReader *geoip2.Reader
	asnReader  *geoip2.Reader
}

// NewMaxMindLocator opens the .mmdb files. asnDBPath may be empty.
func NewMaxMindLocator(cityDBPath, asnDBPath string) (*MaxMindLocator, error) {
	cityReader, err := geoip2.Open(cityDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open city database: %w", err)
	}

	var asnReader *geoip2.Reader
	if asnDBPath != "" {
		asnReader, err = geoip2.Open(asnDBPath)
		if err != nil {
			cityReader.Close()
			return nil, fmt.Errorf("failed to open asn database: %w", err)
		}
	}

	return &MaxMindLocator{cityReader: cityReader, asnReader: asnReader}, nil
}

// Close releases the database readers
func (l *MaxMindLocator) Close() {
	if l.cityReader != nil {
		l.cityReader.Close()
	}
	if l.asnReader != nil {
		l.asnReader.Close()
	}
}

// Lookup resolves city, coordinates and, when an ASN database is loaded, the network owner
func (l *MaxMindLocator) Lookup(ctx context.Context, ipAddress string) (models.IPInsights, error) {
	ip := net.ParseIP(ipAddress)
	if ip == nil {
		return models.IPInsights{}, fmt.Errorf("%w: %q", ErrInvalidIP, ipAddress)
	}

	record, err := l.cityReader.City(ip)
	if err != nil {
		return models.IPInsights{}, fmt.Errorf("city lookup failed: %w", err)
	}

	insights := models.IPInsights{
		CountryCode: record.Country.IsoCode,
		Country:     record.Country.Names["en"],
		City:        record.City.Names["en"],
		PostalCode:  record.Postal.Code,
		Continent:   record.Continent.Code,
		TimeZone:    record.Location.TimeZone,
		Latitude:    record.Location.Latitude,
		Longitude:   record.Location.Longitude,
	}
	if len(record.Subdivisions) > 0 {
		insights.Region = record.Subdivisions[0].Names["en"]
	}

	if l.asnReader != nil {
		asn, err := l.asnReader.ASN(ip)
		if err != nil {
			return insights, fmt.Errorf("asn lookup failed: %w", err)
		}
		insights.ASN = uint(asn.AutonomousSystemNumber)
		insights.Organization = asn.AutonomousSystemOrganization
	}

	return insights, nil
}
