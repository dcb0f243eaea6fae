// Package models defines the monitored-record domain types shared across
// the manager, audit writer, and API layers.
package models

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// URLStatus describes the last known state of a record's source URL.
type URLStatus string

const (
	URLStatusActive  URLStatus = "active"
	URLStatusDead    URLStatus = "dead"
	URLStatusUnknown URLStatus = "unknown"
)

// Platform identifies the marketplace a record is observed on.
type Platform string

const (
	PlatformYahoo   Platform = "yahoo"
	PlatformMercari Platform = "mercari"
	PlatformRakuten Platform = "rakuten"
)

// Platforms lists every supported platform.
var Platforms = []Platform{PlatformYahoo, PlatformMercari, PlatformRakuten}

// Valid reports whether p is a supported platform.
func (p Platform) Valid() bool {
	for _, known := range Platforms {
		if p == known {
			return true
		}
	}
	return false
}

// MonitoredRecord represents one external item under observation.
// Exactly one live record exists per (ExternalProductID, Platform) pair.
type MonitoredRecord struct {
	ID                int64           `json:"id" db:"id"`
	ExternalProductID int64           `json:"external_product_id" db:"external_product_id"`
	Platform          Platform        `json:"platform" db:"platform"`
	SourceURL         string          `json:"source_url" db:"source_url"`
	SourceProductID   *string         `json:"source_product_id,omitempty" db:"source_product_id"`
	CurrentStock      int             `json:"current_stock" db:"current_stock"`
	CurrentPrice      decimal.Decimal `json:"current_price" db:"current_price"`
	URLStatus         URLStatus       `json:"url_status" db:"url_status"`
	MonitoringEnabled bool            `json:"monitoring_enabled" db:"monitoring_enabled"`
	TitleHash         *string         `json:"title_hash,omitempty" db:"title_hash"`
	LastVerifiedAt    *time.Time      `json:"last_verified_at,omitempty" db:"last_verified_at"`
	CreatedAt         time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at" db:"updated_at"`
}

// ListedRecord is a MonitoredRecord joined with catalog display fields.
// The catalog columns are read-only here; this service never writes them.
type ListedRecord struct {
	MonitoredRecord
	Title    *string `json:"title,omitempty" db:"title"`
	ImageURL *string `json:"image_url,omitempty" db:"image_url"`
}

// ErrMalformedURL is returned by ValidateSourceURL for URLs that are not
// well-formed absolute http(s) URLs.
var ErrMalformedURL = errors.New("source url must be an absolute http or https URL")

// ValidateSourceURL checks that raw parses as an absolute http(s) URL with a host.
func ValidateSourceURL(raw string) (*url.URL, error) {
	parsed, err := url.Parse(raw)
	if err != nil {
		return nil, ErrMalformedURL
	}
	if (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return nil, ErrMalformedURL
	}
	return parsed, nil
}

// DeriveTitleHash derives a verification hash from a source URL at
// registration time. The hash is only derivable when the URL path carries
// an item identifier; bare host URLs yield no hash.
func DeriveTitleHash(parsed *url.URL) (string, bool) {
	path := strings.Trim(parsed.Path, "/")
	if path == "" {
		return "", false
	}
	sum := sha256.Sum256([]byte(parsed.Host + "/" + path))
	return hex.EncodeToString(sum[:]), true
}
