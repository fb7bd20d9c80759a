// internal/requestinfo/requestinfo.go
//
// Per-request metadata (user-agent fingerprint, IP, geolocation).
//
// Context
// -------
// The domain gate logs every rejected hostname for anomaly detection, and
// a bare "unknown host" line is not actionable.  The Enrich middleware
// runs ahead of the gate and attaches a *RequestInfo so the gate (and any
// later stage) can report who was knocking: client IP, country, device
// class, and bot flag.  These structs are inert (no database handles, no
// large buffers), so they are safe to log or JSON-encode.
//
// Notes
// -----
// • Geolocation is best-effort: no GeoLite2 database, no Geo fields.
// • Oxford commas, two spaces after periods.
package requestinfo

import (
	"context"
	"net"
	"time"

	"github.com/oschwald/geoip2-golang"

	"github.com/yanizio/quill/internal/ua"
)

// Geo holds IP-based geolocation hints.  May be empty when the MaxMind DB
// is absent or has no match.
type Geo struct {
	IP         net.IP
	CountryISO string // "US", "CA", "FR", ...
	City       string // "Chicago", "Paris", ...
}

// RequestInfo is stored in the request context by Enrich.
type RequestInfo struct {
	UA        ua.Info
	Geo       Geo
	Timestamp time.Time
}

// geoReader is a singleton MaxMind handle, safe for concurrent reads.
// Nil when geolocation is disabled.
var geoReader *geoip2.Reader

// InitGeo opens the GeoLite2-City database at startup.  An empty path
// leaves geolocation disabled; a bad path is an error the caller decides
// how to handle (Quill logs it and continues without geo).
func InitGeo(dbPath string) error {
	if dbPath == "" {
		return nil
	}
	r, err := geoip2.Open(dbPath)
	if err != nil {
		return err
	}
	geoReader = r
	return nil
}

type ctxKey struct{} // unexported, collision-proof

// FromContext returns the pointer previously stored by Enrich, or nil if
// the middleware has not run.
func FromContext(ctx context.Context) *RequestInfo {
	v, _ := ctx.Value(ctxKey{}).(*RequestInfo)
	return v
}

// lookupGeo returns best-effort Geo data using the global reader.
func lookupGeo(ip net.IP) Geo {
	if geoReader == nil || ip == nil {
		return Geo{IP: ip}
	}
	rec, err := geoReader.City(ip)
	if err != nil {
		return Geo{IP: ip}
	}
	return Geo{
		IP:         ip,
		CountryISO: rec.Country.IsoCode,
		City:       rec.City.Names["en"],
	}
}
