// internal/tenant/model.go
//
// `tenant` table row model.
//
// Context
// -------
// `Connection` mirrors one row in the persistent **tenant** table: the
// control-plane record that binds a set of DNS hostnames to one customer's
// isolated operational database and object-storage account.  The provider
// caches immutable snapshots of this struct; nothing in the hot path ever
// mutates one after load.
//
// Schema reference (2026-07-12)
//
//	CREATE TABLE tenant (
//	    id               INT UNSIGNED PRIMARY KEY AUTO_INCREMENT,
//	    resource_group   VARCHAR(128)  NOT NULL,
//	    db_conn          VARCHAR(512)  NOT NULL,
//	    storage_conn     VARCHAR(512)  NOT NULL,
//	    website_url      VARCHAR(512)  NOT NULL,
//	    owner_email      VARCHAR(256)  NOT NULL DEFAULT '',
//	    microsoft_app_id VARCHAR(64)   NOT NULL DEFAULT '',
//	    blob_public_url  VARCHAR(512)  NOT NULL DEFAULT '',
//	    publisher_mode   VARCHAR(16)   NOT NULL DEFAULT 'public',
//	    allow_setup      TINYINT(1)    NOT NULL DEFAULT 0,
//	    publisher_requires_auth TINYINT(1) NOT NULL DEFAULT 0,
//	    suspended_at     TIMESTAMP NULL,
//	    deleted_at       TIMESTAMP NULL,
//	    created_at       TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
//	    updated_at       TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
//	);
//
//	CREATE TABLE tenant_domain (
//	    tenant_id INT UNSIGNED NOT NULL,
//	    domain    VARCHAR(256) NOT NULL UNIQUE,
//	    position  INT NOT NULL DEFAULT 0
//	);
//
// Notes
// -----
// • The UNIQUE index on tenant_domain.domain enforces the "one tenant per
//   hostname" invariant on the administrative write path; this subsystem
//   relies on it rather than re-verifying.
// • DomainNames is stitched in from tenant_domain by the store layer, in
//   `position` order; element 0 is the tenant's primary hostname.
// • Nullable timestamps are `*time.Time`; callers must nil-check.
// • Oxford commas, two spaces after periods.
package tenant

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Publisher modes accepted by the `publisher_mode` column.  This subsystem
// validates the value and passes it through; interpretation belongs to the
// publishing pipeline downstream.
const (
	PublisherModePublic        = "public"
	PublisherModeAuthenticated = "authenticated"
	PublisherModeDisabled      = "disabled"
)

// Connection describes one tenant: its bound hostnames, its connection
// strings, and auxiliary metadata consumed downstream.
type Connection struct {
	ID                    uint64     `db:"id"`
	ResourceGroup         string     `db:"resource_group"   validate:"required"`
	DBConn                string     `db:"db_conn"          validate:"required"`
	StorageConn           string     `db:"storage_conn"     validate:"required"`
	WebsiteURL            string     `db:"website_url"      validate:"required,http_url"`
	OwnerEmail            string     `db:"owner_email"      validate:"omitempty,email"`
	MicrosoftAppID        string     `db:"microsoft_app_id"`
	BlobPublicURL         string     `db:"blob_public_url"  validate:"omitempty,http_url"`
	PublisherMode         string     `db:"publisher_mode"   validate:"required,oneof=public authenticated disabled"`
	AllowSetup            bool       `db:"allow_setup"`
	PublisherRequiresAuth bool       `db:"publisher_requires_auth"`
	SuspendedAt           *time.Time `db:"suspended_at"`
	DeletedAt             *time.Time `db:"deleted_at"`
	CreatedAt             time.Time  `db:"created_at"`
	UpdatedAt             time.Time  `db:"updated_at"`

	// DomainNames lists the hostnames routed to this tenant, primary
	// first.  May be empty for a tenant not yet bound to a hostname.
	DomainNames []string `db:"-"`
}

//
// validator instance (package-level singleton)
//

var v = validator.New()

// Validate checks the struct tags above.  Admin tooling writes these rows;
// we still validate on read so a malformed row surfaces at resolution time
// instead of deep inside a content handler.
func (c *Connection) Validate() error {
	return v.Struct(c)
}

// HasDomain reports whether host is one of the tenant's bound hostnames.
// Matching is exact per element and case-insensitive.  Substring matching
// would be a tenant-isolation bug: "evil-tenant1.com" must never satisfy a
// lookup for "tenant1.com".
func (c *Connection) HasDomain(host string) bool {
	for _, d := range c.DomainNames {
		if strings.EqualFold(strings.TrimSpace(d), host) {
			return true
		}
	}
	return false
}

// PrimaryDomain returns the tenant's first bound hostname, or "".
func (c *Connection) PrimaryDomain() string {
	if len(c.DomainNames) == 0 {
		return ""
	}
	return c.DomainNames[0]
}
