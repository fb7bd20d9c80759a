// internal/tenant/store.go
//
// Control-plane query helpers.
//
// Context
// -------
// These functions provide read-only access to the **tenant** and
// **tenant_domain** tables:
//
//   - `ByDomain`       — provider cache miss, and the edge gate's direct
//     validation path.
//   - `AllActive`      — the bulk preload sweep.
//   - `PrimaryDomains` — tooling and enumeration, one hostname per tenant.
//
// All helpers exclude suspended or deleted tenants at SQL level to keep
// callers simple, and all take a context so lookups respect request
// deadlines and cancellation.
//
// Notes
// -----
//   - Hostname membership is matched with `WHERE d.domain = ?` against a
//     dedicated row per hostname: exact element matching, never substring
//     matching over a concatenated list.
//   - Column list matches the fields in `Connection`; update both together.
//   - Errors are returned verbatim so the caller can wrap or log them.
//   - Oxford commas, two spaces after periods.
package tenant

import (
	"context"

	"github.com/jmoiron/sqlx"
)

const connColumns = `
               t.id, t.resource_group, t.db_conn, t.storage_conn,
               t.website_url, t.owner_email, t.microsoft_app_id,
               t.blob_public_url, t.publisher_mode, t.allow_setup,
               t.publisher_requires_auth, t.suspended_at, t.deleted_at,
               t.created_at, t.updated_at`

// ByDomain fetches the unique active tenant bound to host.  The caller is
// expected to have normalised host already.  A hostname bound to no tenant
// surfaces as sql.ErrNoRows.
func ByDomain(ctx context.Context, db *sqlx.DB, host string) (*Connection, error) {
	const q = `
        SELECT` + connColumns + `
        FROM   tenant t
        JOIN   tenant_domain d ON d.tenant_id = t.id
        WHERE  d.domain = ?
          AND  t.suspended_at IS NULL
          AND  t.deleted_at   IS NULL
        LIMIT  1`

	var rec Connection
	if err := db.GetContext(ctx, &rec, q, host); err != nil {
		return nil, err
	}
	if err := attachDomains(ctx, db, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// AllActive returns every tenant that is neither suspended nor deleted,
// with DomainNames populated.  Used by the preload sweep, not the HTTP
// hot path.
func AllActive(ctx context.Context, db *sqlx.DB) ([]*Connection, error) {
	const q = `
        SELECT` + connColumns + `
        FROM   tenant t
        WHERE  t.suspended_at IS NULL
          AND  t.deleted_at   IS NULL`

	var recs []*Connection
	if err := db.SelectContext(ctx, &recs, q); err != nil {
		return nil, err
	}

	const qd = `
        SELECT tenant_id, domain
        FROM   tenant_domain
        ORDER  BY tenant_id, position`

	var rows []struct {
		TenantID uint64 `db:"tenant_id"`
		Domain   string `db:"domain"`
	}
	if err := db.SelectContext(ctx, &rows, qd); err != nil {
		return nil, err
	}

	byID := make(map[uint64]*Connection, len(recs))
	for _, r := range recs {
		byID[r.ID] = r
	}
	for _, row := range rows {
		if rec, ok := byID[row.TenantID]; ok {
			rec.DomainNames = append(rec.DomainNames, row.Domain)
		}
	}
	return recs, nil
}

// PrimaryDomains returns the primary (position 0) hostname of every active
// tenant.  Enumeration path only; no caching.
func PrimaryDomains(ctx context.Context, db *sqlx.DB) ([]string, error) {
	const q = `
        SELECT d.domain
        FROM   tenant_domain d
        JOIN   tenant t ON t.id = d.tenant_id
        WHERE  d.position = 0
          AND  t.suspended_at IS NULL
          AND  t.deleted_at   IS NULL
        ORDER  BY d.domain`

	var out []string
	if err := db.SelectContext(ctx, &out, q); err != nil {
		return nil, err
	}
	return out, nil
}

// attachDomains fills rec.DomainNames in position order.
func attachDomains(ctx context.Context, db *sqlx.DB, rec *Connection) error {
	const q = `
        SELECT domain
        FROM   tenant_domain
        WHERE  tenant_id = ?
        ORDER  BY position`
	return db.SelectContext(ctx, &rec.DomainNames, q, rec.ID)
}
