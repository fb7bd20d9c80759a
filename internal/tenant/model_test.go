// internal/tenant/model_test.go
//
// Unit-tests for the Connection record helpers.
//
// Run: go test ./internal/tenant -v

package tenant

import (
	"testing"
	"time"
)

func validConnection() *Connection {
	return &Connection{
		ID:            1,
		ResourceGroup: "rg-acme",
		DBConn:        "db-acme",
		StorageConn:   "store-acme",
		WebsiteURL:    "https://acme.com",
		PublisherMode: PublisherModePublic,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
		DomainNames:   []string{"acme.com", "www.acme.com"},
	}
}

func TestConnectionValidate(t *testing.T) {
	if err := validConnection().Validate(); err != nil {
		t.Fatalf("valid record rejected: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Connection)
	}{
		{"missing db_conn", func(c *Connection) { c.DBConn = "" }},
		{"missing storage_conn", func(c *Connection) { c.StorageConn = "" }},
		{"missing resource_group", func(c *Connection) { c.ResourceGroup = "" }},
		{"missing website_url", func(c *Connection) { c.WebsiteURL = "" }},
		{"non-http website_url", func(c *Connection) { c.WebsiteURL = "ftp://acme.com" }},
		{"bad owner_email", func(c *Connection) { c.OwnerEmail = "not-an-email" }},
		{"unknown publisher_mode", func(c *Connection) { c.PublisherMode = "firehose" }},
	}
	for _, tc := range cases {
		c := validConnection()
		tc.mutate(c)
		if err := c.Validate(); err == nil {
			t.Errorf("%s: expected validation error, got nil", tc.name)
		}
	}

	// Optional fields may be absent.
	c := validConnection()
	c.OwnerEmail = ""
	c.MicrosoftAppID = ""
	c.BlobPublicURL = ""
	if err := c.Validate(); err != nil {
		t.Errorf("optional fields empty: unexpected error %v", err)
	}
}

func TestHasDomain_ExactElementMatch(t *testing.T) {
	c := &Connection{DomainNames: []string{"tenant1.com", "www.tenant1.com"}}

	if !c.HasDomain("tenant1.com") {
		t.Error("exact match failed")
	}
	if !c.HasDomain("www.tenant1.com") {
		t.Error("second element match failed")
	}

	// Substring relationships in either direction must not match.
	if c.HasDomain("evil-tenant1.com") {
		t.Error("suffix substring matched: tenant-isolation bug")
	}
	if c.HasDomain("tenant1.com.evil.io") {
		t.Error("prefix substring matched: tenant-isolation bug")
	}
	if c.HasDomain("tenant1") {
		t.Error("partial element matched")
	}
}

func TestHasDomain_CaseInsensitive(t *testing.T) {
	c := &Connection{DomainNames: []string{"Acme.COM"}}
	if !c.HasDomain("acme.com") {
		t.Error("case-insensitive match failed")
	}
}

func TestPrimaryDomain(t *testing.T) {
	if got := (&Connection{}).PrimaryDomain(); got != "" {
		t.Errorf("empty record: got %q", got)
	}
	c := &Connection{DomainNames: []string{"acme.com", "www.acme.com"}}
	if got := c.PrimaryDomain(); got != "acme.com" {
		t.Errorf("got %q, want acme.com", got)
	}
}
