package config

import (
	"strings"
	"testing"
)

func TestPostgresConnectionString(t *testing.T) {
	c := &Config{
		PostgresHost:     "db.example.com",
		PostgresPort:     5433,
		PostgresUser:     "app",
		PostgresPassword: "p@ss word's",
		PostgresDBName:   "chatdocs",
		PostgresSSLMode:  "require",
	}

	dsn := c.PostgresConnectionString()

	if !strings.Contains(dsn, "host=db.example.com") {
		t.Errorf("missing host in %q", dsn)
	}
	if !strings.Contains(dsn, "port=5433") {
		t.Errorf("missing port in %q", dsn)
	}
	// Password with spaces and quotes must be quoted and escaped.
	if !strings.Contains(dsn, `password='p@ss word\'s'`) {
		t.Errorf("password not quoted correctly in %q", dsn)
	}
}

func TestPostgresURL(t *testing.T) {
	c := &Config{
		PostgresHost:     "localhost",
		PostgresPort:     5432,
		PostgresUser:     "user",
		PostgresPassword: "pass/with:chars",
		PostgresDBName:   "db",
		PostgresSSLMode:  "disable",
	}

	u := c.PostgresURL()

	if !strings.HasPrefix(u, "postgres://") {
		t.Errorf("URL %q missing postgres scheme", u)
	}
	if !strings.Contains(u, "sslmode=disable") {
		t.Errorf("URL %q missing sslmode", u)
	}
	// Special characters in the password must be percent-encoded.
	if strings.Contains(u, "pass/with:chars") {
		t.Errorf("password not encoded in %q", u)
	}
}

func TestParseDatabaseURL(t *testing.T) {
	t.Run("overrides fields", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "postgres://u:p@db.host:6543/mydb?sslmode=require")

		c := validConfig()
		if err := c.parseDatabaseURL(); err != nil {
			t.Fatalf("parseDatabaseURL: %v", err)
		}

		if c.PostgresHost != "db.host" {
			t.Errorf("host = %q, want db.host", c.PostgresHost)
		}
		if c.PostgresPort != 6543 {
			t.Errorf("port = %d, want 6543", c.PostgresPort)
		}
		if c.PostgresUser != "u" || c.PostgresPassword != "p" {
			t.Errorf("credentials = %q/%q, want u/p", c.PostgresUser, c.PostgresPassword)
		}
		if c.PostgresDBName != "mydb" {
			t.Errorf("dbname = %q, want mydb", c.PostgresDBName)
		}
		if c.PostgresSSLMode != "require" {
			t.Errorf("sslmode = %q, want require", c.PostgresSSLMode)
		}
	})

	t.Run("unset is a no-op", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "")

		c := validConfig()
		beforeHost, beforePort := c.PostgresHost, c.PostgresPort
		if err := c.parseDatabaseURL(); err != nil {
			t.Fatalf("parseDatabaseURL: %v", err)
		}
		if c.PostgresHost != beforeHost || c.PostgresPort != beforePort {
			t.Error("config changed without DATABASE_URL set")
		}
	})

	t.Run("rejects bad scheme", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "mysql://u:p@host/db")

		c := validConfig()
		if err := c.parseDatabaseURL(); err == nil {
			t.Error("expected error for mysql scheme")
		}
	})
}
