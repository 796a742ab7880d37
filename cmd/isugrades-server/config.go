package main

import (
	"isugrades-backend/internal/components/telemetry"
	"isugrades-backend/pkg/sqliteutil"
)

type PortalConfig struct {
	BaseUrl          string `json:"base_url" yaml:"base_url"`
	TimeoutSeconds   int    `json:"timeout_seconds" yaml:"timeout_seconds"`
	CloudflareBypass bool   `json:"cloudflare_bypass" yaml:"cloudflare_bypass"`
}

type Config struct {
	Port     int               `json:"port" yaml:"port"`
	Portal   PortalConfig      `json:"portal" yaml:"portal"`
	Database sqliteutil.Config `json:"database" yaml:"database"`

	// SessionTtlMinutes is how long an idle browser session stays logged in.
	SessionTtlMinutes int `json:"session_ttl_minutes" yaml:"session_ttl_minutes"`

	// StatsCron is the schedule the gradebook count is reported on.
	StatsCron string `json:"stats_cron" yaml:"stats_cron"`

	Telemetry telemetry.Config `json:"telemetry" yaml:"telemetry"`
}

func (c *Config) setDefaults() {
	if c.Port == 0 {
		c.Port = 5000
	}
	if c.Database.File == "" && c.Database.Url == "" {
		c.Database.File = "<dev_state>/isugrades.db"
	}
	if c.StatsCron == "" {
		c.StatsCron = "@every 10m"
	}
}
