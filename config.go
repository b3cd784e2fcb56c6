package goSession

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Config holds every tunable of a [Session]. Start from [DefaultConfig].
type Config struct {
	Remote       RemoteConfig
	Tokens       TokenConfig
	SecondFactor SecondFactorConfig
	Roles        RoleConfig
	Persistence  PersistenceConfig
	Audit        AuditConfig
	Metrics      MetricsConfig
}

/*
====================================
REMOTE CONFIG
====================================
*/

// RemoteConfig describes how the backend is reached.
type RemoteConfig struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
	Paths     PathsConfig
}

// PathsConfig holds endpoint paths relative to BaseURL. Roles must contain
// the {id} placeholder.
type PathsConfig struct {
	Login              string
	VerifySecondFactor string
	Refresh            string
	Me                 string
	Roles              string
}

/*
====================================
TOKEN CONFIG
====================================
*/

// TokenConfig controls access token lifetime accounting.
type TokenConfig struct {
	// AccessTokenLifetime is added to the issuance time to compute expiry.
	AccessTokenLifetime time.Duration
	// RefreshBuffer is how long before expiry a refresh is triggered.
	RefreshBuffer time.Duration
	// HonorServerExpiry clamps the computed expiry to an earlier exp claim.
	HonorServerExpiry bool
}

// SecondFactorConfig controls code normalization.
type SecondFactorConfig struct {
	TOTPDigits          int
	BackupCodeMaxLength int
}

// RoleConfig names administrative roles and the re-fetch policy.
type RoleConfig struct {
	AdminRoles     []string
	SuperAdminRole string
	// RefetchOnRefresh re-loads the principal after every refresh.
	RefetchOnRefresh bool
}

// PersistenceConfig controls whether the token pair survives restarts.
type PersistenceConfig struct {
	Enabled  bool
	RedisKey string
	RedisTTL time.Duration
}

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls in-process counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULTS
====================================
*/

// DefaultConfig returns the production defaults: 30 minute access tokens,
// refresh 5 minutes before expiry, 6 digit TOTP codes and backup codes of at
// most 20 characters.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Remote: RemoteConfig{
			Timeout:   15 * time.Second,
			UserAgent: "goSession/1",
			Paths: PathsConfig{
				Login:              "/auth/login",
				VerifySecondFactor: "/auth/2fa/verify",
				Refresh:            "/auth/refresh",
				Me:                 "/auth/me",
				Roles:              "/users/{id}/roles",
			},
		},
		Tokens: TokenConfig{
			AccessTokenLifetime: 30 * time.Minute,
			RefreshBuffer:       5 * time.Minute,
		},
		SecondFactor: SecondFactorConfig{
			TOTPDigits:          6,
			BackupCodeMaxLength: 20,
		},
		Roles: RoleConfig{
			AdminRoles:       []string{"admin", "super_admin"},
			SuperAdminRole:   "super_admin",
			RefetchOnRefresh: true,
		},
		Persistence: PersistenceConfig{
			RedisKey: "gs:session",
		},
		Audit: AuditConfig{
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Roles.AdminRoles = append([]string(nil), cfg.Roles.AdminRoles...)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	// Remote
	if c.Remote.BaseURL != "" {
		u, err := url.Parse(c.Remote.BaseURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return errors.New("Remote BaseURL must be an absolute http(s) URL")
		}
	}
	if c.Remote.Timeout <= 0 {
		return errors.New("Remote Timeout must be > 0")
	}
	for _, p := range []struct{ name, value string }{
		{"Login", c.Remote.Paths.Login},
		{"VerifySecondFactor", c.Remote.Paths.VerifySecondFactor},
		{"Refresh", c.Remote.Paths.Refresh},
		{"Me", c.Remote.Paths.Me},
		{"Roles", c.Remote.Paths.Roles},
	} {
		if strings.TrimSpace(p.value) == "" {
			return fmt.Errorf("Remote Paths.%s must not be empty", p.name)
		}
	}
	if !strings.Contains(c.Remote.Paths.Roles, "{id}") {
		return errors.New("Remote Paths.Roles must contain {id}")
	}

	// Tokens
	if c.Tokens.AccessTokenLifetime <= 0 {
		return errors.New("Tokens AccessTokenLifetime must be > 0")
	}
	if c.Tokens.RefreshBuffer < 0 {
		return errors.New("Tokens RefreshBuffer must be >= 0")
	}
	if c.Tokens.RefreshBuffer >= c.Tokens.AccessTokenLifetime {
		return errors.New("Tokens RefreshBuffer must be shorter than AccessTokenLifetime")
	}

	// Second factor
	if c.SecondFactor.TOTPDigits < 6 || c.SecondFactor.TOTPDigits > 8 {
		return errors.New("SecondFactor TOTPDigits must be between 6 and 8")
	}
	if c.SecondFactor.BackupCodeMaxLength <= 0 || c.SecondFactor.BackupCodeMaxLength > 128 {
		return errors.New("SecondFactor BackupCodeMaxLength must be between 1 and 128")
	}

	// Roles
	for _, r := range c.Roles.AdminRoles {
		if strings.TrimSpace(r) == "" {
			return errors.New("Roles AdminRoles must not contain blank codes")
		}
	}
	if c.Roles.SuperAdminRole != strings.TrimSpace(c.Roles.SuperAdminRole) {
		return errors.New("Roles SuperAdminRole must not have surrounding whitespace")
	}

	// Persistence
	if c.Persistence.RedisTTL < 0 {
		return errors.New("Persistence RedisTTL must be >= 0")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when Audit is enabled")
	}

	return nil
}
