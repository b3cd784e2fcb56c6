// Package config loads the sessionctl YAML file and maps it onto a
// goSession.Config.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	goSession "github.com/MrEthical07/goSession"
	"gopkg.in/yaml.v3"
)

// File is the on-disk configuration. Zero values keep library defaults.
type File struct {
	BaseURL     string        `yaml:"base_url"`
	Timeout     time.Duration `yaml:"timeout"`
	SessionFile string        `yaml:"session_file"`
	RedisAddr   string        `yaml:"redis_addr"`
	RedisKey    string        `yaml:"redis_key"`
	LogLevel    string        `yaml:"log_level"`
	Paths       PathsFile     `yaml:"paths"`
	Tokens      TokensFile    `yaml:"tokens"`
	Roles       RolesFile     `yaml:"roles"`
}

// PathsFile overrides endpoint paths.
type PathsFile struct {
	Login              string `yaml:"login"`
	VerifySecondFactor string `yaml:"verify_second_factor"`
	Refresh            string `yaml:"refresh"`
	Me                 string `yaml:"me"`
	Roles              string `yaml:"roles"`
}

// TokensFile overrides token accounting.
type TokensFile struct {
	AccessTokenLifetime time.Duration `yaml:"access_token_lifetime"`
	RefreshBuffer       time.Duration `yaml:"refresh_buffer"`
	HonorServerExpiry   bool          `yaml:"honor_server_expiry"`
}

// RolesFile overrides administrative role codes.
type RolesFile struct {
	AdminRoles     []string `yaml:"admin_roles"`
	SuperAdminRole string   `yaml:"super_admin_role"`
}

// DefaultPath returns ~/.gosession/sessionctl.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(home, ".gosession", "sessionctl.yaml"), nil
}

// Load reads path. A missing file yields an empty File when optional is set.
func Load(path string, optional bool) (File, error) {
	var f File
	data, err := os.ReadFile(path)
	if err != nil {
		if optional && errors.Is(err, os.ErrNotExist) {
			return f, nil
		}
		return f, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &f); err != nil {
		return f, fmt.Errorf("failed to parse config file: %w", err)
	}
	return f, nil
}

// Session maps f onto the library defaults and validates the result.
func (f File) Session() (goSession.Config, error) {
	cfg := goSession.DefaultConfig()
	cfg.Remote.BaseURL = strings.TrimSpace(f.BaseURL)
	if f.Timeout > 0 {
		cfg.Remote.Timeout = f.Timeout
	}

	setIf(&cfg.Remote.Paths.Login, f.Paths.Login)
	setIf(&cfg.Remote.Paths.VerifySecondFactor, f.Paths.VerifySecondFactor)
	setIf(&cfg.Remote.Paths.Refresh, f.Paths.Refresh)
	setIf(&cfg.Remote.Paths.Me, f.Paths.Me)
	setIf(&cfg.Remote.Paths.Roles, f.Paths.Roles)

	if f.Tokens.AccessTokenLifetime > 0 {
		cfg.Tokens.AccessTokenLifetime = f.Tokens.AccessTokenLifetime
	}
	if f.Tokens.RefreshBuffer > 0 {
		cfg.Tokens.RefreshBuffer = f.Tokens.RefreshBuffer
	}
	cfg.Tokens.HonorServerExpiry = f.Tokens.HonorServerExpiry

	if len(f.Roles.AdminRoles) > 0 {
		cfg.Roles.AdminRoles = append([]string(nil), f.Roles.AdminRoles...)
	}
	setIf(&cfg.Roles.SuperAdminRole, f.Roles.SuperAdminRole)
	setIf(&cfg.Persistence.RedisKey, f.RedisKey)

	cfg.Persistence.Enabled = true
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func setIf(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}
