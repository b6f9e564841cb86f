package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/go-viper/mapstructure/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	auth "github.com/sandunudayakantha/saloon-auth"
)

// EnvPrefix marks environment variables that override file values
const EnvPrefix = "SALOON_"

const defaultPath = "."

// Config is the application configuration. It satisfies auth.Config.
type Config struct {
	Env      string   `koanf:"env"`
	Log      Log      `koanf:"log"`
	Database Database `koanf:"database"`
	Session  Session  `koanf:"session"`
	Provider Provider `koanf:"provider"`
}

type Log struct {
	Level  string `koanf:"level"`
	Pretty bool   `koanf:"pretty"`
}

type Database struct {
	DSN         string        `koanf:"dsn"`
	Debug       bool          `koanf:"debug"`
	PingTimeout time.Duration `koanf:"pingTimeout"`
}

// Session holds the session engine switches
type Session struct {
	ProvisionOnBootstrap bool   `koanf:"provisionOnBootstrap"`
	ProvisionOnSignIn    bool   `koanf:"provisionOnSignIn"`
	DefaultRole          string `koanf:"defaultRole"`
	EmailRedirectTo      string `koanf:"emailRedirectTo"`
	MinPasswordLength    int    `koanf:"minPasswordLength"`
	EventBuffer          int    `koanf:"eventBuffer"`
}

// Provider configures the in-process identity provider
type Provider struct {
	SigningKey          string        `koanf:"signingKey"`
	Issuer              string        `koanf:"issuer"`
	TokenTTL            time.Duration `koanf:"tokenTTL"`
	RequireConfirmation bool          `koanf:"requireConfirmation"`
	BcryptCost          int           `koanf:"bcryptCost"`
}

var _ auth.Config = (*Config)(nil)

func (c *Config) GetProvisionOnBootstrap() bool { return c.Session.ProvisionOnBootstrap }
func (c *Config) GetProvisionOnSignIn() bool    { return c.Session.ProvisionOnSignIn }
func (c *Config) GetEmailRedirectTo() string    { return c.Session.EmailRedirectTo }
func (c *Config) GetMinPasswordLength() int     { return c.Session.MinPasswordLength }
func (c *Config) GetEventBuffer() int           { return c.Session.EventBuffer }

func (c *Config) GetDefaultRole() auth.Role {
	if role, ok := auth.ParseRole(c.Session.DefaultRole); ok {
		return role
	}
	return auth.RoleStaff
}

func defaults() map[string]any {
	d := auth.NewDefaultConfig()
	return map[string]any{
		"env":                          "development",
		"log.level":                    "info",
		"log.pretty":                   false,
		"database.dsn":                 "file::memory:?cache=shared",
		"database.debug":               false,
		"database.pingTimeout":         "5s",
		"session.provisionOnBootstrap": d.ProvisionOnBootstrap,
		"session.provisionOnSignIn":    d.ProvisionOnSignIn,
		"session.defaultRole":          d.DefaultRole,
		"session.emailRedirectTo":      d.EmailRedirectTo,
		"session.minPasswordLength":    d.MinPasswordLength,
		"session.eventBuffer":          d.EventBuffer,
		"provider.signingKey":          "",
		"provider.issuer":              "saloon-auth/memory",
		"provider.tokenTTL":            "1h",
		"provider.requireConfirmation": false,
		"provider.bcryptCost":          10,
	}
}

// Load reads <currEnv>.yaml from the first search path that has it, then
// applies SALOON_ prefixed environment overrides. A missing file leaves
// the defaults in place.
func Load(currEnv string, configPath ...string) (*Config, error) {
	k := koanf.New(".")

	for key, value := range defaults() {
		if err := k.Set(key, value); err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "set config default "+key)
		}
	}

	searchPaths := []string{defaultPath}
	if len(configPath) != 0 {
		pwd, err := os.Getwd()
		if err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "os.Getwd")
		}
		for _, path := range configPath {
			if filepath.IsAbs(path) {
				searchPaths = append(searchPaths, path)
				continue
			}
			searchPaths = append(searchPaths, filepath.Join(pwd, path))
		}
	}

	if configFile, ok := findConfigFile(currEnv, searchPaths); ok {
		if err := k.Load(file.Provider(configFile), yaml.Parser()); err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "read "+currEnv+" config failed").
				WithMetadata(map[string]any{"file": configFile})
		}
	}

	existing := k.Raw()
	if err := k.Load(env.Provider(".", env.Opt{
		Prefix: EnvPrefix,
		TransformFunc: func(key, value string) (string, any) {
			// SALOON_SESSION_MIN_PASSWORD_LENGTH -> session.minPasswordLength
			return canonicalizeEnvKey(strings.TrimPrefix(key, EnvPrefix), existing), value
		},
	}), nil); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "load env variables failed")
	}

	cfg := new(Config)
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           cfg,
			TagName:          "koanf",
			WeaklyTypedInput: true,
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
			),
			MatchName: func(mapKey, fieldName string) bool {
				return strings.EqualFold(mapKey, fieldName)
			},
		},
	}); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "unmarshal "+currEnv+" config failed")
	}

	if cfg.Session.MinPasswordLength < 1 {
		cfg.Session.MinPasswordLength = auth.NewDefaultConfig().MinPasswordLength
	}
	if cfg.Session.EventBuffer < 1 {
		cfg.Session.EventBuffer = auth.NewDefaultConfig().EventBuffer
	}

	return cfg, nil
}

func findConfigFile(currEnv string, searchPaths []string) (string, bool) {
	for _, path := range searchPaths {
		candidate := filepath.Join(path, currEnv+".yaml")
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true
		}
	}
	return "", false
}

// canonicalizeEnvKey maps an underscore separated env key onto the
// existing config tree. Several segments may fold into one camelCase key.
func canonicalizeEnvKey(rawKey string, existing map[string]any) string {
	segments := make([]string, 0)
	for _, s := range strings.Split(strings.ToLower(rawKey), "_") {
		if s != "" {
			segments = append(segments, s)
		}
	}

	canonical := make([]string, 0, len(segments))
	current := existing

	for i := 0; i < len(segments); {
		matched, next, width := matchSegments(current, segments[i:])
		if width == 0 {
			canonical = append(canonical, segments[i])
			current = nil
			i++
			continue
		}
		canonical = append(canonical, matched)
		current = next
		i += width
	}

	return strings.Join(canonical, ".")
}

// matchSegments finds the longest run of leading segments naming a key
func matchSegments(current map[string]any, segments []string) (string, map[string]any, int) {
	if len(current) == 0 {
		return "", nil, 0
	}

	for width := len(segments); width > 0; width-- {
		needle := normalizeToken(strings.Join(segments[:width], ""))
		for key, value := range current {
			if normalizeToken(key) != needle {
				continue
			}
			child, _ := value.(map[string]any)
			return key, child, width
		}
	}

	return "", nil, 0
}

func normalizeToken(s string) string {
	var normalized strings.Builder
	normalized.Grow(len(s))

	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			continue
		}
		normalized.WriteRune(unicode.ToLower(r))
	}

	return normalized.String()
}
