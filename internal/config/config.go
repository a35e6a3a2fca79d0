package config

import (
	"bufio"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"clawredeem/internal/components/telemetry"
	"clawredeem/internal/redeemer"
	"clawredeem/internal/scrapers/clawportal"
	"clawredeem/pkg/configutil"
)

const DefaultPath = "clawredeem.json5"

const (
	defaultUserFile          = "user.json"
	defaultCodesFile         = "codes.txt"
	defaultJournal           = "clawredeem.db"
	defaultRequestsPerSecond = 2
)

type PacingConfig struct {
	AfterRejected      string `json:"after_rejected"`
	AfterAccepted      string `json:"after_accepted"`
	AfterPointsRefresh string `json:"after_points_refresh"`
}

// Config mirrors clawredeem.json5. Relative paths are relative to the
// directory of the config file.
type Config struct {
	BaseUrl   string               `json:"base_url"`
	Endpoints clawportal.Endpoints `json:"endpoints"`
	UserFile  string               `json:"user_file"`
	CodesFile string               `json:"codes_file"`
	// Journal is the sqlite file runs are recorded in, "" turns it off.
	Journal           *string          `json:"journal"`
	DumpDir           string           `json:"dump_dir"`
	Pacing            PacingConfig     `json:"pacing"`
	OnTransportError  string           `json:"on_transport_error"`
	RequestsPerSecond *float64         `json:"requests_per_second"`
	Telemetry         telemetry.Config `json:"telemetry"`
}

// Settings is a validated Config with defaults applied and paths resolved.
type Settings struct {
	BaseUrl           string
	Endpoints         clawportal.Endpoints
	UserFile          string
	CodesFile         string
	Journal           string
	DumpDir           string
	Pacing            redeemer.Pacing
	Transport         redeemer.TransportPolicy
	RequestsPerSecond float64
	Telemetry         telemetry.Config
}

// ConfigError is a problem with the configuration found before anything is
// sent to the portal.
type ConfigError struct {
	Path  string
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("config %s: %s", e.Path, e.Err)
	}
	return fmt.Sprintf("config %s: %s: %s", e.Path, e.Field, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

func resolve(dir, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}

func parseDuration(path, field, value string, fallback time.Duration) (time.Duration, error) {
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, &ConfigError{Path: path, Field: field, Err: err}
	}
	if d < 0 {
		return 0, &ConfigError{Path: path, Field: field, Err: fmt.Errorf("negative duration %s", value)}
	}
	return d, nil
}

// Load reads path (and its .local override) and validates it.
func Load(path string) (Settings, error) {
	config, err := configutil.ReadConfig[Config](path)
	if err != nil {
		return Settings{}, &ConfigError{Path: path, Err: err}
	}
	return config.Settings(path)
}

// Settings validates the config read from path.
func (c Config) Settings(path string) (Settings, error) {
	dir := filepath.Dir(path)

	if c.BaseUrl == "" {
		return Settings{}, &ConfigError{Path: path, Field: "base_url", Err: errors.New("missing")}
	}
	base, err := url.Parse(c.BaseUrl)
	if err != nil {
		return Settings{}, &ConfigError{Path: path, Field: "base_url", Err: err}
	}
	if (base.Scheme != "http" && base.Scheme != "https") || base.Host == "" {
		return Settings{}, &ConfigError{Path: path, Field: "base_url", Err: fmt.Errorf("%q is not an http(s) url", c.BaseUrl)}
	}

	defaults := redeemer.DefaultPacing()
	var pacing redeemer.Pacing
	pacing.AfterRejected, err = parseDuration(path, "pacing.after_rejected", c.Pacing.AfterRejected, defaults.AfterRejected)
	if err != nil {
		return Settings{}, err
	}
	pacing.AfterAccepted, err = parseDuration(path, "pacing.after_accepted", c.Pacing.AfterAccepted, defaults.AfterAccepted)
	if err != nil {
		return Settings{}, err
	}
	pacing.AfterPointsRefresh, err = parseDuration(path, "pacing.after_points_refresh", c.Pacing.AfterPointsRefresh, defaults.AfterPointsRefresh)
	if err != nil {
		return Settings{}, err
	}

	transport, err := redeemer.ParseTransportPolicy(c.OnTransportError)
	if err != nil {
		return Settings{}, &ConfigError{Path: path, Field: "on_transport_error", Err: err}
	}

	rps := float64(defaultRequestsPerSecond)
	if c.RequestsPerSecond != nil {
		rps = *c.RequestsPerSecond
	}
	if rps < 0 {
		return Settings{}, &ConfigError{Path: path, Field: "requests_per_second", Err: fmt.Errorf("negative rate %v", rps)}
	}

	userFile := c.UserFile
	if userFile == "" {
		userFile = defaultUserFile
	}
	codesFile := c.CodesFile
	if codesFile == "" {
		codesFile = defaultCodesFile
	}
	journal := defaultJournal
	if c.Journal != nil {
		journal = *c.Journal
	}

	return Settings{
		BaseUrl:           c.BaseUrl,
		Endpoints:         c.Endpoints.WithDefaults(),
		UserFile:          resolve(dir, userFile),
		CodesFile:         resolve(dir, codesFile),
		Journal:           resolve(dir, journal),
		DumpDir:           resolve(dir, c.DumpDir),
		Pacing:            pacing,
		Transport:         transport,
		RequestsPerSecond: rps,
		Telemetry:         c.Telemetry,
	}, nil
}

// LoadCredentials reads the {"email", "password"} user file.
func LoadCredentials(path string) (redeemer.Credentials, error) {
	creds, err := configutil.ReadJSON5[redeemer.Credentials](path)
	if err != nil {
		return redeemer.Credentials{}, &ConfigError{Path: path, Err: err}
	}
	if strings.TrimSpace(creds.Email) == "" {
		return redeemer.Credentials{}, &ConfigError{Path: path, Field: "email", Err: errors.New("missing")}
	}
	if creds.Password == "" {
		return redeemer.Credentials{}, &ConfigError{Path: path, Field: "password", Err: errors.New("missing")}
	}
	creds.Email = strings.TrimSpace(creds.Email)
	return creds, nil
}

// ParseCodes reads one code per line. Blank lines and lines starting with
// '#' are skipped, everything else is trimmed and kept in order.
func ParseCodes(contents string) []string {
	var codes []string
	scanner := bufio.NewScanner(strings.NewReader(contents))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		codes = append(codes, line)
	}
	return codes
}

func LoadCodes(path string) ([]string, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigError{Path: path, Err: err}
	}
	// a BOM left by windows editors would otherwise become part of the first code
	return ParseCodes(strings.TrimPrefix(string(contents), "\ufeff")), nil
}
