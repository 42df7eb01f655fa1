package session

import (
	"strconv"
	"time"

	"github.com/leapstack-labs/stagehand/pkg/driver"
)

// Defaults applied by Settings.ApplyDefaults.
const (
	DefaultDriver       = "athena"
	DefaultRegion       = "us-east-1"
	DefaultCatalog      = "AwsDataCatalog"
	DefaultPollInterval = "0.5"
)

// Settings is the validated connection configuration. The host
// application (or the CLI) fills it in; Open validates it once.
type Settings struct {
	Driver string `koanf:"driver"`

	Region     string `koanf:"region"`
	StagingDir string `koanf:"staging_dir"`
	WorkGroup  string `koanf:"work_group"`
	Schema     string `koanf:"schema"`
	Catalog    string `koanf:"catalog"`

	// PollInterval is the query status poll delay in seconds, as a
	// numeric string. Unparseable values fall back to the default.
	PollInterval string `koanf:"poll_interval"`

	// Credentials are passed through to the driver opaquely.
	AccessKeyID     string `koanf:"aws_access_key_id"`
	SecretAccessKey string `koanf:"aws_secret_access_key"`
	SessionToken    string `koanf:"aws_session_token"`
	Profile         string `koanf:"profile"`

	// Options carries driver-specific settings.
	Options map[string]string `koanf:"options"`
}

// ApplyDefaults fills in unset fields.
func (s *Settings) ApplyDefaults() {
	if s.Driver == "" {
		s.Driver = DefaultDriver
	}
	if s.Region == "" {
		s.Region = DefaultRegion
	}
	if s.Catalog == "" {
		s.Catalog = DefaultCatalog
	}
	if s.PollInterval == "" {
		s.PollInterval = DefaultPollInterval
	}
}

// pollInterval parses PollInterval, falling back to the default on
// invalid or non-positive input.
func (s *Settings) pollInterval() time.Duration {
	secs, err := strconv.ParseFloat(s.PollInterval, 64)
	if err != nil || secs <= 0 {
		secs, _ = strconv.ParseFloat(DefaultPollInterval, 64)
	}
	return time.Duration(secs * float64(time.Second))
}

// driverConfig projects the settings onto the driver contract.
func (s *Settings) driverConfig() driver.Config {
	return driver.Config{
		Region:          s.Region,
		StagingDir:      s.StagingDir,
		WorkGroup:       s.WorkGroup,
		Schema:          s.Schema,
		Catalog:         s.Catalog,
		PollInterval:    s.pollInterval(),
		AccessKeyID:     s.AccessKeyID,
		SecretAccessKey: s.SecretAccessKey,
		SessionToken:    s.SessionToken,
		Profile:         s.Profile,
		Options:         s.Options,
	}
}
