// Package athena provides the AWS Athena driver for Stagehand.
//
// Athena executes statements asynchronously: the driver submits the
// statement, polls the execution status at the configured interval until a
// terminal state, then pages results out of the result location.
package athena

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/athena"

	"github.com/leapstack-labs/stagehand/pkg/driver"
)

// DefaultPollInterval is used when the config does not set one.
const DefaultPollInterval = 500 * time.Millisecond

// Client is the subset of the Athena API the driver uses. Satisfied by
// *athena.Client; tests substitute a fake.
type Client interface {
	StartQueryExecution(ctx context.Context, params *athena.StartQueryExecutionInput, optFns ...func(*athena.Options)) (*athena.StartQueryExecutionOutput, error)
	GetQueryExecution(ctx context.Context, params *athena.GetQueryExecutionInput, optFns ...func(*athena.Options)) (*athena.GetQueryExecutionOutput, error)
	GetQueryResults(ctx context.Context, params *athena.GetQueryResultsInput, optFns ...func(*athena.Options)) (*athena.GetQueryResultsOutput, error)
}

// Driver implements driver.Driver for AWS Athena.
type Driver struct {
	logger *slog.Logger
}

// New creates an Athena driver. A nil logger means discard.
func New(logger *slog.Logger) *Driver {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Driver{logger: logger}
}

// Connect builds an Athena client from the config. Static credentials take
// precedence over a shared-config profile; with neither, the SDK's default
// chain applies (env vars, instance role, etc.).
func (d *Driver) Connect(ctx context.Context, cfg driver.Config) (driver.Conn, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken),
		))
	} else if cfg.Profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(cfg.Profile))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	poll := cfg.PollInterval
	if poll <= 0 {
		poll = DefaultPollInterval
	}

	d.logger.Debug("opening athena connection",
		"region", cfg.Region,
		"work_group", cfg.WorkGroup,
		"catalog", cfg.Catalog,
		"poll_interval", poll)

	return &Conn{
		client: athena.NewFromConfig(awsCfg),
		cfg:    cfg,
		poll:   poll,
		logger: d.logger,
	}, nil
}

// Conn is a single Athena session.
type Conn struct {
	client Client
	cfg    driver.Config
	poll   time.Duration
	logger *slog.Logger
}

// NewConn wraps an existing client. Used by tests.
func NewConn(client Client, cfg driver.Config, poll time.Duration, logger *slog.Logger) *Conn {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if poll <= 0 {
		poll = DefaultPollInterval
	}
	return &Conn{client: client, cfg: cfg, poll: poll, logger: logger}
}

// Cursor returns a fresh cursor for one statement.
func (c *Conn) Cursor() (driver.Cursor, error) {
	return &Cursor{conn: c}, nil
}

// Close releases the connection. The Athena client holds no persistent
// resources, so this only marks the connection unusable.
func (c *Conn) Close() error {
	c.client = nil
	return nil
}

var _ driver.Driver = (*Driver)(nil)
var _ driver.Conn = (*Conn)(nil)
