// Package oscommand runs OS command sources on the local host.
package oscommand

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
	"time"

	"github.com/sentrysoftware/metricshub-sub023/internal/errors"
	"github.com/sentrysoftware/metricshub-sub023/internal/logger"
	"github.com/sentrysoftware/metricshub-sub023/internal/source"
)

const DefaultTimeout = 30 * time.Second

var localHostnames = map[string]bool{
	"":          true,
	"localhost": true,
	"127.0.0.1": true,
	"::1":       true,
}

// Client executes command lines through the system shell
type Client struct {
	shell          string
	defaultTimeout time.Duration
	log            logger.Logger
}

// Option configures a Client
type Option func(*Client)

// WithShell replaces /bin/sh
func WithShell(shell string) Option {
	return func(c *Client) { c.shell = shell }
}

// WithDefaultTimeout applies to commands that do not set their own
func WithDefaultTimeout(d time.Duration) Option {
	return func(c *Client) { c.defaultTimeout = d }
}

// WithLogger sets the client logger
func WithLogger(log logger.Logger) Option {
	return func(c *Client) { c.log = log }
}

// New creates a local command client
func New(opts ...Option) *Client {
	c := &Client{
		shell:          "/bin/sh",
		defaultTimeout: DefaultTimeout,
		log:            logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Execute runs an OsCommand source. Remote hosts are only served when the
// source asks for local execution.
func (c *Client) Execute(ctx context.Context, host source.Host, q source.Query) (source.Result, error) {
	errFactory := errors.New()

	cmd, ok := q.(*source.OsCommand)
	if !ok {
		return source.Result{}, errFactory.WithData(ErrUnsupportedQuery, q.Kind())
	}
	if !cmd.ExecuteLocally && !localHostnames[strings.ToLower(host.Hostname)] {
		return source.Result{}, errFactory.WithData(ErrRemoteExecution, host.Hostname)
	}

	timeout := c.defaultTimeout
	if cmd.Timeout > 0 {
		timeout = time.Duration(cmd.Timeout) * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	proc := exec.CommandContext(ctx, c.shell, "-c", cmd.CommandLine)
	proc.Stdout = &stdout
	proc.Stderr = &stderr
	proc.WaitDelay = time.Second

	start := time.Now()
	err := proc.Run()
	c.log.Debug().
		Str("host", host.Hostname).
		Str("command", cmd.CommandLine).
		Dur("elapsed", time.Since(start)).
		Msg("Command executed")

	if ctx.Err() == context.DeadlineExceeded {
		return source.Result{}, errFactory.WithData(ErrCommandTimeout, struct {
			Command string
			Timeout string
		}{
			Command: cmd.CommandLine,
			Timeout: timeout.String(),
		})
	}
	if err != nil {
		return source.Result{}, errFactory.Wrap(ErrCommandFailed, err).
			WithMessage(strings.TrimSpace(stderr.String()))
	}

	return source.TextResult(stdout.String()), nil
}
