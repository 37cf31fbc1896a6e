package source

import (
	"context"

	"github.com/sentrysoftware/metricshub-sub023/internal/table"
)

// Protocol names a protocol client family
type Protocol string

const (
	ProtocolSNMP Protocol = "snmp"
	ProtocolWBEM Protocol = "wbem"
	ProtocolWMI  Protocol = "wmi"
	ProtocolHTTP Protocol = "http"
	ProtocolIPMI Protocol = "ipmi"
	ProtocolOS   Protocol = "oscommand"
	ProtocolSSH  Protocol = "ssh"
)

// Host identifies the monitored host handed to protocol clients
type Host struct {
	Hostname   string
	Type       string
	Attributes map[string]string
}

// Query is a source that a protocol client executes
type Query interface {
	Source
	Protocol() Protocol
	// Substitute returns a copy with fn applied to every query parameter
	Substitute(fn func(string) string) Query
}

// Result is what a protocol client returns: a table or a scalar text
type Result struct {
	Table   table.Table
	Text    string
	IsTable bool
}

// TableResult wraps a tabular answer
func TableResult(t table.Table) Result {
	return Result{Table: t, IsTable: true}
}

// TextResult wraps a scalar answer
func TextResult(text string) Result {
	return Result{Text: text}
}

// Raw returns the answer as text
func (r Result) Raw() string {
	if r.IsTable {
		return r.Table.Text()
	}

	return r.Text
}

// Client executes queries of one protocol against a host
type Client interface {
	Execute(ctx context.Context, host Host, q Query) (Result, error)
}

// ClientFunc adapts a function to Client
type ClientFunc func(ctx context.Context, host Host, q Query) (Result, error)

// Execute calls f
func (f ClientFunc) Execute(ctx context.Context, host Host, q Query) (Result, error) {
	return f(ctx, host, q)
}

// Clients maps protocols to their client
type Clients map[Protocol]Client

func (*SnmpGet) Protocol() Protocol        { return ProtocolSNMP }
func (*SnmpTable) Protocol() Protocol      { return ProtocolSNMP }
func (*Wbem) Protocol() Protocol           { return ProtocolWBEM }
func (*Wmi) Protocol() Protocol            { return ProtocolWMI }
func (*HTTP) Protocol() Protocol           { return ProtocolHTTP }
func (*Ipmi) Protocol() Protocol           { return ProtocolIPMI }
func (*OsCommand) Protocol() Protocol      { return ProtocolOS }
func (*SshInteractive) Protocol() Protocol { return ProtocolSSH }

func (s *SnmpGet) Substitute(fn func(string) string) Query {
	c := *s
	c.OID = fn(c.OID)
	return &c
}

func (s *SnmpTable) Substitute(fn func(string) string) Query {
	c := *s
	c.OID = fn(c.OID)
	return &c
}

func (s *Wbem) Substitute(fn func(string) string) Query {
	c := *s
	c.Query = fn(c.Query)
	c.Namespace = fn(c.Namespace)
	return &c
}

func (s *Wmi) Substitute(fn func(string) string) Query {
	c := *s
	c.Query = fn(c.Query)
	c.Namespace = fn(c.Namespace)
	return &c
}

func (s *HTTP) Substitute(fn func(string) string) Query {
	c := *s
	c.Path = fn(c.Path)
	c.Header = fn(c.Header)
	c.Body = fn(c.Body)
	return &c
}

func (s *Ipmi) Substitute(func(string) string) Query {
	c := *s
	return &c
}

func (s *OsCommand) Substitute(fn func(string) string) Query {
	c := *s
	c.CommandLine = fn(c.CommandLine)
	return &c
}

func (s *SshInteractive) Substitute(fn func(string) string) Query {
	c := *s
	c.Steps = make([]string, len(s.Steps))
	for i, step := range s.Steps {
		c.Steps[i] = fn(step)
	}
	return &c
}
