// Package source defines the Source model and resolves sources into tables.
package source

import "github.com/sentrysoftware/metricshub-sub023/internal/compute"

// Kind discriminates Source variants
type Kind string

const (
	KindSnmpGet        Kind = "snmpGet"
	KindSnmpTable      Kind = "snmpTable"
	KindWbem           Kind = "wbem"
	KindWmi            Kind = "wmi"
	KindHTTP           Kind = "http"
	KindIpmi           Kind = "ipmi"
	KindOsCommand      Kind = "osCommand"
	KindSshInteractive Kind = "sshInteractive"
	KindReference      Kind = "static"
	KindTableUnion     Kind = "tableUnion"
	KindTableJoin      Kind = "tableJoin"
)

// Source is a definition that resolves into a table. The set of variants is closed.
type Source interface {
	Kind() Kind
	Base() *Common
	isSource()
}

// Common holds the fields shared by every source
type Common struct {
	// Key is the source path other sources use to reference it
	Key                   string               `yaml:"-"`
	Name                  string               `yaml:"name"`
	ForceSerialization    bool                 `yaml:"forceSerialization"`
	ExecuteForEachEntryOf *ExecuteForEachEntry `yaml:"executeForEachEntryOf"`
	Computes              compute.List         `yaml:"computes"`
}

// Base returns the shared fields
func (c *Common) Base() *Common { return c }

// ConcatMethod selects how per-entry results are combined
type ConcatMethod string

const (
	ConcatList      ConcatMethod = "list"
	ConcatJSONArray ConcatMethod = "jsonArray"
	ConcatCustom    ConcatMethod = "custom"
)

// ExecuteForEachEntry re-runs a source once per row of another source
type ExecuteForEachEntry struct {
	Source       string       `yaml:"source"`
	ConcatMethod ConcatMethod `yaml:"concatMethod"`
	ConcatStart  string       `yaml:"concatStart"`
	ConcatEnd    string       `yaml:"concatEnd"`
	Separator    string       `yaml:"separator"`
	SleepMillis  int          `yaml:"sleepMillis"`
}

// TextProcessing turns raw command output into a table
type TextProcessing struct {
	Separators        string `yaml:"separators"`
	SelectColumns     string `yaml:"selectColumns"`
	BeginAtLineNumber int    `yaml:"beginAtLineNumber"`
	EndAtLineNumber   int    `yaml:"endAtLineNumber"`
	KeepOnlyRegExp    string `yaml:"keepOnlyRegExp"`
	ExcludeRegExp     string `yaml:"excludeRegExp"`
}

// SnmpGet reads a single OID
type SnmpGet struct {
	Common `yaml:",inline"`
	OID    string `yaml:"oid"`
}

// SnmpTable walks an SNMP table
type SnmpTable struct {
	Common        `yaml:",inline"`
	OID           string `yaml:"oid"`
	SelectColumns string `yaml:"selectColumns"`
}

// Wbem runs a WQL query through WBEM
type Wbem struct {
	Common    `yaml:",inline"`
	Query     string `yaml:"query"`
	Namespace string `yaml:"namespace"`
}

// Wmi runs a WQL query through WMI
type Wmi struct {
	Common    `yaml:",inline"`
	Query     string `yaml:"query"`
	Namespace string `yaml:"namespace"`
}

// HTTP performs an HTTP request and keeps the response as a single cell
type HTTP struct {
	Common        `yaml:",inline"`
	Method        string `yaml:"method"`
	Path          string `yaml:"path"`
	Header        string `yaml:"header"`
	Body          string `yaml:"body"`
	ResultContent string `yaml:"resultContent"`
}

// Ipmi reads the IPMI sensor and FRU inventory
type Ipmi struct {
	Common `yaml:",inline"`
}

// OsCommand runs a command line on the monitored host
type OsCommand struct {
	Common         `yaml:",inline"`
	TextProcessing `yaml:",inline"`
	CommandLine    string `yaml:"commandLine"`
	Timeout        int    `yaml:"timeout"`
	ExecuteLocally bool   `yaml:"executeLocally"`
}

// SshInteractive plays a sequence of steps in an interactive SSH session
type SshInteractive struct {
	Common         `yaml:",inline"`
	TextProcessing `yaml:",inline"`
	Port           int      `yaml:"port"`
	Steps          []string `yaml:"steps"`
}

// Reference is a Copy of another source when Value reads "%<source-path>%",
// otherwise a Static literal table
type Reference struct {
	Common `yaml:",inline"`
	Value  string `yaml:"value"`
}

// TableUnion concatenates other sources' rows in declared order
type TableUnion struct {
	Common `yaml:",inline"`
	Tables []string `yaml:"tables"`
}

// TableJoin joins two sources on one key column each
type TableJoin struct {
	Common           `yaml:",inline"`
	LeftTable        string `yaml:"leftTable"`
	RightTable       string `yaml:"rightTable"`
	LeftKeyColumn    int    `yaml:"leftKeyColumn"`
	RightKeyColumn   int    `yaml:"rightKeyColumn"`
	KeyType          string `yaml:"keyType"`
	DefaultRightLine string `yaml:"defaultRightLine"`
}

func (*SnmpGet) Kind() Kind        { return KindSnmpGet }
func (*SnmpTable) Kind() Kind      { return KindSnmpTable }
func (*Wbem) Kind() Kind           { return KindWbem }
func (*Wmi) Kind() Kind            { return KindWmi }
func (*HTTP) Kind() Kind           { return KindHTTP }
func (*Ipmi) Kind() Kind           { return KindIpmi }
func (*OsCommand) Kind() Kind      { return KindOsCommand }
func (*SshInteractive) Kind() Kind { return KindSshInteractive }
func (*Reference) Kind() Kind      { return KindReference }
func (*TableUnion) Kind() Kind     { return KindTableUnion }
func (*TableJoin) Kind() Kind      { return KindTableJoin }

func (*SnmpGet) isSource()        {}
func (*SnmpTable) isSource()      {}
func (*Wbem) isSource()           {}
func (*Wmi) isSource()            {}
func (*HTTP) isSource()           {}
func (*Ipmi) isSource()           {}
func (*OsCommand) isSource()      {}
func (*SshInteractive) isSource() {}
func (*Reference) isSource()      {}
func (*TableUnion) isSource()     {}
func (*TableJoin) isSource()      {}

func newByKind(kind Kind) (Source, bool) {
	switch kind {
	case KindSnmpGet:
		return &SnmpGet{}, true
	case KindSnmpTable:
		return &SnmpTable{}, true
	case KindWbem:
		return &Wbem{}, true
	case KindWmi:
		return &Wmi{}, true
	case KindHTTP:
		return &HTTP{}, true
	case KindIpmi:
		return &Ipmi{}, true
	case KindOsCommand:
		return &OsCommand{}, true
	case KindSshInteractive:
		return &SshInteractive{}, true
	case KindReference, "copy":
		return &Reference{}, true
	case KindTableUnion:
		return &TableUnion{}, true
	case KindTableJoin:
		return &TableJoin{}, true
	default:
		return nil, false
	}
}

// References lists the source keys src depends on, in declaration order
func References(src Source) []string {
	var refs []string
	add := func(values ...string) {
		for _, v := range values {
			if key := ReferenceKey(v); key != "" {
				refs = append(refs, key)
			}
		}
	}

	switch s := src.(type) {
	case *Reference:
		if key, ok := ParseReference(s.Value); ok {
			refs = append(refs, key)
		}
	case *TableUnion:
		add(s.Tables...)
	case *TableJoin:
		add(s.LeftTable, s.RightTable)
	}
	base := src.Base()
	if base.ExecuteForEachEntryOf != nil {
		add(base.ExecuteForEachEntryOf.Source)
	}
	for _, c := range base.Computes {
		switch op := c.(type) {
		case *compute.TableUnion:
			add(op.Tables...)
		case *compute.TableJoin:
			add(op.RightTable)
		}
	}

	return refs
}
