// Package compute implements the per-source table transformation pipeline.
package compute

// Kind discriminates Compute variants
type Kind string

const (
	KindAdd                         Kind = "add"
	KindSubtract                    Kind = "subtract"
	KindMultiply                    Kind = "multiply"
	KindDivide                      Kind = "divide"
	KindAnd                         Kind = "and"
	KindConvert                     Kind = "convert"
	KindDuplicateColumn             Kind = "duplicateColumn"
	KindExtract                     Kind = "extract"
	KindExtractPropertyFromWbemPath Kind = "extractPropertyFromWbemPath"
	KindSubstring                   Kind = "substring"
	KindLeftConcat                  Kind = "leftConcat"
	KindRightConcat                 Kind = "rightConcat"
	KindReplace                     Kind = "replace"
	KindTranslate                   Kind = "translate"
	KindArrayTranslate              Kind = "arrayTranslate"
	KindPerBitTranslation           Kind = "perBitTranslation"
	KindKeepColumns                 Kind = "keepColumns"
	KindKeepOnlyMatchingLines       Kind = "keepOnlyMatchingLines"
	KindExcludeMatchingLines        Kind = "excludeMatchingLines"
	KindJSON2CSV                    Kind = "json2Csv"
	KindXML2CSV                     Kind = "xml2Csv"
	KindTableUnion                  Kind = "tableUnion"
	KindTableJoin                   Kind = "tableJoin"
)

// Compute is one step of a source pipeline. The set of variants is closed.
type Compute interface {
	Kind() Kind
	isCompute()
}

// Add adds Value (a literal or "$N") to Column
type Add struct {
	Column int    `yaml:"column"`
	Value  string `yaml:"value"`
}

// Subtract subtracts Value from Column
type Subtract struct {
	Column int    `yaml:"column"`
	Value  string `yaml:"value"`
}

// Multiply multiplies Column by Value
type Multiply struct {
	Column int    `yaml:"column"`
	Value  string `yaml:"value"`
}

// Divide divides Column by Value
type Divide struct {
	Column int    `yaml:"column"`
	Value  string `yaml:"value"`
}

// And applies a bitwise AND between Column and Value
type And struct {
	Column int    `yaml:"column"`
	Value  string `yaml:"value"`
}

// ConversionType selects the Convert operation
type ConversionType string

const (
	Hex2Dec            ConversionType = "hex2Dec"
	Array2SimpleStatus ConversionType = "array2SimpleStatus"
)

// Convert rewrites Column with a radix or status conversion
type Convert struct {
	Column         int            `yaml:"column"`
	ConversionType ConversionType `yaml:"conversionType"`
}

// DuplicateColumn inserts a copy of Column right after it
type DuplicateColumn struct {
	Column int `yaml:"column"`
}

// Extract keeps the SubColumn-th token of Column split on any SubSeparators character
type Extract struct {
	Column        int    `yaml:"column"`
	SubColumn     int    `yaml:"subColumn"`
	SubSeparators string `yaml:"subSeparators"`
}

// ExtractPropertyFromWbemPath replaces a WBEM object path with one of its key properties
type ExtractPropertyFromWbemPath struct {
	Column       int    `yaml:"column"`
	PropertyName string `yaml:"propertyName"`
}

// Substring keeps Length characters of Column starting at 1-based Start
type Substring struct {
	Column int    `yaml:"column"`
	Start  string `yaml:"start"`
	Length string `yaml:"length"`
}

// LeftConcat prepends Value to Column
type LeftConcat struct {
	Column int    `yaml:"column"`
	Value  string `yaml:"value"`
}

// RightConcat appends Value to Column
type RightConcat struct {
	Column int    `yaml:"column"`
	Value  string `yaml:"value"`
}

// Replace substitutes every ExistingValue in Column with NewValue
type Replace struct {
	Column        int    `yaml:"column"`
	ExistingValue string `yaml:"existingValue"`
	NewValue      string `yaml:"newValue"`
}

// Translate maps Column through a named translation table
type Translate struct {
	Column           int    `yaml:"column"`
	TranslationTable string `yaml:"translationTable"`
}

// ArrayTranslate translates every element of a delimited list
type ArrayTranslate struct {
	Column           int    `yaml:"column"`
	TranslationTable string `yaml:"translationTable"`
	ArraySeparator   string `yaml:"arraySeparator"`
	ResultSeparator  string `yaml:"resultSeparator"`
}

// PerBitTranslation decodes an integer bitmask through a translation table
// whose keys are "<bit>,<0|1>"
type PerBitTranslation struct {
	Column           int    `yaml:"column"`
	BitList          []int  `yaml:"bitList"`
	TranslationTable string `yaml:"translationTable"`
}

// KeepColumns projects every row onto ColumnNumbers, in that order
type KeepColumns struct {
	ColumnNumbers []int `yaml:"columnNumbers"`
}

// KeepOnlyMatchingLines keeps rows whose Column matches ValueList and RegExp
type KeepOnlyMatchingLines struct {
	Column    int    `yaml:"column"`
	ValueList string `yaml:"valueList"`
	RegExp    string `yaml:"regExp"`
}

// ExcludeMatchingLines drops rows whose Column matches ValueList or RegExp
type ExcludeMatchingLines struct {
	Column    int    `yaml:"column"`
	ValueList string `yaml:"valueList"`
	RegExp    string `yaml:"regExp"`
}

// JSON2CSV expands the JSON document in Column into one row per record
type JSON2CSV struct {
	Column     int      `yaml:"column"`
	EntryKey   string   `yaml:"entryKey"`
	Properties []string `yaml:"properties"`
}

// XML2CSV expands the XML document in Column into one row per record
type XML2CSV struct {
	Column     int      `yaml:"column"`
	RecordTag  string   `yaml:"recordTag"`
	Properties []string `yaml:"properties"`
}

// TableUnion appends the rows of other sources to the current table
type TableUnion struct {
	Tables []string `yaml:"tables"`
}

// TableJoin joins the current table (left) with another source (right)
type TableJoin struct {
	RightTable       string `yaml:"rightTable"`
	LeftKeyColumn    int    `yaml:"leftKeyColumn"`
	RightKeyColumn   int    `yaml:"rightKeyColumn"`
	KeyType          string `yaml:"keyType"`
	DefaultRightLine string `yaml:"defaultRightLine"`
}

func (*Add) Kind() Kind                         { return KindAdd }
func (*Subtract) Kind() Kind                    { return KindSubtract }
func (*Multiply) Kind() Kind                    { return KindMultiply }
func (*Divide) Kind() Kind                      { return KindDivide }
func (*And) Kind() Kind                         { return KindAnd }
func (*Convert) Kind() Kind                     { return KindConvert }
func (*DuplicateColumn) Kind() Kind             { return KindDuplicateColumn }
func (*Extract) Kind() Kind                     { return KindExtract }
func (*ExtractPropertyFromWbemPath) Kind() Kind { return KindExtractPropertyFromWbemPath }
func (*Substring) Kind() Kind                   { return KindSubstring }
func (*LeftConcat) Kind() Kind                  { return KindLeftConcat }
func (*RightConcat) Kind() Kind                 { return KindRightConcat }
func (*Replace) Kind() Kind                     { return KindReplace }
func (*Translate) Kind() Kind                   { return KindTranslate }
func (*ArrayTranslate) Kind() Kind              { return KindArrayTranslate }
func (*PerBitTranslation) Kind() Kind           { return KindPerBitTranslation }
func (*KeepColumns) Kind() Kind                 { return KindKeepColumns }
func (*KeepOnlyMatchingLines) Kind() Kind       { return KindKeepOnlyMatchingLines }
func (*ExcludeMatchingLines) Kind() Kind        { return KindExcludeMatchingLines }
func (*JSON2CSV) Kind() Kind                    { return KindJSON2CSV }
func (*XML2CSV) Kind() Kind                     { return KindXML2CSV }
func (*TableUnion) Kind() Kind                  { return KindTableUnion }
func (*TableJoin) Kind() Kind                   { return KindTableJoin }

func (*Add) isCompute()                         {}
func (*Subtract) isCompute()                    {}
func (*Multiply) isCompute()                    {}
func (*Divide) isCompute()                      {}
func (*And) isCompute()                         {}
func (*Convert) isCompute()                     {}
func (*DuplicateColumn) isCompute()             {}
func (*Extract) isCompute()                     {}
func (*ExtractPropertyFromWbemPath) isCompute() {}
func (*Substring) isCompute()                   {}
func (*LeftConcat) isCompute()                  {}
func (*RightConcat) isCompute()                 {}
func (*Replace) isCompute()                     {}
func (*Translate) isCompute()                   {}
func (*ArrayTranslate) isCompute()              {}
func (*PerBitTranslation) isCompute()           {}
func (*KeepColumns) isCompute()                 {}
func (*KeepOnlyMatchingLines) isCompute()       {}
func (*ExcludeMatchingLines) isCompute()        {}
func (*JSON2CSV) isCompute()                    {}
func (*XML2CSV) isCompute()                     {}
func (*TableUnion) isCompute()                  {}
func (*TableJoin) isCompute()                   {}

// newByKind returns an empty variant for kind, used by decoders
func newByKind(kind Kind) (Compute, bool) {
	switch kind {
	case KindAdd:
		return &Add{}, true
	case KindSubtract:
		return &Subtract{}, true
	case KindMultiply:
		return &Multiply{}, true
	case KindDivide:
		return &Divide{}, true
	case KindAnd:
		return &And{}, true
	case KindConvert:
		return &Convert{}, true
	case KindDuplicateColumn:
		return &DuplicateColumn{}, true
	case KindExtract:
		return &Extract{}, true
	case KindExtractPropertyFromWbemPath:
		return &ExtractPropertyFromWbemPath{}, true
	case KindSubstring:
		return &Substring{}, true
	case KindLeftConcat:
		return &LeftConcat{}, true
	case KindRightConcat:
		return &RightConcat{}, true
	case KindReplace:
		return &Replace{}, true
	case KindTranslate:
		return &Translate{}, true
	case KindArrayTranslate:
		return &ArrayTranslate{}, true
	case KindPerBitTranslation:
		return &PerBitTranslation{}, true
	case KindKeepColumns:
		return &KeepColumns{}, true
	case KindKeepOnlyMatchingLines:
		return &KeepOnlyMatchingLines{}, true
	case KindExcludeMatchingLines:
		return &ExcludeMatchingLines{}, true
	case KindJSON2CSV:
		return &JSON2CSV{}, true
	case KindXML2CSV:
		return &XML2CSV{}, true
	case KindTableUnion:
		return &TableUnion{}, true
	case KindTableJoin:
		return &TableJoin{}, true
	default:
		return nil, false
	}
}
