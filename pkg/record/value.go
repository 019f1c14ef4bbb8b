package record

import (
	"strconv"
	"time"
)

// Kind identifies a Value variant.
type Kind int

const (
	KindNull Kind = iota
	KindText
	KindInteger
	KindAmount
	KindBoolean
	KindDateTime
	KindReference
	KindChoice
	KindChoices
)

// String returns the lowercase name of the kind.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindText:
		return "text"
	case KindInteger:
		return "integer"
	case KindAmount:
		return "amount"
	case KindBoolean:
		return "boolean"
	case KindDateTime:
		return "datetime"
	case KindReference:
		return "reference"
	case KindChoice:
		return "choice"
	case KindChoices:
		return "choices"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Value is a typed attribute value. The set of implementations is closed.
type Value interface {
	Kind() Kind
	isValue()
}

// Null is an attribute present without a value.
type Null struct{}

// Text is a string value.
type Text string

// Integer is a whole number value.
type Integer int64

// Amount is a money or decimal value. It holds the culture-invariant decimal
// text exactly as the service returned it, so no precision is lost.
type Amount string

// Boolean is a two-option value.
type Boolean bool

// DateTime is a UTC timestamp.
type DateTime time.Time

// Reference points to another record.
type Reference struct {
	ID          string
	LogicalName string
	// Name is the display name cached on the reference. Empty when the
	// service did not return one.
	Name string
}

// Choice is a single option set code.
type Choice int

// Choices is a multi-select option set value.
type Choices []int

func (Null) Kind() Kind      { return KindNull }
func (Text) Kind() Kind      { return KindText }
func (Integer) Kind() Kind   { return KindInteger }
func (Amount) Kind() Kind    { return KindAmount }
func (Boolean) Kind() Kind   { return KindBoolean }
func (DateTime) Kind() Kind  { return KindDateTime }
func (Reference) Kind() Kind { return KindReference }
func (Choice) Kind() Kind    { return KindChoice }
func (Choices) Kind() Kind   { return KindChoices }

func (Null) isValue()      {}
func (Text) isValue()      {}
func (Integer) isValue()   {}
func (Amount) isValue()    {}
func (Boolean) isValue()   {}
func (DateTime) isValue()  {}
func (Reference) isValue() {}
func (Choice) isValue()    {}
func (Choices) isValue()   {}

// Time returns the timestamp as a time.Time in UTC.
func (d DateTime) Time() time.Time {
	return time.Time(d).UTC()
}
