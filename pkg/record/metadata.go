package record

// AttributeType is a Dataverse attribute type name.
type AttributeType string

// Attribute types returned by the metadata service.
const (
	TypeString              AttributeType = "String"
	TypeMemo                AttributeType = "Memo"
	TypeInteger             AttributeType = "Integer"
	TypeBigInt              AttributeType = "BigInt"
	TypeDecimal             AttributeType = "Decimal"
	TypeDouble              AttributeType = "Double"
	TypeMoney               AttributeType = "Money"
	TypeBoolean             AttributeType = "Boolean"
	TypeDateTime            AttributeType = "DateTime"
	TypeLookup              AttributeType = "Lookup"
	TypeCustomer            AttributeType = "Customer"
	TypeOwner               AttributeType = "Owner"
	TypePicklist            AttributeType = "Picklist"
	TypeState               AttributeType = "State"
	TypeStatus              AttributeType = "Status"
	TypeMultiSelectPicklist AttributeType = "MultiSelectPicklist"
	TypeUniqueidentifier    AttributeType = "Uniqueidentifier"
	TypeEntityName          AttributeType = "EntityName"
	TypeVirtual             AttributeType = "Virtual"
)

// IsReference reports whether values of this type point to another record.
func (t AttributeType) IsReference() bool {
	return t == TypeLookup || t == TypeCustomer || t == TypeOwner
}

// IsChoice reports whether values of this type are single option set codes.
func (t AttributeType) IsChoice() bool {
	return t == TypePicklist || t == TypeState || t == TypeStatus
}

// IsAmount reports whether values of this type are decimal amounts.
func (t AttributeType) IsAmount() bool {
	return t == TypeMoney || t == TypeDecimal || t == TypeDouble
}

// IsInteger reports whether values of this type are whole numbers.
func (t AttributeType) IsInteger() bool {
	return t == TypeInteger || t == TypeBigInt
}

// AttributeMetadata describes one attribute of an entity.
type AttributeMetadata struct {
	LogicalName string
	Type        AttributeType

	// DateOnly is set for date-time attributes whose format or behavior is
	// date only.
	DateOnly bool

	// Options maps option codes to display labels for choice attributes.
	Options map[int]string
}

// Label returns the display label of an option code.
func (m *AttributeMetadata) Label(code int) (string, bool) {
	if m == nil || m.Options == nil {
		return "", false
	}
	label, ok := m.Options[code]
	return label, ok
}

// TypeResolver returns the attribute type of an attribute, if known.
type TypeResolver func(attribute string) (AttributeType, bool)
