// Package record defines the data model shared by the Dataverse client and the
// export pipeline.
//
// # Records
//
// A RawRecord is one retrieved entity instance. Its attributes are a mapping
// from logical attribute name to a typed Value. Value is a closed sum type:
// every variant implements the unexported isValue marker, so a type switch
// over the variants below is exhaustive:
//
//   - Null: the attribute is present but carries no value
//   - Text: strings, memos, unique identifiers
//   - Integer: whole numbers (Integer, BigInt)
//   - Amount: money and decimal amounts, kept as the exact decimal text received
//   - Boolean: two-option fields
//   - DateTime: UTC timestamps
//   - Reference: lookups to another record {ID, LogicalName, Name}
//   - Choice: single choice (option set) code
//   - Choices: multi-select choice codes
//
// Records are sparse: attributes without a value are usually absent rather
// than Null.
//
// A Page carries the records of one paged query together with the service's
// continuation flag, so a full final page does not cost an extra request.
//
// # Metadata
//
// AttributeMetadata describes one attribute of an entity: its Dataverse
// attribute type, whether a date-time attribute is date-only, and, for choice
// attributes, the option code to label mapping.
package record
