package record

// RawRecord is one retrieved entity instance.
type RawRecord struct {
	// ID is the primary key of the record, empty when the query did not
	// return it.
	ID string

	// Attributes maps logical attribute names to typed values. Linked entity
	// attributes use the "alias.attribute" form.
	Attributes map[string]Value
}

// Get returns the value of an attribute, or nil when absent.
func (r RawRecord) Get(name string) Value {
	if r.Attributes == nil {
		return nil
	}
	return r.Attributes[name]
}

// Len returns the number of attributes carried by the record.
func (r RawRecord) Len() int {
	return len(r.Attributes)
}

// Page is one batch of records returned by a paged query.
type Page struct {
	Records []RawRecord

	// More is the service's continuation flag. It is nil when the response
	// did not carry one.
	More *bool
}

// Last reports whether no page follows this one. A page shorter than
// pageSize always ends retrieval; a full page ends it only when the
// service said there are no more records.
func (p Page) Last(pageSize int) bool {
	if len(p.Records) < pageSize {
		return true
	}
	return p.More != nil && !*p.More
}
