package record

// ViewKind distinguishes the two view stores.
type ViewKind string

const (
	// SystemView is a shared, canonical view (savedquery).
	SystemView ViewKind = "system"
	// PersonalView is a per-user view (userquery).
	PersonalView ViewKind = "personal"
)

// ViewRecord is a view definition as stored by the service, before its
// layout has been parsed.
type ViewRecord struct {
	ID        string
	Kind      ViewKind
	Name      string
	Entity    string
	FetchXML  string
	LayoutXML string
}
