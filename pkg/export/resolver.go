package export

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"mercator-hq/viewexport/pkg/record"
)

// ViewDefinition is a resolved view. It is immutable once resolved.
type ViewDefinition struct {
	Name     string
	Entity   string
	Kind     record.ViewKind
	ID       string
	FetchXML string

	// Columns is the layout column order, empty when HasLayout is false.
	Columns   []string
	HasLayout bool
}

// searchOrder is the view store lookup order. System views win on a name
// collision with a personal view.
var searchOrder = []record.ViewKind{record.SystemView, record.PersonalView}

type viewKey struct {
	name   string
	entity string
}

// ViewResolver resolves named views and caches them for the process lifetime.
type ViewResolver struct {
	source ViewSource
	logger Logger

	mu    sync.Mutex
	cache map[viewKey]*ViewDefinition
}

// NewViewResolver creates a resolver backed by source.
func NewViewResolver(source ViewSource, logger Logger) *ViewResolver {
	return &ViewResolver{
		source: source,
		logger: loggerOrDiscard(logger),
		cache:  make(map[viewKey]*ViewDefinition),
	}
}

// Resolve returns the view named viewName owned by entityName.
func (r *ViewResolver) Resolve(ctx context.Context, viewName, entityName string) (*ViewDefinition, error) {
	key := viewKey{name: viewName, entity: entityName}

	r.mu.Lock()
	cached, ok := r.cache[key]
	r.mu.Unlock()
	if ok {
		return cached, nil
	}

	var found *record.ViewRecord
	for _, kind := range searchOrder {
		view, err := r.source.FindView(ctx, kind, viewName, entityName)
		if err != nil {
			return nil, &RetrievalError{
				Entity: entityName,
				Cause:  fmt.Errorf("lookup of %s view %q: %w", kind, viewName, err),
			}
		}
		if view != nil {
			found = view
			break
		}
		loggerFrom(ctx, r.logger).Debug("view not found in store", "kind", string(kind))
	}
	if found == nil {
		return nil, &NotFoundError{View: viewName, Entity: entityName}
	}

	def, err := r.definition(found, viewName, entityName)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.cache[key]; ok {
		return existing, nil
	}
	r.cache[key] = def

	loggerFrom(ctx, r.logger).Debug("resolved view",
		"kind", string(def.Kind),
		"id", def.ID,
		"columns", len(def.Columns),
	)
	return def, nil
}

func (r *ViewResolver) definition(view *record.ViewRecord, viewName, entityName string) (*ViewDefinition, error) {
	malformed := func(reason string, cause error) error {
		return &MalformedDefinitionError{View: viewName, Entity: entityName, Kind: view.Kind, Reason: reason, Cause: cause}
	}

	if strings.TrimSpace(view.FetchXML) == "" {
		return nil, malformed("view has no query definition", nil)
	}

	def := &ViewDefinition{
		Name:     viewName,
		Entity:   entityName,
		Kind:     view.Kind,
		ID:       view.ID,
		FetchXML: view.FetchXML,
	}

	if strings.TrimSpace(view.LayoutXML) == "" {
		return def, nil
	}

	columns, err := layoutColumns(view.LayoutXML)
	if err != nil {
		return nil, malformed("layout definition is not valid xml", err)
	}
	if len(columns) == 0 {
		return nil, malformed("layout definition has no columns", nil)
	}
	def.Columns = columns
	def.HasLayout = true
	return def, nil
}

// layoutColumns returns the name attribute of every cell element in
// document order, without duplicates.
func layoutColumns(layoutXML string) ([]string, error) {
	dec := xml.NewDecoder(strings.NewReader(layoutXML))

	var columns []string
	seen := make(map[string]struct{})
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return columns, nil
		}
		if err != nil {
			return nil, err
		}
		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "cell" {
			continue
		}
		for _, attr := range start.Attr {
			if attr.Name.Local != "name" || attr.Value == "" {
				continue
			}
			if _, dup := seen[attr.Value]; !dup {
				seen[attr.Value] = struct{}{}
				columns = append(columns, attr.Value)
			}
		}
	}
}
