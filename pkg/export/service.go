package export

import (
	"context"

	"mercator-hq/viewexport/pkg/record"
)

// ViewSource looks up views in one of the two view stores. FindView returns
// nil without error when the store has no matching view.
type ViewSource interface {
	FindView(ctx context.Context, kind record.ViewKind, name, entity string) (*record.ViewRecord, error)
}

// PageSource runs one paged FetchXML query.
type PageSource interface {
	RetrievePage(ctx context.Context, entity, fetchXML string, types record.TypeResolver) (record.Page, error)
}

// MetadataSource returns the attribute metadata of an entity.
type MetadataSource interface {
	RetrieveAttributes(ctx context.Context, entity string) ([]record.AttributeMetadata, error)
}

// QueryService is the connected, query-capable handle the pipeline runs
// against. *dataverse.Client implements it.
type QueryService interface {
	ViewSource
	PageSource
	MetadataSource
}
