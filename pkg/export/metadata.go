package export

import (
	"context"
	"sync"

	"mercator-hq/viewexport/pkg/record"
)

// MetadataCache serves attribute metadata per entity. The first lookup for
// an entity fetches all of its attributes at once; later lookups never go
// to the source again.
type MetadataCache struct {
	source MetadataSource
	logger Logger

	mu       sync.Mutex
	entities map[string]map[string]*record.AttributeMetadata
}

// NewMetadataCache creates a cache backed by source.
func NewMetadataCache(source MetadataSource, logger Logger) *MetadataCache {
	return &MetadataCache{
		source:   source,
		logger:   loggerOrDiscard(logger),
		entities: make(map[string]map[string]*record.AttributeMetadata),
	}
}

// AttributeMetadata returns the metadata of one attribute. Unknown
// attributes are reported as absent.
func (c *MetadataCache) AttributeMetadata(ctx context.Context, entity, attribute string) (*record.AttributeMetadata, bool) {
	meta, ok := c.load(ctx, entity)[attribute]
	return meta, ok
}

// AttributeType returns the attribute type of one attribute.
func (c *MetadataCache) AttributeType(ctx context.Context, entity, attribute string) (record.AttributeType, bool) {
	meta, ok := c.AttributeMetadata(ctx, entity, attribute)
	if !ok {
		return "", false
	}
	return meta.Type, true
}

// OptionLabel returns the display label of a choice code.
func (c *MetadataCache) OptionLabel(ctx context.Context, entity, attribute string, code int) (string, bool) {
	meta, ok := c.AttributeMetadata(ctx, entity, attribute)
	if !ok {
		return "", false
	}
	return meta.Label(code)
}

// Resolver returns a type lookup bound to entity, for record decoding.
func (c *MetadataCache) Resolver(ctx context.Context, entity string) record.TypeResolver {
	attrs := c.load(ctx, entity)
	return func(attribute string) (record.AttributeType, bool) {
		meta, ok := attrs[attribute]
		if !ok {
			return "", false
		}
		return meta.Type, true
	}
}

// load returns the attribute map of entity, fetching it on first use. A
// failed fetch is logged and cached as an empty map, so formatting degrades
// to raw values instead of failing the export.
func (c *MetadataCache) load(ctx context.Context, entity string) map[string]*record.AttributeMetadata {
	c.mu.Lock()
	attrs, ok := c.entities[entity]
	c.mu.Unlock()
	if ok {
		return attrs
	}

	fetched, err := c.source.RetrieveAttributes(ctx, entity)
	attrs = make(map[string]*record.AttributeMetadata, len(fetched))
	if err != nil {
		loggerFrom(ctx, c.logger).Warn("failed to retrieve attribute metadata, values will use raw formatting",
			"error", err,
		)
		if ctx.Err() != nil {
			// A cancelled run must not poison the cache for later runs.
			return attrs
		}
	}
	for i := range fetched {
		attrs[fetched[i].LogicalName] = &fetched[i]
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.entities[entity]; ok {
		return existing
	}
	c.entities[entity] = attrs
	loggerFrom(ctx, c.logger).Debug("cached attribute metadata", "attributes", len(attrs))
	return attrs
}
