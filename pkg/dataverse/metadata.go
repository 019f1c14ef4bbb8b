package dataverse

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"mercator-hq/viewexport/pkg/record"
)

type entityDefinition struct {
	LogicalName        string `json:"LogicalName"`
	EntitySetName      string `json:"EntitySetName"`
	PrimaryIDAttribute string `json:"PrimaryIdAttribute"`
}

type attributeRow struct {
	LogicalName       string `json:"LogicalName"`
	AttributeType     string `json:"AttributeType"`
	AttributeTypeName *struct {
		Value string `json:"Value"`
	} `json:"AttributeTypeName"`
}

type dateTimeRow struct {
	LogicalName      string `json:"LogicalName"`
	Format           string `json:"Format"`
	DateTimeBehavior *struct {
		Value string `json:"Value"`
	} `json:"DateTimeBehavior"`
}

type optionRow struct {
	LogicalName     string     `json:"LogicalName"`
	OptionSet       *optionSet `json:"OptionSet"`
	GlobalOptionSet *optionSet `json:"GlobalOptionSet"`
}

type optionSet struct {
	Options []struct {
		Value json.Number `json:"Value"`
		Label label       `json:"Label"`
	} `json:"Options"`
}

type label struct {
	UserLocalizedLabel *struct {
		Label string `json:"Label"`
	} `json:"UserLocalizedLabel"`
	LocalizedLabels []struct {
		Label        string `json:"Label"`
		LanguageCode int    `json:"LanguageCode"`
	} `json:"LocalizedLabels"`
}

func (l label) text() string {
	if l.UserLocalizedLabel != nil && l.UserLocalizedLabel.Label != "" {
		return l.UserLocalizedLabel.Label
	}
	for _, ll := range l.LocalizedLabels {
		if ll.Label != "" {
			return ll.Label
		}
	}
	return ""
}

// optionCasts lists the metadata types that carry option sets.
var optionCasts = []string{
	"PicklistAttributeMetadata",
	"StateAttributeMetadata",
	"StatusAttributeMetadata",
	"MultiSelectPicklistAttributeMetadata",
}

// entity returns the cached definition of an entity, fetching it on first use.
func (c *Client) entity(ctx context.Context, logicalName string) (*entityDefinition, error) {
	c.entitiesMu.Lock()
	def, ok := c.entities[logicalName]
	c.entitiesMu.Unlock()
	if ok {
		return def, nil
	}

	query := url.Values{}
	query.Set("$select", "LogicalName,EntitySetName,PrimaryIdAttribute")

	var fetched entityDefinition
	if err := c.getJSON(ctx, entityPath(logicalName), query, &fetched); err != nil {
		return nil, err
	}
	if fetched.EntitySetName == "" {
		return nil, &ParseError{Cause: fmt.Errorf("entity %q has no entity set name", logicalName)}
	}

	c.entitiesMu.Lock()
	defer c.entitiesMu.Unlock()
	if existing, ok := c.entities[logicalName]; ok {
		return existing, nil
	}
	c.entities[logicalName] = &fetched
	return &fetched, nil
}

// RetrieveAttributes returns the published attribute metadata of an entity,
// with date-only flags and option labels filled in.
func (c *Client) RetrieveAttributes(ctx context.Context, entity string) ([]record.AttributeMetadata, error) {
	base := entityPath(entity) + "/Attributes"

	query := url.Values{}
	query.Set("$select", "LogicalName,AttributeType,AttributeTypeName")
	var attrs struct {
		Value []attributeRow `json:"value"`
	}
	if err := c.getJSON(ctx, base, query, &attrs); err != nil {
		return nil, err
	}

	result := make([]record.AttributeMetadata, 0, len(attrs.Value))
	index := make(map[string]int, len(attrs.Value))
	for _, a := range attrs.Value {
		typ := record.AttributeType(a.AttributeType)
		if a.AttributeTypeName != nil && a.AttributeTypeName.Value == "MultiSelectPicklistType" {
			typ = record.TypeMultiSelectPicklist
		}
		index[a.LogicalName] = len(result)
		result = append(result, record.AttributeMetadata{LogicalName: a.LogicalName, Type: typ})
	}

	query = url.Values{}
	query.Set("$select", "LogicalName,Format,DateTimeBehavior")
	var dates struct {
		Value []dateTimeRow `json:"value"`
	}
	if err := c.getJSON(ctx, base+"/Microsoft.Dynamics.CRM.DateTimeAttributeMetadata", query, &dates); err != nil {
		return nil, err
	}
	for _, d := range dates.Value {
		i, ok := index[d.LogicalName]
		if !ok {
			continue
		}
		dateOnly := d.Format == "DateOnly"
		if d.DateTimeBehavior != nil && d.DateTimeBehavior.Value == "DateOnly" {
			dateOnly = true
		}
		result[i].DateOnly = dateOnly
	}

	for _, cast := range optionCasts {
		query = url.Values{}
		query.Set("$select", "LogicalName")
		query.Set("$expand", "OptionSet($select=Options),GlobalOptionSet($select=Options)")
		var opts struct {
			Value []optionRow `json:"value"`
		}
		if err := c.getJSON(ctx, base+"/Microsoft.Dynamics.CRM."+cast, query, &opts); err != nil {
			return nil, err
		}
		for _, o := range opts.Value {
			i, ok := index[o.LogicalName]
			if !ok {
				continue
			}
			result[i].Options = mergeOptions(result[i].Options, o.OptionSet, o.GlobalOptionSet)
		}
	}

	c.logger.DebugContext(ctx, "retrieved attribute metadata", "entity", entity, "attributes", len(result))
	return result, nil
}

func mergeOptions(dst map[int]string, sets ...*optionSet) map[int]string {
	for _, set := range sets {
		if set == nil {
			continue
		}
		for _, opt := range set.Options {
			code, err := opt.Value.Int64()
			if err != nil {
				continue
			}
			if dst == nil {
				dst = make(map[int]string)
			}
			if _, exists := dst[int(code)]; !exists {
				dst[int(code)] = opt.Label.text()
			}
		}
	}
	return dst
}

func entityPath(logicalName string) string {
	return "EntityDefinitions(LogicalName=" + quoteOData(logicalName) + ")"
}
