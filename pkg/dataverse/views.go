package dataverse

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"mercator-hq/viewexport/pkg/record"
)

type viewStore struct {
	entitySet string
	idField   string
}

var viewStores = map[record.ViewKind]viewStore{
	record.SystemView:   {entitySet: "savedqueries", idField: "savedqueryid"},
	record.PersonalView: {entitySet: "userqueries", idField: "userqueryid"},
}

type viewRow struct {
	SavedQueryID     string `json:"savedqueryid"`
	UserQueryID      string `json:"userqueryid"`
	Name             string `json:"name"`
	FetchXML         string `json:"fetchxml"`
	LayoutXML        string `json:"layoutxml"`
	ReturnedTypeCode string `json:"returnedtypecode"`
}

// FindView looks up a view by exact name and owning entity in one view
// store. It returns nil without error when no view matches.
func (c *Client) FindView(ctx context.Context, kind record.ViewKind, name, entity string) (*record.ViewRecord, error) {
	store, ok := viewStores[kind]
	if !ok {
		return nil, fmt.Errorf("unknown view kind %q", kind)
	}

	query := url.Values{}
	query.Set("$select", strings.Join([]string{store.idField, "name", "fetchxml", "layoutxml", "returnedtypecode"}, ","))
	query.Set("$filter", fmt.Sprintf("name eq %s and returnedtypecode eq %s", quoteOData(name), quoteOData(entity)))
	query.Set("$top", "1")

	var resp struct {
		Value []viewRow `json:"value"`
	}
	if err := c.getJSON(ctx, store.entitySet, query, &resp); err != nil {
		return nil, err
	}
	if len(resp.Value) == 0 {
		return nil, nil
	}

	row := resp.Value[0]
	id := row.SavedQueryID
	if kind == record.PersonalView {
		id = row.UserQueryID
	}
	return &record.ViewRecord{
		ID:        id,
		Kind:      kind,
		Name:      row.Name,
		Entity:    row.ReturnedTypeCode,
		FetchXML:  row.FetchXML,
		LayoutXML: row.LayoutXML,
	}, nil
}

// quoteOData quotes a string literal for a $filter expression.
func quoteOData(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
