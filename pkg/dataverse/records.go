package dataverse

import (
	"bytes"
	"context"
	"encoding/json"
	"net/url"
	"strings"
	"time"

	"mercator-hq/viewexport/pkg/record"
)

// Annotation suffixes returned with Prefer: odata.include-annotations="*".
const (
	annotationFormatted  = "OData.Community.Display.V1.FormattedValue"
	annotationLookupType = "Microsoft.Dynamics.CRM.lookuplogicalname"
)

// RetrievePage runs a FetchXML query against the entity set of entity and
// decodes the returned rows. The fetch document must already carry its
// paging attributes. types, when not nil, drives the value variant of each
// attribute; without it the JSON kind decides. The page reports the
// morerecords annotation when the service sends it.
func (c *Client) RetrievePage(ctx context.Context, entity, fetchXML string, types record.TypeResolver) (record.Page, error) {
	def, err := c.entity(ctx, entity)
	if err != nil {
		return record.Page{}, err
	}

	query := url.Values{}
	query.Set("fetchXml", fetchXML)
	body, err := c.doRequest(ctx, "GET", def.EntitySetName, query, map[string]string{
		"Prefer": `odata.include-annotations="*"`,
	})
	if err != nil {
		return record.Page{}, err
	}

	var resp struct {
		Value []map[string]any `json:"value"`
		More  *bool            `json:"@Microsoft.Dynamics.CRM.morerecords"`
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&resp); err != nil {
		return record.Page{}, &ParseError{RawResponse: truncate(string(body), 512), Cause: err}
	}

	page := record.Page{
		Records: make([]record.RawRecord, 0, len(resp.Value)),
		More:    resp.More,
	}
	for _, row := range resp.Value {
		page.Records = append(page.Records, decodeRecord(row, def.PrimaryIDAttribute, types))
	}
	return page, nil
}

// decodeRecord folds a Web API row and its annotations into a RawRecord.
func decodeRecord(row map[string]any, primaryID string, types record.TypeResolver) record.RawRecord {
	annotations := make(map[string]map[string]any)
	for key, value := range row {
		base, suffix, ok := strings.Cut(key, "@")
		if !ok || base == "" {
			continue
		}
		if annotations[base] == nil {
			annotations[base] = make(map[string]any)
		}
		annotations[base][suffix] = value
	}

	rec := record.RawRecord{Attributes: make(map[string]record.Value, len(row))}
	for key, raw := range row {
		if strings.Contains(key, "@") {
			continue
		}
		name := attributeName(key)
		value := decodeValue(name, raw, annotations[key], types)
		rec.Attributes[name] = value

		if name == primaryID {
			if s, ok := raw.(string); ok {
				rec.ID = s
			}
		}
	}
	return rec
}

// attributeName maps a Web API property name to the logical attribute name:
// "_parentaccountid_value" becomes "parentaccountid" and linked entity
// columns "alias_x002e_name" become "alias.name".
func attributeName(key string) string {
	name := strings.ReplaceAll(key, "_x002e_", ".")
	alias, attr, linked := strings.Cut(name, ".")
	if !linked {
		attr = name
	}
	if strings.HasPrefix(attr, "_") && strings.HasSuffix(attr, "_value") && len(attr) > len("__value") {
		attr = attr[1 : len(attr)-len("_value")]
	}
	if linked {
		return alias + "." + attr
	}
	return attr
}

func decodeValue(name string, raw any, annotations map[string]any, types record.TypeResolver) record.Value {
	if raw == nil {
		return record.Null{}
	}

	formatted, _ := annotations[annotationFormatted].(string)
	if logical, ok := annotations[annotationLookupType].(string); ok {
		id, _ := raw.(string)
		return record.Reference{ID: id, LogicalName: logical, Name: formatted}
	}

	var (
		typ   record.AttributeType
		known bool
	)
	if types != nil {
		typ, known = types(name)
	}
	if known {
		if v, ok := decodeTyped(typ, raw, formatted); ok {
			return v
		}
	}
	return decodeUntyped(raw)
}

func decodeTyped(typ record.AttributeType, raw any, formatted string) (record.Value, bool) {
	switch {
	case typ.IsReference():
		if id, ok := raw.(string); ok {
			return record.Reference{ID: id, Name: formatted}, true
		}

	case typ.IsChoice():
		if n, ok := raw.(json.Number); ok {
			if code, err := n.Int64(); err == nil {
				return record.Choice(code), true
			}
		}

	case typ == record.TypeMultiSelectPicklist:
		if s, ok := raw.(string); ok {
			return parseChoices(s)
		}

	case typ.IsAmount():
		if n, ok := raw.(json.Number); ok {
			return record.Amount(n.String()), true
		}

	case typ.IsInteger():
		if n, ok := raw.(json.Number); ok {
			if i, err := n.Int64(); err == nil {
				return record.Integer(i), true
			}
			return record.Amount(n.String()), true
		}

	case typ == record.TypeBoolean:
		if b, ok := raw.(bool); ok {
			return record.Boolean(b), true
		}

	case typ == record.TypeDateTime:
		if s, ok := raw.(string); ok {
			if t, ok := parseTimestamp(s); ok {
				return record.DateTime(t), true
			}
		}

	default:
		if s, ok := raw.(string); ok {
			return record.Text(s), true
		}
	}
	return nil, false
}

func decodeUntyped(raw any) record.Value {
	switch v := raw.(type) {
	case string:
		if strings.Contains(v, "T") {
			if t, err := time.Parse(time.RFC3339, v); err == nil {
				return record.DateTime(t.UTC())
			}
		}
		return record.Text(v)
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return record.Integer(i)
		}
		return record.Amount(v.String())
	case bool:
		return record.Boolean(v)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return record.Null{}
		}
		return record.Text(b)
	}
}

// parseTimestamp accepts the two shapes the Web API uses for date-time
// columns: full RFC 3339 timestamps and bare dates for date-only behavior.
func parseTimestamp(s string) (time.Time, bool) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), true
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// parseChoices decodes a multi-select value, sent as comma-separated codes.
func parseChoices(s string) (record.Value, bool) {
	if strings.TrimSpace(s) == "" {
		return record.Choices{}, true
	}
	parts := strings.Split(s, ",")
	codes := make(record.Choices, 0, len(parts))
	for _, p := range parts {
		n, err := json.Number(strings.TrimSpace(p)).Int64()
		if err != nil {
			return nil, false
		}
		codes = append(codes, int(n))
	}
	return codes, true
}
