package export

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"

	"mercator-hq/viewexport/pkg/record"
)

const (
	testFetch  = `<fetch version="1.0" mapping="logical"><entity name="account"><attribute name="name"/></entity></fetch>`
	testLayout = `<grid name="resultset" object="1" jump="name" select="1" icon="1" preview="1">
  <row name="result" id="accountid">
    <cell name="name" width="300"/>
    <cell name="telephone1" width="100"/>
    <cell name="primarycontactid" width="150"/>
  </row>
</grid>`
)

func systemView(name string) *record.ViewRecord {
	return &record.ViewRecord{ID: "sq-1", Kind: record.SystemView, Name: name, Entity: "account", FetchXML: testFetch, LayoutXML: testLayout}
}

func personalView(name string) *record.ViewRecord {
	return &record.ViewRecord{
		ID:        "uq-1",
		Kind:      record.PersonalView,
		Name:      name,
		Entity:    "account",
		FetchXML:  testFetch,
		LayoutXML: `<grid><row><cell name="name"/></row></grid>`,
	}
}

func TestViewResolver_SystemViewWins(t *testing.T) {
	svc := newFakeService()
	svc.views[record.SystemView] = systemView("Active Accounts")
	svc.views[record.PersonalView] = personalView("Active Accounts")

	def, err := NewViewResolver(svc, nil).Resolve(context.Background(), "Active Accounts", "account")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if def.Kind != record.SystemView || def.ID != "sq-1" {
		t.Errorf("expected the system view, got %s %s", def.Kind, def.ID)
	}
	if want := []string{"name", "telephone1", "primarycontactid"}; !reflect.DeepEqual(def.Columns, want) {
		t.Errorf("Columns = %v, want %v", def.Columns, want)
	}
	if !def.HasLayout {
		t.Error("HasLayout should be set")
	}
}

func TestViewResolver_PersonalFallback(t *testing.T) {
	svc := newFakeService()
	svc.views[record.PersonalView] = personalView("My Accounts")

	def, err := NewViewResolver(svc, nil).Resolve(context.Background(), "My Accounts", "account")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if def.Kind != record.PersonalView {
		t.Errorf("Kind = %s, want personal", def.Kind)
	}
	if svc.viewCalls != 2 {
		t.Errorf("expected 2 store lookups, got %d", svc.viewCalls)
	}
}

func TestViewResolver_NotFound(t *testing.T) {
	svc := newFakeService()
	_, err := NewViewResolver(svc, nil).Resolve(context.Background(), "Missing", "account")

	var notFound *NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected *NotFoundError, got %T: %v", err, err)
	}
	if notFound.View != "Missing" || notFound.Entity != "account" {
		t.Errorf("unexpected error fields %+v", notFound)
	}
}

func TestViewResolver_LookupFailure(t *testing.T) {
	svc := newFakeService()
	svc.viewErr = errors.New("connection reset")

	_, err := NewViewResolver(svc, nil).Resolve(context.Background(), "Any", "account")
	var retrievalErr *RetrievalError
	if !errors.As(err, &retrievalErr) {
		t.Fatalf("expected *RetrievalError, got %T: %v", err, err)
	}
}

func TestViewResolver_Malformed(t *testing.T) {
	tests := []struct {
		name   string
		view   record.ViewRecord
		reason string
	}{
		{
			name:   "empty fetch xml",
			view:   record.ViewRecord{FetchXML: "  ", LayoutXML: testLayout},
			reason: "view has no query definition",
		},
		{
			name:   "layout without cells",
			view:   record.ViewRecord{FetchXML: testFetch, LayoutXML: `<grid><row/></grid>`},
			reason: "layout definition has no columns",
		},
		{
			name:   "unparseable layout",
			view:   record.ViewRecord{FetchXML: testFetch, LayoutXML: `<grid><row><cell name="a"></grid>`},
			reason: "layout definition is not valid xml",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			view := tt.view
			view.Kind = record.SystemView
			view.Name = "Broken"
			view.Entity = "account"

			svc := newFakeService()
			svc.views[record.SystemView] = &view

			_, err := NewViewResolver(svc, nil).Resolve(context.Background(), "Broken", "account")
			var malformed *MalformedDefinitionError
			if !errors.As(err, &malformed) {
				t.Fatalf("expected *MalformedDefinitionError, got %T: %v", err, err)
			}
			if malformed.Reason != tt.reason {
				t.Errorf("Reason = %q, want %q", malformed.Reason, tt.reason)
			}
			if malformed.Kind != record.SystemView {
				t.Errorf("Kind = %q", malformed.Kind)
			}
		})
	}
}

func TestViewResolver_MissingLayout(t *testing.T) {
	svc := newFakeService()
	svc.views[record.SystemView] = &record.ViewRecord{Kind: record.SystemView, Name: "Bare", Entity: "account", FetchXML: testFetch}

	def, err := NewViewResolver(svc, nil).Resolve(context.Background(), "Bare", "account")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if def.HasLayout || len(def.Columns) != 0 {
		t.Errorf("expected no layout, got %+v", def)
	}
}

func TestViewResolver_Cache(t *testing.T) {
	svc := newFakeService()
	svc.views[record.SystemView] = systemView("Active Accounts")
	resolver := NewViewResolver(svc, nil)

	var wg sync.WaitGroup
	defs := make([]*ViewDefinition, 8)
	for i := range defs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			def, err := resolver.Resolve(context.Background(), "Active Accounts", "account")
			if err != nil {
				t.Errorf("Resolve() error = %v", err)
				return
			}
			defs[i] = def
		}(i)
	}
	wg.Wait()

	for _, def := range defs[1:] {
		if def != defs[0] {
			t.Fatal("concurrent resolutions returned different definitions")
		}
	}

	calls := svc.viewCalls
	if _, err := resolver.Resolve(context.Background(), "Active Accounts", "account"); err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if svc.viewCalls != calls {
		t.Errorf("cached resolution queried the store again")
	}
}

func TestLayoutColumns(t *testing.T) {
	tests := []struct {
		name   string
		layout string
		want   []string
	}{
		{
			name:   "document order",
			layout: `<grid><row><cell name="b"/><cell name="a"/><cell name="c"/></row></grid>`,
			want:   []string{"b", "a", "c"},
		},
		{
			name:   "duplicates dropped",
			layout: `<grid><row><cell name="a"/><cell name="b"/><cell name="a"/></row></grid>`,
			want:   []string{"a", "b"},
		},
		{
			name:   "linked entity columns",
			layout: `<grid><row><cell name="name"/><cell name="contact.fullname"/></row></grid>`,
			want:   []string{"name", "contact.fullname"},
		},
		{
			name:   "cells without names ignored",
			layout: `<grid><row><cell width="10"/><cell name="a"/></row></grid>`,
			want:   []string{"a"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := layoutColumns(tt.layout)
			if err != nil {
				t.Fatalf("layoutColumns() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("layoutColumns() = %v, want %v", got, tt.want)
			}
		})
	}
}
