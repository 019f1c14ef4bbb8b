package export

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

var errNoFetchRoot = errors.New("query definition has no <fetch> root element")

// pagingAttributes are replaced on the fetch element for every page.
var pagingAttributes = map[string]bool{
	"count":         true,
	"page":          true,
	"paging-cookie": true,
	"top":           true,
}

// fetchRoot is the root element of a FetchXML document and its byte range.
type fetchRoot struct {
	start       xml.StartElement
	offset, end int
	selfClosing bool
}

// findFetchRoot locates the root fetch element. Raw tokens are used so
// prefixed names keep their prefix instead of the resolved namespace.
func findFetchRoot(fetchXML string) (*fetchRoot, error) {
	dec := xml.NewDecoder(strings.NewReader(fetchXML))
	for {
		offset := int(dec.InputOffset())
		tok, err := dec.RawToken()
		if errors.Is(err, io.EOF) {
			return nil, errNoFetchRoot
		}
		if err != nil {
			return nil, fmt.Errorf("invalid fetch xml: %w", err)
		}

		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		if start.Name.Local != "fetch" {
			return nil, errNoFetchRoot
		}

		end := int(dec.InputOffset())
		return &fetchRoot{
			start:       start,
			offset:      offset,
			end:         end,
			selfClosing: strings.HasSuffix(fetchXML[offset:end], "/>"),
		}, nil
	}
}

// withPaging rewrites the root fetch element of a FetchXML document so it
// requests the given page. The rest of the document is kept byte for byte.
func withPaging(fetchXML string, page, count int) (string, error) {
	root, err := findFetchRoot(fetchXML)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString(fetchXML[:root.offset])
	b.WriteString("<")
	b.WriteString(qualifiedName(root.start.Name))
	for _, attr := range root.start.Attr {
		if attr.Name.Space == "" && pagingAttributes[attr.Name.Local] {
			continue
		}
		writeAttr(&b, qualifiedName(attr.Name), attr.Value)
	}
	writeAttr(&b, "count", strconv.Itoa(count))
	writeAttr(&b, "page", strconv.Itoa(page))
	if root.selfClosing {
		b.WriteString("/>")
	} else {
		b.WriteString(">")
	}
	b.WriteString(fetchXML[root.end:])
	return b.String(), nil
}

// fetchLimit returns the row limit the query definition sets itself: top,
// or count when the definition does not name a page. Zero means none.
func fetchLimit(fetchXML string) (int, error) {
	root, err := findFetchRoot(fetchXML)
	if err != nil {
		return 0, err
	}

	var top, count string
	hasPage := false
	for _, attr := range root.start.Attr {
		if attr.Name.Space != "" {
			continue
		}
		switch attr.Name.Local {
		case "top":
			top = attr.Value
		case "count":
			count = attr.Value
		case "page":
			hasPage = true
		}
	}

	raw, field := top, "top"
	if raw == "" && !hasPage {
		raw, field = count, "count"
	}
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s %q on <fetch>", field, raw)
	}
	return n, nil
}

func qualifiedName(name xml.Name) string {
	if name.Space == "" {
		return name.Local
	}
	return name.Space + ":" + name.Local
}

func writeAttr(b *strings.Builder, name, value string) {
	b.WriteString(" ")
	b.WriteString(name)
	b.WriteString(`="`)
	_ = xml.EscapeText(b, []byte(value))
	b.WriteString(`"`)
}
