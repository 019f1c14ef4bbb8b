package export

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"sync"
	"time"

	"mercator-hq/viewexport/pkg/record"
)

var (
	pageAttr  = regexp.MustCompile(`\spage="(\d+)"`)
	countAttr = regexp.MustCompile(`\scount="(\d+)"`)
)

var _ QueryService = (*fakeService)(nil)

// fakeService is an in-memory QueryService. Records are served in pages
// according to the paging attributes of the fetch document, each carrying
// a continuation flag unless omitMore is set.
type fakeService struct {
	mu sync.Mutex

	views   map[record.ViewKind]*record.ViewRecord
	viewErr error

	records  []record.RawRecord
	failPage int
	omitMore bool

	attrs   map[string][]record.AttributeMetadata
	attrErr error

	viewCalls    int
	attrCalls    map[string]int
	pageRequests []int
	fetchDocs    []string
}

func newFakeService() *fakeService {
	return &fakeService{
		views:     make(map[record.ViewKind]*record.ViewRecord),
		attrs:     make(map[string][]record.AttributeMetadata),
		attrCalls: make(map[string]int),
	}
}

func (f *fakeService) FindView(ctx context.Context, kind record.ViewKind, name, entity string) (*record.ViewRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.viewCalls++
	if f.viewErr != nil {
		return nil, f.viewErr
	}
	view, ok := f.views[kind]
	if !ok || view.Name != name || view.Entity != entity {
		return nil, nil
	}
	return view, nil
}

func (f *fakeService) RetrievePage(ctx context.Context, entity, fetchXML string, types record.TypeResolver) (record.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	pm := pageAttr.FindStringSubmatch(fetchXML)
	cm := countAttr.FindStringSubmatch(fetchXML)
	if pm == nil || cm == nil {
		return record.Page{}, fmt.Errorf("fetch document has no paging attributes: %s", fetchXML)
	}
	page, _ := strconv.Atoi(pm[1])
	count, _ := strconv.Atoi(cm[1])
	f.pageRequests = append(f.pageRequests, page)
	f.fetchDocs = append(f.fetchDocs, fetchXML)

	if page == f.failPage {
		return record.Page{}, errors.New("service unavailable")
	}

	start := min((page-1)*count, len(f.records))
	end := min(start+count, len(f.records))
	result := record.Page{Records: append([]record.RawRecord(nil), f.records[start:end]...)}
	if !f.omitMore {
		more := end < len(f.records)
		result.More = &more
	}
	return result, nil
}

func (f *fakeService) RetrieveAttributes(ctx context.Context, entity string) ([]record.AttributeMetadata, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attrCalls[entity]++
	if f.attrErr != nil {
		return nil, f.attrErr
	}
	return f.attrs[entity], nil
}

func isErr[T error](err error) bool {
	var target T
	return errors.As(err, &target)
}

// numberedRecords returns n records with ids r-1..r-n.
func numberedRecords(n int) []record.RawRecord {
	records := make([]record.RawRecord, n)
	for i := range records {
		id := fmt.Sprintf("r-%d", i+1)
		records[i] = record.RawRecord{
			ID: id,
			Attributes: map[string]record.Value{
				"accountid": record.Text(id),
				"index":     record.Integer(i + 1),
			},
		}
	}
	return records
}

type logEntry struct {
	level string
	msg   string
	args  []any
}

// recordingLogger captures log calls for assertions.
type recordingLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

func (l *recordingLogger) log(level, msg string, args []any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, logEntry{level: level, msg: msg, args: args})
}

func (l *recordingLogger) Debug(msg string, args ...any) { l.log("debug", msg, args) }
func (l *recordingLogger) Info(msg string, args ...any)  { l.log("info", msg, args) }
func (l *recordingLogger) Warn(msg string, args ...any)  { l.log("warn", msg, args) }
func (l *recordingLogger) Error(msg string, args ...any) { l.log("error", msg, args) }

func (l *recordingLogger) count(level string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, e := range l.entries {
		if e.level == level {
			n++
		}
	}
	return n
}

// recordingMetrics captures metric observations.
type recordingMetrics struct {
	mu        sync.Mutex
	pages     []int
	runs      []string
	fallbacks int
}

func (m *recordingMetrics) ObservePage(entity string, records int, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pages = append(m.pages, records)
}

func (m *recordingMetrics) ObserveRun(entity, status string, records int, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, status)
}

func (m *recordingMetrics) LabelFallback(entity string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fallbacks++
}
