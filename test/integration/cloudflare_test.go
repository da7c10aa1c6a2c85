package integration

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"

	logrtesting "github.com/go-logr/logr/testing"
	"github.com/google/uuid"

	"github.com/yuriy-kovalchuk/yk-cloudflare-manager/internal/dns"
	"github.com/yuriy-kovalchuk/yk-cloudflare-manager/internal/dns/cloudflare"
	"github.com/yuriy-kovalchuk/yk-cloudflare-manager/internal/reconcile"
)

const testToken = "test-token"

// fakeCloudflare is a minimal in-memory Cloudflare v4 API for testing.
type fakeCloudflare struct {
	mu        sync.Mutex
	zones     []dns.Zone
	records   map[string][]dns.Record   // zone id -> records
	pageRules map[string][]dns.PageRule // zone id -> rules
	calls     []string                  // tracks endpoint calls in order
}

func newFakeCloudflare() *fakeCloudflare {
	return &fakeCloudflare{
		records:   map[string][]dns.Record{},
		pageRules: map[string][]dns.PageRule{},
	}
}

func newID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

func (f *fakeCloudflare) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.calls = append(f.calls, r.Method+" "+r.URL.Path)
	f.mu.Unlock()

	if r.Header.Get("Authorization") != "Bearer "+testToken {
		writeError(w, http.StatusForbidden, 9109, "Invalid access token")
		return
	}

	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/client/v4/"), "/")
	switch {
	case len(parts) == 1 && parts[0] == "zones":
		f.handleZones(w, r)
	case len(parts) == 3 && parts[0] == "zones" && parts[2] == "dns_records":
		f.handleRecords(w, r, parts[1])
	case len(parts) == 4 && parts[0] == "zones" && parts[2] == "dns_records" && parts[3] == "import":
		f.handleImport(w, r, parts[1])
	case len(parts) == 3 && parts[0] == "zones" && parts[2] == "pagerules":
		f.handlePageRules(w, r, parts[1])
	case len(parts) == 4 && parts[0] == "zones" && parts[2] == "pagerules":
		f.handlePageRule(w, r, parts[1], parts[3])
	default:
		writeError(w, http.StatusNotFound, 7003, "Could not route to "+r.URL.Path)
	}
}

func writeResult(w http.ResponseWriter, result any, info map[string]int) {
	body := map[string]any{
		"success":  true,
		"errors":   []any{},
		"messages": []any{},
		"result":   result,
	}
	if info != nil {
		body["result_info"] = info
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success":  false,
		"errors":   []map[string]any{{"code": code, "message": msg}},
		"messages": []any{},
		"result":   nil,
	})
}

// page slices items according to the page and per_page query parameters.
func page[T any](r *http.Request, items []T) ([]T, map[string]int) {
	n, _ := strconv.Atoi(r.URL.Query().Get("page"))
	size, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	if n < 1 {
		n = 1
	}
	if size < 1 {
		size = 20
	}
	total := (len(items) + size - 1) / size
	start := min((n-1)*size, len(items))
	end := min(start+size, len(items))
	out := append([]T{}, items[start:end]...)
	return out, map[string]int{
		"page":        n,
		"per_page":    size,
		"count":       len(out),
		"total_count": len(items),
		"total_pages": total,
	}
}

func (f *fakeCloudflare) handleZones(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch r.Method {
	case http.MethodGet:
		result, info := page(r, f.zones)
		writeResult(w, result, info)
	case http.MethodPost:
		var body struct {
			Name    string `json:"name"`
			Account struct {
				ID string `json:"id"`
			} `json:"account"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Name == "" {
			writeError(w, http.StatusBadRequest, 1001, "Invalid zone name")
			return
		}
		zone := dns.Zone{ID: newID(), Name: body.Name, Status: "pending"}
		f.zones = append(f.zones, zone)
		writeResult(w, zone, nil)
	default:
		writeError(w, http.StatusMethodNotAllowed, 10000, "method not allowed")
	}
}

func (f *fakeCloudflare) handleRecords(w http.ResponseWriter, r *http.Request, zoneID string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch r.Method {
	case http.MethodGet:
		result, info := page(r, f.records[zoneID])
		writeResult(w, result, info)
	case http.MethodPost:
		var params dns.RecordParams
		if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
			writeError(w, http.StatusBadRequest, 9207, "Request body is invalid")
			return
		}
		rec := dns.Record{
			ID:       newID(),
			ZoneID:   zoneID,
			Name:     params.Name,
			Type:     params.Type,
			TTL:      params.TTL,
			Content:  params.Content,
			Data:     params.Data,
			Priority: params.Priority,
			Proxied:  params.Proxied,
			Comment:  params.Comment,
			Tags:     params.Tags,
		}
		f.records[zoneID] = append(f.records[zoneID], rec)
		writeResult(w, rec, nil)
	default:
		writeError(w, http.StatusMethodNotAllowed, 10000, "method not allowed")
	}
}

// handleImport counts one record per non-comment line of the uploaded file.
func (f *fakeCloudflare) handleImport(w http.ResponseWriter, r *http.Request, zoneID string) {
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, 1000, "missing file")
		return
	}
	defer file.Close()

	parsed, added := 0, 0
	sc := bufio.NewScanner(file)
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) < 5 || strings.HasPrefix(fields[0], ";") {
			continue
		}
		parsed++
		ttl, _ := strconv.Atoi(fields[1])
		rec := dns.Record{
			ID:      newID(),
			ZoneID:  zoneID,
			Name:    strings.TrimSuffix(fields[0], "."),
			Type:    fields[3],
			TTL:     ttl,
			Content: fields[4],
		}
		f.mu.Lock()
		f.records[zoneID] = append(f.records[zoneID], rec)
		f.mu.Unlock()
		added++
	}
	f.mu.Lock()
	f.calls = append(f.calls, "imported "+header.Filename)
	f.mu.Unlock()
	writeResult(w, map[string]int{"recs_added": added, "total_records_parsed": parsed}, nil)
}

func (f *fakeCloudflare) handlePageRules(w http.ResponseWriter, r *http.Request, zoneID string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch r.Method {
	case http.MethodGet:
		writeResult(w, append([]dns.PageRule{}, f.pageRules[zoneID]...), nil)
	case http.MethodPost:
		var params dns.PageRuleParams
		if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
			writeError(w, http.StatusBadRequest, 1004, "Page Rule validation failed")
			return
		}
		rule := dns.PageRule{ID: newID(), Targets: params.Targets, Actions: params.Actions, Status: params.Status, Priority: params.Priority}
		f.pageRules[zoneID] = append(f.pageRules[zoneID], rule)
		writeResult(w, rule, nil)
	default:
		writeError(w, http.StatusMethodNotAllowed, 10000, "method not allowed")
	}
}

func (f *fakeCloudflare) handlePageRule(w http.ResponseWriter, r *http.Request, zoneID, id string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if r.Method != http.MethodPut {
		writeError(w, http.StatusMethodNotAllowed, 10000, "method not allowed")
		return
	}
	var params dns.PageRuleParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		writeError(w, http.StatusBadRequest, 1004, "Page Rule validation failed")
		return
	}
	rules := f.pageRules[zoneID]
	for i := range rules {
		if rules[i].ID == id {
			rules[i] = dns.PageRule{ID: id, Targets: params.Targets, Actions: params.Actions, Status: params.Status, Priority: params.Priority}
			writeResult(w, rules[i], nil)
			return
		}
	}
	writeError(w, http.StatusNotFound, 1002, "Invalid Page Rule identifier")
}

func (f *fakeCloudflare) seedRecords(zoneID string, recs ...dns.Record) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records[zoneID] = append(f.records[zoneID], recs...)
}

func (f *fakeCloudflare) zoneRecords(zoneID string) []dns.Record {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]dns.Record{}, f.records[zoneID]...)
}

func (f *fakeCloudflare) zoneRules(zoneID string) []dns.PageRule {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]dns.PageRule{}, f.pageRules[zoneID]...)
}

func (f *fakeCloudflare) zoneCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.zones)
}

func (f *fakeCloudflare) countCalls(prefix string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

func setup(t *testing.T) (*fakeCloudflare, *reconcile.Reconciler) {
	t.Helper()
	fake := newFakeCloudflare()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	log := logrtesting.NewTestLogger(t)
	p, err := cloudflare.New(log, map[string]string{
		"base_url":  srv.URL + "/client/v4",
		"api_token": testToken,
	})
	if err != nil {
		t.Fatalf("failed to create provider: %v", err)
	}
	return fake, &reconcile.Reconciler{Provider: p, Log: log}
}

func TestRecordCreateThenMatch(t *testing.T) {
	fake, r := setup(t)
	ctx := context.Background()
	scope := dns.ZoneScope("z1")

	spec := reconcile.RecordSpec{
		Name:  "app.example.com",
		Type:  "A",
		TTL:   3600,
		Value: reconcile.RecordValue{Content: "10.0.0.1"},
	}

	out := r.Record(ctx, scope, spec)
	if !out.Success || !out.Changed || out.ResourceID == "" {
		t.Fatalf("expected a created record, got %+v", out)
	}
	id := out.ResourceID

	out = r.Record(ctx, scope, spec)
	if !out.Success || out.Changed {
		t.Fatalf("expected unchanged on second run, got %+v", out)
	}
	if out.ResourceID != id {
		t.Errorf("expected existing id %s, got %s", id, out.ResourceID)
	}
	if n := fake.countCalls("POST /client/v4/zones/z1/dns_records"); n != 1 {
		t.Errorf("expected 1 create call, got %d", n)
	}
}

func TestRecordPagination(t *testing.T) {
	fake, r := setup(t)
	recs := make([]dns.Record, 120)
	for i := range recs {
		recs[i] = dns.Record{ID: newID(), Name: "host" + strconv.Itoa(i) + ".example.com", Type: "A", TTL: 1, Content: "10.0.0.1"}
	}
	fake.seedRecords("z1", recs...)
	last := recs[119]

	out := r.Record(context.Background(), dns.ZoneScope("z1"), reconcile.RecordSpec{
		Name:  last.Name,
		Type:  "A",
		TTL:   1,
		Value: reconcile.RecordValue{Content: "10.0.0.1"},
	})
	if !out.Success || out.Changed || out.ResourceID != last.ID {
		t.Fatalf("expected match on the last page, got %+v", out)
	}
	if n := fake.countCalls("GET /client/v4/zones/z1/dns_records"); n != 3 {
		t.Errorf("expected 3 page requests, got %d", n)
	}
}

func TestRecordDifferentValueCreates(t *testing.T) {
	fake, r := setup(t)
	fake.seedRecords("z1", dns.Record{ID: "rec_123", Name: "app.example.com", Type: "A", TTL: 3600, Content: "10.0.0.1"})

	out := r.Record(context.Background(), dns.ZoneScope("z1"), reconcile.RecordSpec{
		Name:  "app.example.com",
		Type:  "A",
		TTL:   3600,
		Value: reconcile.RecordValue{Content: "10.0.0.2"},
	})
	if !out.Success || !out.Changed || out.ResourceID == "rec_123" {
		t.Fatalf("expected a new record, got %+v", out)
	}
	if len(fake.zoneRecords("z1")) != 2 {
		t.Errorf("expected 2 records in zone, got %d", len(fake.zoneRecords("z1")))
	}
}

func TestSRVRecordMatchesStructuredData(t *testing.T) {
	fake, r := setup(t)
	ctx := context.Background()
	scope := dns.ZoneScope("z1")

	spec := reconcile.RecordSpec{
		Name: "_sip._tcp.example.com",
		Type: "SRV",
		TTL:  1,
		Value: reconcile.RecordValue{Data: map[string]any{
			"priority": 10, "weight": 5, "port": 5060, "target": "sip.example.com",
		}},
	}

	if out := r.Record(ctx, scope, spec); !out.Success || !out.Changed {
		t.Fatalf("expected created, got %+v", out)
	}
	// The fake echoes data back through JSON, so numbers return as floats.
	if out := r.Record(ctx, scope, spec); !out.Success || out.Changed {
		t.Fatalf("expected match on second run, got %+v", out)
	}
	if n := fake.countCalls("POST "); n != 1 {
		t.Errorf("expected 1 create call, got %d", n)
	}
}

func TestZoneCreateThenMatch(t *testing.T) {
	fake, r := setup(t)
	ctx := context.Background()
	scope := dns.AccountScope("acc1")

	out := r.Zone(ctx, scope, reconcile.ZoneSpec{Name: "example.com"})
	if !out.Success || !out.Changed {
		t.Fatalf("expected created zone, got %+v", out)
	}
	out2 := r.Zone(ctx, scope, reconcile.ZoneSpec{Name: "Example.com."})
	if !out2.Success || out2.Changed || out2.ResourceID != out.ResourceID {
		t.Fatalf("expected existing zone %s, got %+v", out.ResourceID, out2)
	}
	if fake.zoneCount() != 1 {
		t.Errorf("expected 1 zone, got %d", fake.zoneCount())
	}
}

func forwardingRule(pattern, dest string) reconcile.PageRuleSpec {
	return reconcile.PageRuleSpec{
		Targets:  []dns.Target{{Target: "url", Constraint: dns.Constraint{Operator: "matches", Value: pattern}}},
		Actions:  []dns.Action{{ID: "forwarding_url", Value: map[string]any{"url": dest, "status_code": 301}}},
		Status:   "active",
		Priority: 1,
	}
}

func TestPageRuleUpdateKeepsID(t *testing.T) {
	fake, r := setup(t)
	ctx := context.Background()
	scope := dns.ZoneScope("z1")

	out := r.PageRule(ctx, scope, forwardingRule("example.com/*", "https://www.example.com/$1"))
	if !out.Success || !out.Changed {
		t.Fatalf("expected created rule, got %+v", out)
	}
	id := out.ResourceID

	out = r.PageRule(ctx, scope, forwardingRule("example.com/*", "https://www.example.com/$1"))
	if !out.Success || out.Changed {
		t.Fatalf("expected unchanged rule, got %+v", out)
	}

	out = r.PageRule(ctx, scope, forwardingRule("example.com/*", "https://new.example.com/$1"))
	if !out.Success || !out.Changed || out.ResourceID != id {
		t.Fatalf("expected rule %s updated in place, got %+v", id, out)
	}
	if n := fake.countCalls("PUT /client/v4/zones/z1/pagerules/" + id); n != 1 {
		t.Errorf("expected 1 update call, got %d", n)
	}
	if len(fake.zoneRules("z1")) != 1 {
		t.Errorf("expected 1 rule in zone, got %d", len(fake.zoneRules("z1")))
	}
	got := fake.zoneRules("z1")[0].Actions[0].Value.(map[string]any)["url"]
	if got != "https://new.example.com/$1" {
		t.Errorf("expected updated destination, got %v", got)
	}
}

func TestImportZoneFile(t *testing.T) {
	fake, r := setup(t)
	path := filepath.Join(t.TempDir(), "example.com.txt")
	content := "; exported zone\n" +
		"www.example.com. 3600 IN A 10.0.0.1\n" +
		"api.example.com. 3600 IN A 10.0.0.2\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	out := r.Import(context.Background(), dns.ZoneScope("z1"), reconcile.ImportSpec{Path: path})
	if !out.Success || !out.Changed || out.ResourceID != "" {
		t.Fatalf("expected changed import without id, got %+v", out)
	}
	if out.Message != "imported 2 of 2 records" {
		t.Errorf("unexpected message %q", out.Message)
	}
	if n := fake.countCalls("imported example.com.txt"); n != 1 {
		t.Errorf("expected one upload carrying the file name, got %d", n)
	}
	if len(fake.zoneRecords("z1")) != 2 {
		t.Errorf("expected 2 imported records, got %d", len(fake.zoneRecords("z1")))
	}
}

func TestRecordWithoutZoneFails(t *testing.T) {
	fake, r := setup(t)

	out := r.Record(context.Background(), dns.ZoneScope(""), reconcile.RecordSpec{
		Name: "a.example.com", Type: "A", TTL: 1, Value: reconcile.RecordValue{Content: "10.0.0.1"},
	})
	if out.Success || out.Message == "" {
		t.Fatalf("expected failure, got %+v", out)
	}
	if n := fake.countCalls(""); n != 0 {
		t.Errorf("expected no API calls, got %d", n)
	}
}

func TestBadTokenFailsLookup(t *testing.T) {
	fake := newFakeCloudflare()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	p, err := cloudflare.New(logrtesting.NewTestLogger(t), map[string]string{
		"base_url":  srv.URL + "/client/v4",
		"api_token": "wrong",
	})
	if err != nil {
		t.Fatal(err)
	}
	r := &reconcile.Reconciler{Provider: p, Log: logrtesting.NewTestLogger(t)}

	out := r.Zone(context.Background(), dns.AccountScope("acc1"), reconcile.ZoneSpec{Name: "example.com"})
	if out.Success {
		t.Fatal("expected failure with an invalid token")
	}
	if !strings.Contains(out.Message, "Invalid access token") {
		t.Errorf("expected API error in message, got %q", out.Message)
	}
	if n := fake.countCalls("POST "); n != 0 {
		t.Errorf("expected no write after a failed lookup, got %d", n)
	}
}
