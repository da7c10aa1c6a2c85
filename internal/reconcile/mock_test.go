package reconcile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/yuriy-kovalchuk/yk-cloudflare-manager/internal/dns"
)

// mockProvider is an in-memory provider that records every call.
type mockProvider struct {
	zones     []dns.Zone
	records   []dns.Record
	pageRules []dns.PageRule

	listErr  error
	writeErr error

	calls           []string
	createdZones    []dns.ZoneParams
	createdRecords  []dns.RecordParams
	createdRules    []dns.PageRuleParams
	updatedRules    map[string]dns.PageRuleParams
	importedContent string
	nextID          int
}

func (m *mockProvider) newID(prefix string) string {
	m.nextID++
	return fmt.Sprintf("%s_%d", prefix, m.nextID)
}

func (m *mockProvider) ListZones(_ context.Context, scope dns.Scope) ([]dns.Zone, error) {
	m.calls = append(m.calls, "ListZones "+scope.String())
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.zones, nil
}

func (m *mockProvider) ListDNSRecords(_ context.Context, scope dns.Scope) ([]dns.Record, error) {
	m.calls = append(m.calls, "ListDNSRecords "+scope.String())
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.records, nil
}

func (m *mockProvider) ListPageRules(_ context.Context, scope dns.Scope) ([]dns.PageRule, error) {
	m.calls = append(m.calls, "ListPageRules "+scope.String())
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.pageRules, nil
}

func (m *mockProvider) CreateZone(_ context.Context, scope dns.Scope, params dns.ZoneParams) (dns.Zone, error) {
	m.calls = append(m.calls, "CreateZone "+scope.String())
	if m.writeErr != nil {
		return dns.Zone{}, m.writeErr
	}
	m.createdZones = append(m.createdZones, params)
	z := dns.Zone{ID: m.newID("zone"), Name: params.Name}
	m.zones = append(m.zones, z)
	return z, nil
}

func (m *mockProvider) CreateDNSRecord(_ context.Context, scope dns.Scope, params dns.RecordParams) (dns.Record, error) {
	m.calls = append(m.calls, "CreateDNSRecord "+scope.String())
	if m.writeErr != nil {
		return dns.Record{}, m.writeErr
	}
	m.createdRecords = append(m.createdRecords, params)
	rec := dns.Record{
		ID:      m.newID("rec"),
		Name:    params.Name,
		Type:    params.Type,
		TTL:     params.TTL,
		Content: params.Content,
		Data:    params.Data,
	}
	m.records = append(m.records, rec)
	return rec, nil
}

func (m *mockProvider) CreatePageRule(_ context.Context, scope dns.Scope, params dns.PageRuleParams) (dns.PageRule, error) {
	m.calls = append(m.calls, "CreatePageRule "+scope.String())
	if m.writeErr != nil {
		return dns.PageRule{}, m.writeErr
	}
	m.createdRules = append(m.createdRules, params)
	rule := dns.PageRule{
		ID:       m.newID("rule"),
		Targets:  params.Targets,
		Actions:  params.Actions,
		Status:   params.Status,
		Priority: params.Priority,
	}
	m.pageRules = append(m.pageRules, rule)
	return rule, nil
}

func (m *mockProvider) UpdatePageRule(_ context.Context, scope dns.Scope, id string, params dns.PageRuleParams) (dns.PageRule, error) {
	m.calls = append(m.calls, "UpdatePageRule "+scope.String()+" "+id)
	if m.writeErr != nil {
		return dns.PageRule{}, m.writeErr
	}
	if m.updatedRules == nil {
		m.updatedRules = make(map[string]dns.PageRuleParams)
	}
	m.updatedRules[id] = params
	for i := range m.pageRules {
		if m.pageRules[i].ID == id {
			m.pageRules[i].Targets = params.Targets
			m.pageRules[i].Actions = params.Actions
			m.pageRules[i].Status = params.Status
			m.pageRules[i].Priority = params.Priority
			return m.pageRules[i], nil
		}
	}
	return dns.PageRule{}, errors.New("not found")
}

func (m *mockProvider) ImportDNSRecords(_ context.Context, scope dns.Scope, filename string, r io.Reader) (dns.ImportResult, error) {
	m.calls = append(m.calls, "ImportDNSRecords "+scope.String()+" "+filename)
	if m.writeErr != nil {
		return dns.ImportResult{}, m.writeErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return dns.ImportResult{}, err
	}
	m.importedContent = string(data)
	return dns.ImportResult{RecordsAdded: 2, TotalRecordsParsed: 3}, nil
}

func (m *mockProvider) countCalls(prefix string) int {
	n := 0
	for _, c := range m.calls {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}
