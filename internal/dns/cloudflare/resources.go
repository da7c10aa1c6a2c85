package cloudflare

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"

	"github.com/yuriy-kovalchuk/yk-cloudflare-manager/internal/dns"
)

type accountRef struct {
	ID string `json:"id"`
}

type zoneCreateBody struct {
	dns.ZoneParams
	Account *accountRef `json:"account,omitempty"`
}

// ListZones returns every zone visible in the account scope.
func (p *Provider) ListZones(ctx context.Context, scope dns.Scope) ([]dns.Zone, error) {
	if scope.Kind != dns.ScopeAccount {
		return nil, fmt.Errorf("cloudflare: zones require an account scope, got %q", scope.String())
	}
	p.log.V(1).Info("listing zones", "scope", scope.String())

	query := url.Values{}
	if scope.ID != "" {
		query.Set("account.id", scope.ID)
	}
	return listPages[dns.Zone](ctx, p, "zones", query)
}

// CreateZone adds a zone, attaching it to the scope's account when set.
func (p *Provider) CreateZone(ctx context.Context, scope dns.Scope, params dns.ZoneParams) (dns.Zone, error) {
	if scope.Kind != dns.ScopeAccount {
		return dns.Zone{}, fmt.Errorf("cloudflare: zones require an account scope, got %q", scope.String())
	}
	p.log.Info("creating zone", "name", params.Name, "scope", scope.String())

	body := zoneCreateBody{ZoneParams: params}
	if scope.ID != "" {
		body.Account = &accountRef{ID: scope.ID}
	}

	var zone dns.Zone
	if _, err := p.call(ctx, http.MethodPost, "zones", nil, body, &zone); err != nil {
		return dns.Zone{}, err
	}
	p.log.Info("zone created", "id", zone.ID)
	return zone, nil
}

// ListDNSRecords returns every DNS record of the zone.
func (p *Provider) ListDNSRecords(ctx context.Context, scope dns.Scope) ([]dns.Record, error) {
	path, err := zonePath(scope, "dns_records")
	if err != nil {
		return nil, err
	}
	p.log.V(1).Info("listing records", "scope", scope.String())
	return listPages[dns.Record](ctx, p, path, nil)
}

// CreateDNSRecord adds a DNS record to the zone.
func (p *Provider) CreateDNSRecord(ctx context.Context, scope dns.Scope, params dns.RecordParams) (dns.Record, error) {
	path, err := zonePath(scope, "dns_records")
	if err != nil {
		return dns.Record{}, err
	}
	p.log.Info("creating record", "name", params.Name, "type", params.Type, "content", params.Content)

	var record dns.Record
	if _, err := p.call(ctx, http.MethodPost, path, nil, params, &record); err != nil {
		return dns.Record{}, err
	}
	p.log.Info("record created", "id", record.ID)
	return record, nil
}

// ListPageRules returns every page rule of the zone.
func (p *Provider) ListPageRules(ctx context.Context, scope dns.Scope) ([]dns.PageRule, error) {
	path, err := zonePath(scope, "pagerules")
	if err != nil {
		return nil, err
	}
	p.log.V(1).Info("listing page rules", "scope", scope.String())

	var rules []dns.PageRule
	if _, err := p.call(ctx, http.MethodGet, path, nil, nil, &rules); err != nil {
		return nil, err
	}
	return rules, nil
}

// CreatePageRule adds a page rule to the zone.
func (p *Provider) CreatePageRule(ctx context.Context, scope dns.Scope, params dns.PageRuleParams) (dns.PageRule, error) {
	path, err := zonePath(scope, "pagerules")
	if err != nil {
		return dns.PageRule{}, err
	}
	p.log.Info("creating page rule", "targets", len(params.Targets), "actions", len(params.Actions))

	var rule dns.PageRule
	if _, err := p.call(ctx, http.MethodPost, path, nil, params, &rule); err != nil {
		return dns.PageRule{}, err
	}
	p.log.Info("page rule created", "id", rule.ID)
	return rule, nil
}

// UpdatePageRule replaces the page rule with the given id.
func (p *Provider) UpdatePageRule(ctx context.Context, scope dns.Scope, id string, params dns.PageRuleParams) (dns.PageRule, error) {
	path, err := zonePath(scope, "pagerules/"+url.PathEscape(id))
	if err != nil {
		return dns.PageRule{}, err
	}
	p.log.Info("updating page rule", "id", id)

	var rule dns.PageRule
	if _, err := p.call(ctx, http.MethodPut, path, nil, params, &rule); err != nil {
		return dns.PageRule{}, err
	}
	if rule.ID == "" {
		rule.ID = id
	}
	p.log.Info("page rule updated", "id", rule.ID)
	return rule, nil
}

// ImportDNSRecords uploads a BIND zone file. The file is streamed as a
// multipart form, never buffered whole.
func (p *Provider) ImportDNSRecords(ctx context.Context, scope dns.Scope, filename string, r io.Reader) (dns.ImportResult, error) {
	path, err := zonePath(scope, "dns_records/import")
	if err != nil {
		return dns.ImportResult{}, err
	}
	p.log.Info("importing records", "file", filename, "scope", scope.String())

	pr, pw := io.Pipe()
	form := multipart.NewWriter(pw)
	go func() {
		part, err := form.CreateFormFile("file", filename)
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(part, r); err != nil {
			pw.CloseWithError(err)
			return
		}
		pw.CloseWithError(form.Close())
	}()

	req, err := p.newRequest(ctx, http.MethodPost, path, nil, pr, form.FormDataContentType())
	if err != nil {
		pr.Close()
		return dns.ImportResult{}, err
	}

	var result dns.ImportResult
	if _, err := p.do(req, &result); err != nil {
		pr.Close()
		return dns.ImportResult{}, err
	}
	p.log.Info("records imported", "added", result.RecordsAdded, "parsed", result.TotalRecordsParsed)
	return result, nil
}
