package dns

import (
	"context"
	"io"
)

// ScopeKind says which kind of provider-side container a Scope names.
type ScopeKind string

const (
	ScopeAccount ScopeKind = "account"
	ScopeZone    ScopeKind = "zone"
)

// Scope identifies the provider-side container an operation applies to.
type Scope struct {
	Kind ScopeKind
	ID   string
}

// AccountScope returns an account scope. An empty id means every account the
// credentials can reach.
func AccountScope(id string) Scope { return Scope{Kind: ScopeAccount, ID: id} }

// ZoneScope returns a zone scope for the given zone id.
func ZoneScope(id string) Scope { return Scope{Kind: ScopeZone, ID: id} }

func (s Scope) String() string {
	if s.ID == "" {
		return string(s.Kind)
	}
	return string(s.Kind) + "/" + s.ID
}

// Zone is a zone as listed by the provider.
type Zone struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status,omitempty"`
}

// ZoneParams is the create payload for a zone.
type ZoneParams struct {
	Name string `json:"name"`
}

// Record is a DNS record as listed by the provider.
type Record struct {
	ID       string         `json:"id"`
	ZoneID   string         `json:"zone_id,omitempty"`
	ZoneName string         `json:"zone_name,omitempty"`
	Name     string         `json:"name"`
	Type     string         `json:"type"`
	TTL      int            `json:"ttl"`
	Content  string         `json:"content,omitempty"`
	Data     map[string]any `json:"data,omitempty"`
	Priority *int           `json:"priority,omitempty"`
	Proxied  *bool          `json:"proxied,omitempty"`
	Comment  string         `json:"comment,omitempty"`
	Tags     []string       `json:"tags,omitempty"`
}

// RecordParams is the create payload for a DNS record. The record value is
// carried either in Content or in Data, never both.
type RecordParams struct {
	Type     string         `json:"type"`
	Name     string         `json:"name"`
	TTL      int            `json:"ttl"`
	Content  string         `json:"content,omitempty"`
	Data     map[string]any `json:"data,omitempty"`
	Priority *int           `json:"priority,omitempty"`
	Proxied  *bool          `json:"proxied,omitempty"`
	Comment  string         `json:"comment,omitempty"`
	Tags     []string       `json:"tags,omitempty"`
}

// Constraint is the match condition of a page rule target.
type Constraint struct {
	Operator string `json:"operator" yaml:"operator" validate:"required,oneof=matches contains equals not_equal not_contain"`
	Value    string `json:"value" yaml:"value" validate:"required"`
}

// Target is a page rule trigger.
type Target struct {
	Target     string     `json:"target" yaml:"target" validate:"required,oneof=url"`
	Constraint Constraint `json:"constraint" yaml:"constraint"`
}

// Action is a page rule effect. Value is action-specific and kept opaque.
type Action struct {
	ID    string `json:"id" yaml:"id" validate:"required"`
	Value any    `json:"value,omitempty" yaml:"value,omitempty"`
}

// PageRule is a page rule as listed by the provider.
type PageRule struct {
	ID         string   `json:"id"`
	Targets    []Target `json:"targets"`
	Actions    []Action `json:"actions"`
	Status     string   `json:"status"`
	Priority   int      `json:"priority"`
	CreatedOn  string   `json:"created_on,omitempty"`
	ModifiedOn string   `json:"modified_on,omitempty"`
}

// PageRuleParams is the create and update payload for a page rule.
type PageRuleParams struct {
	Targets  []Target `json:"targets"`
	Actions  []Action `json:"actions"`
	Status   string   `json:"status"`
	Priority int      `json:"priority"`
}

// ImportResult summarizes a bulk DNS import.
type ImportResult struct {
	RecordsAdded       int `json:"recs_added"`
	TotalRecordsParsed int `json:"total_records_parsed"`
}

// Provider is the interface that DNS providers must implement. Every call
// either returns the requested data or fails; callers do not retry.
type Provider interface {
	ListZones(ctx context.Context, scope Scope) ([]Zone, error)
	ListDNSRecords(ctx context.Context, scope Scope) ([]Record, error)
	ListPageRules(ctx context.Context, scope Scope) ([]PageRule, error)

	CreateZone(ctx context.Context, scope Scope, params ZoneParams) (Zone, error)
	CreateDNSRecord(ctx context.Context, scope Scope, params RecordParams) (Record, error)
	CreatePageRule(ctx context.Context, scope Scope, params PageRuleParams) (PageRule, error)
	UpdatePageRule(ctx context.Context, scope Scope, id string, params PageRuleParams) (PageRule, error)

	ImportDNSRecords(ctx context.Context, scope Scope, filename string, r io.Reader) (ImportResult, error)
}
