package reconcile

import (
	"context"

	"github.com/yuriy-kovalchuk/yk-cloudflare-manager/internal/dns"
)

var zoneStrategy = strategy[ZoneSpec, dns.Zone, dns.ZoneParams]{
	kind: KindZone,
	key:  func(d ZoneSpec) string { return d.Name },
	id:   func(o dns.Zone) string { return o.ID },
	compare: func(d ZoneSpec, o dns.Zone) Comparison {
		if sameName(o.Name, d.Name) {
			return Match
		}
		return NoMatch
	},
	shape: func(d ZoneSpec) dns.ZoneParams {
		return dns.ZoneParams{Name: d.Name}
	},
	list: func(ctx context.Context, p dns.Provider, scope dns.Scope) ([]dns.Zone, error) {
		return p.ListZones(ctx, scope)
	},
	create: func(ctx context.Context, p dns.Provider, scope dns.Scope, payload dns.ZoneParams) (string, error) {
		z, err := p.CreateZone(ctx, scope, payload)
		return z.ID, err
	},
}

// Records are append/match only: a record with the same name and type but
// another value is a new record, never an update.
var recordStrategy = strategy[RecordSpec, dns.Record, dns.RecordParams]{
	kind: KindDNSRecord,
	key:  func(d RecordSpec) string { return d.Type + " " + d.Name },
	id:   func(o dns.Record) string { return o.ID },
	compare: func(d RecordSpec, o dns.Record) Comparison {
		if o.Type != d.Type || !sameName(o.Name, d.Name) {
			return NoMatch
		}
		if d.Value.Content != "" {
			if o.Content == d.Value.Content {
				return Match
			}
			return NoMatch
		}
		if sameJSON(o.Data, d.Value.Data) {
			return Match
		}
		return NoMatch
	},
	shape: shapeRecord,
	list: func(ctx context.Context, p dns.Provider, scope dns.Scope) ([]dns.Record, error) {
		return p.ListDNSRecords(ctx, scope)
	},
	create: func(ctx context.Context, p dns.Provider, scope dns.Scope, payload dns.RecordParams) (string, error) {
		rec, err := p.CreateDNSRecord(ctx, scope, payload)
		return rec.ID, err
	},
}

// shapeRecord flattens the active value representation into the payload.
func shapeRecord(d RecordSpec) dns.RecordParams {
	params := dns.RecordParams{
		Type:     d.Type,
		Name:     d.Name,
		TTL:      d.TTL,
		Priority: d.Priority,
		Proxied:  d.Proxied,
		Comment:  d.Comment,
		Tags:     d.Tags,
	}
	if d.Value.Content != "" {
		params.Content = d.Value.Content
	} else {
		params.Data = d.Value.Data
	}
	return params
}

// Page rules are identified by the value of their first target. An occupied
// slot is a Match when the target and action lists are both equal element by
// element and a Conflict otherwise.
var pageRuleStrategy = strategy[PageRuleSpec, dns.PageRule, dns.PageRuleParams]{
	kind: KindPageRule,
	key:  firstTargetValue,
	id:   func(o dns.PageRule) string { return o.ID },
	compare: func(d PageRuleSpec, o dns.PageRule) Comparison {
		if len(d.Targets) == 0 || len(o.Targets) == 0 {
			return NoMatch
		}
		if o.Targets[0].Constraint.Value != d.Targets[0].Constraint.Value {
			return NoMatch
		}
		if sameJSON(o.Targets, d.Targets) && sameJSON(o.Actions, d.Actions) {
			return Match
		}
		return Conflict
	},
	shape: func(d PageRuleSpec) dns.PageRuleParams {
		return dns.PageRuleParams{
			Targets:  d.Targets,
			Actions:  d.Actions,
			Status:   d.Status,
			Priority: d.Priority,
		}
	},
	list: func(ctx context.Context, p dns.Provider, scope dns.Scope) ([]dns.PageRule, error) {
		return p.ListPageRules(ctx, scope)
	},
	create: func(ctx context.Context, p dns.Provider, scope dns.Scope, payload dns.PageRuleParams) (string, error) {
		rule, err := p.CreatePageRule(ctx, scope, payload)
		return rule.ID, err
	},
	update: func(ctx context.Context, p dns.Provider, scope dns.Scope, id string, payload dns.PageRuleParams) (string, error) {
		rule, err := p.UpdatePageRule(ctx, scope, id, payload)
		return rule.ID, err
	},
}

func firstTargetValue(d PageRuleSpec) string {
	if len(d.Targets) == 0 {
		return ""
	}
	return d.Targets[0].Constraint.Value
}
