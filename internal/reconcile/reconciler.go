// Package reconcile decides, for one declared resource, whether the provider
// already holds it, holds a conflicting version of it, or lacks it, and issues
// at most one corrective write.
package reconcile

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-logr/logr"

	"github.com/yuriy-kovalchuk/yk-cloudflare-manager/internal/dns"
)

// Reconciler reconciles single resources against a provider. It keeps no
// state between calls; concurrent calls for the same resource may race.
type Reconciler struct {
	Provider dns.Provider
	Log      logr.Logger
}

// Zone reconciles a zone in an account scope.
func (r *Reconciler) Zone(ctx context.Context, scope dns.Scope, spec ZoneSpec) Outcome {
	return run(ctx, r, zoneStrategy, scope, spec)
}

// Record reconciles a DNS record in a zone scope.
func (r *Reconciler) Record(ctx context.Context, scope dns.Scope, spec RecordSpec) Outcome {
	return run(ctx, r, recordStrategy, scope, spec)
}

// PageRule reconciles a page rule in a zone scope.
func (r *Reconciler) PageRule(ctx context.Context, scope dns.Scope, spec PageRuleSpec) Outcome {
	return run(ctx, r, pageRuleStrategy, scope, spec)
}

// Import uploads a zone file to the provider's bulk import endpoint. The
// provider does not report ids, so a successful import always reports a
// change with an empty resource id.
func (r *Reconciler) Import(ctx context.Context, scope dns.Scope, spec ImportSpec) Outcome {
	if err := spec.validate(); err != nil {
		return Failure(err)
	}

	if r.Provider == nil {
		return Failure(&Error{Kind: WriteError, Op: "failed to import records", Err: errNotInitialized})
	}

	f, err := os.Open(spec.Path)
	if err != nil {
		return Failure(inputErrorf("import file %s: %v", spec.Path, err))
	}
	defer f.Close()

	r.Log.Info("importing records", "path", spec.Path, "scope", scope.String())
	res, err := r.Provider.ImportDNSRecords(ctx, scope, filepath.Base(spec.Path), f)
	if err != nil {
		return Failure(&Error{Kind: WriteError, Err: err})
	}
	return changed("", fmt.Sprintf("imported %d of %d records", res.RecordsAdded, res.TotalRecordsParsed))
}

// Apply validates req and reconciles it. In check mode nothing is listed or
// written and an unchanged success is returned.
func (r *Reconciler) Apply(ctx context.Context, req Request) Outcome {
	if err := req.Validate(); err != nil {
		return Failure(err)
	}
	if req.Check {
		return Outcome{Success: true}
	}
	return r.dispatch(ctx, req)
}

func (r *Reconciler) dispatch(ctx context.Context, req Request) Outcome {
	scope := req.Scope()
	switch req.Kind {
	case KindZone:
		return r.Zone(ctx, scope, *req.Zone)
	case KindDNSRecord:
		if req.Import != nil {
			return r.Import(ctx, scope, *req.Import)
		}
		return r.Record(ctx, scope, *req.Record)
	case KindPageRule:
		return r.PageRule(ctx, scope, *req.PageRule)
	}
	return Failure(inputErrorf("unsupported kind %q", req.Kind))
}

// Connector builds the provider client from credentials the caller holds.
type Connector func() (dns.Provider, error)

// Invoke runs one full invocation: validate, honor check mode, connect to the
// provider and reconcile. The provider is only built when it is needed.
func Invoke(ctx context.Context, log logr.Logger, req Request, connect Connector) Outcome {
	if err := req.Validate(); err != nil {
		return Failure(err)
	}
	if req.Check {
		log.V(1).Info("check mode, skipping reconciliation", "kind", string(req.Kind))
		return Outcome{Success: true}
	}

	p, err := connect()
	if err != nil {
		return Failure(&Error{Kind: InitializationError, Op: "failed to initialize provider API", Err: err})
	}

	r := &Reconciler{Provider: p, Log: log}
	return r.dispatch(ctx, req)
}
