package controller

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"

	"github.com/go-logr/logr"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/event"
	"sigs.k8s.io/controller-runtime/pkg/predicate"
	gatewayv1 "sigs.k8s.io/gateway-api/apis/v1"

	"k8s.io/client-go/util/retry"

	"github.com/yuriy-kovalchuk/yk-cloudflare-manager/internal/config"
	"github.com/yuriy-kovalchuk/yk-cloudflare-manager/internal/dns"
	"github.com/yuriy-kovalchuk/yk-cloudflare-manager/internal/reconcile"
)

const (
	recordIDsAnnotation = "dns.yk/record-ids"
	recordComment       = "managed by yk-cloudflare-manager"
)

// HTTPRouteReconciler makes sure every mapped HTTPRoute hostname has a DNS
// record in its Cloudflare zone. Records are only ever created, never
// updated or deleted.
type HTTPRouteReconciler struct {
	client.Client
	APIReader client.Reader
	Log       logr.Logger
	DomainMap *config.DomainMap
	DNS       *reconcile.Reconciler
	AccountID string
	TTL       int // 1 = automatic
}

func (r *HTTPRouteReconciler) Reconcile(ctx context.Context, req ctrl.Request) (ctrl.Result, error) {
	var route gatewayv1.HTTPRoute
	if err := r.APIReader.Get(ctx, req.NamespacedName, &route); err != nil {
		return ctrl.Result{}, client.IgnoreNotFound(err)
	}
	if !route.DeletionTimestamp.IsZero() {
		return ctrl.Result{}, nil
	}
	if r.DNS == nil || r.DNS.Provider == nil {
		return ctrl.Result{}, fmt.Errorf("DNS reconciler not configured")
	}

	var recordIDs map[string]string
	if val, ok := route.Annotations[recordIDsAnnotation]; ok {
		if err := json.Unmarshal([]byte(val), &recordIDs); err != nil {
			r.Log.V(1).Info("ignoring unreadable record-ids annotation", "route", req.NamespacedName, "error", err.Error())
		}
	}

	current := make(map[string]string, len(route.Spec.Hostnames))
	var zones []dns.Zone
	zonesListed := false

	for _, h := range route.Spec.Hostnames {
		hostname := string(h)
		target, ok := r.DomainMap.Lookup(hostname)
		if !ok {
			r.Log.V(1).Info("no domain mapping found for hostname", "hostname", hostname)
			continue
		}

		if !zonesListed {
			var err error
			zones, err = r.DNS.Provider.ListZones(ctx, dns.AccountScope(r.AccountID))
			if err != nil {
				return ctrl.Result{}, fmt.Errorf("listing zones: %w", err)
			}
			zonesListed = true
		}
		zone, ok := dns.ZoneForHostname(hostname, zones)
		if !ok {
			r.Log.Info("no Cloudflare zone owns hostname, skipping", "hostname", hostname)
			continue
		}

		r.Log.V(1).Info("resolved hostname", "hostname", hostname, "type", target.Type, "value", target.Value, "zone", zone.Name)
		out := r.DNS.Record(ctx, dns.ZoneScope(zone.ID), r.recordSpec(hostname, target))
		if !out.Success {
			return ctrl.Result{}, fmt.Errorf("reconciling DNS record for %s: %s", hostname, out.Message)
		}
		if out.Changed {
			r.Log.Info("created DNS record", "hostname", hostname, "id", out.ResourceID)
		}
		current[hostname] = out.ResourceID
	}

	if maps.Equal(recordIDs, current) {
		return ctrl.Result{}, nil
	}

	err := retry.RetryOnConflict(retry.DefaultRetry, func() error {
		if err := r.APIReader.Get(ctx, req.NamespacedName, &route); err != nil {
			return err
		}
		if route.Annotations == nil {
			route.Annotations = make(map[string]string)
		}
		data, _ := json.Marshal(current)
		route.Annotations[recordIDsAnnotation] = string(data)
		return r.Update(ctx, &route)
	})
	if err != nil {
		return ctrl.Result{}, fmt.Errorf("failed to update record-ids annotation: %w", err)
	}

	return ctrl.Result{}, nil
}

func (r *HTTPRouteReconciler) recordSpec(hostname string, target config.Target) reconcile.RecordSpec {
	ttl := r.TTL
	if ttl == 0 {
		ttl = 1
	}
	return reconcile.RecordSpec{
		Name:    hostname,
		Type:    target.Type,
		TTL:     ttl,
		Value:   reconcile.RecordValue{Content: target.Value},
		Comment: recordComment,
	}
}

func (r *HTTPRouteReconciler) SetupWithManager(mgr ctrl.Manager) error {
	return ctrl.NewControllerManagedBy(mgr).
		For(&gatewayv1.HTTPRoute{}).
		WithEventFilter(predicate.Funcs{
			UpdateFunc: func(e event.UpdateEvent) bool {
				// Only spec changes (Generation) matter; our own annotation
				// writes do not bump it.
				return e.ObjectOld.GetGeneration() != e.ObjectNew.GetGeneration()
			},
		}).
		Complete(r)
}
