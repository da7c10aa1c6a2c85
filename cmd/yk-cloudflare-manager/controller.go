package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"k8s.io/apimachinery/pkg/runtime"
	utilruntime "k8s.io/apimachinery/pkg/util/runtime"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/healthz"
	metricsserver "sigs.k8s.io/controller-runtime/pkg/metrics/server"
	gatewayv1 "sigs.k8s.io/gateway-api/apis/v1"

	"github.com/yuriy-kovalchuk/yk-cloudflare-manager/internal/config"
	"github.com/yuriy-kovalchuk/yk-cloudflare-manager/internal/controller"
	"github.com/yuriy-kovalchuk/yk-cloudflare-manager/internal/dns"
	"github.com/yuriy-kovalchuk/yk-cloudflare-manager/internal/reconcile"
)

var scheme = runtime.NewScheme()

func init() {
	utilruntime.Must(clientgoscheme.AddToScheme(scheme))
	utilruntime.Must(gatewayv1.Install(scheme))
}

var controllerCommand = &cobra.Command{
	Use:   "controller",
	Short: "Run the HTTPRoute controller that creates DNS records for route hostnames",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runController(cmd)
	},
}

func init() {
	domainMap := os.Getenv("DOMAIN_MAP_PATH")
	if domainMap == "" {
		domainMap = "configs/domain-map.yaml"
	}
	fs := controllerCommand.Flags()
	fs.String("domain-map", domainMap, "Domain map file (default $DOMAIN_MAP_PATH)")
	fs.Int("ttl", 1, "TTL for created records, 1 for automatic")
	fs.String("metrics-bind-address", ":9090", "Metrics endpoint address")
	fs.String("health-probe-bind-address", ":8081", "Health probe address")
	cmd.AddCommand(controllerCommand)
}

func runController(cmd *cobra.Command) error {
	log := ctrl.Log.WithName("setup")
	log.Info("starting yk-cloudflare-manager controller", "version", Version)

	fs := cmd.Flags()
	domainMapPath, _ := fs.GetString("domain-map")
	ttl, _ := fs.GetInt("ttl")
	metricsAddr, _ := fs.GetString("metrics-bind-address")
	probeAddr, _ := fs.GetString("health-probe-bind-address")
	configPath, _ := fs.GetString("config")

	domainMap, err := config.LoadDomainMap(domainMapPath)
	if err != nil {
		return fmt.Errorf("unable to load domain map: %w", err)
	}
	log.Info("loaded domain map", "path", domainMapPath, "domains", len(domainMap.Domains()))

	providerCfg, err := config.LoadProviderConfig(configPath)
	if err != nil {
		return fmt.Errorf("unable to load provider config: %w", err)
	}
	log.Info("loaded provider config", "provider", providerCfg.Provider)

	dnsProvider, err := dns.NewProvider(providerCfg.Provider, ctrl.Log.WithName("dns-"+providerCfg.Provider), providerCfg.Settings)
	if err != nil {
		return fmt.Errorf("unable to create DNS provider: %w", err)
	}

	mgr, err := ctrl.NewManager(ctrl.GetConfigOrDie(), ctrl.Options{
		Scheme:                 scheme,
		Metrics:                metricsserver.Options{BindAddress: metricsAddr},
		HealthProbeBindAddress: probeAddr,
	})
	if err != nil {
		return fmt.Errorf("unable to create manager: %w", err)
	}

	if err := mgr.AddHealthzCheck("healthz", healthz.Ping); err != nil {
		return fmt.Errorf("unable to set up health check: %w", err)
	}
	if err := mgr.AddReadyzCheck("readyz", healthz.Ping); err != nil {
		return fmt.Errorf("unable to set up ready check: %w", err)
	}

	reconciler := &controller.HTTPRouteReconciler{
		Client:    mgr.GetClient(),
		APIReader: mgr.GetAPIReader(),
		Log:       ctrl.Log.WithName("httproute-controller"),
		DomainMap: domainMap,
		DNS:       &reconcile.Reconciler{Provider: dnsProvider, Log: ctrl.Log.WithName("reconcile")},
		AccountID: providerCfg.AccountID,
		TTL:       ttl,
	}
	if err := reconciler.SetupWithManager(mgr); err != nil {
		return fmt.Errorf("unable to set up HTTPRoute controller: %w", err)
	}

	log.Info("starting manager")
	if err := mgr.Start(cmd.Context()); err != nil {
		return fmt.Errorf("manager exited with error: %w", err)
	}
	return nil
}
