package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"

	"github.com/yuriy-kovalchuk/yk-cloudflare-manager/internal/config"
	"github.com/yuriy-kovalchuk/yk-cloudflare-manager/internal/dns"
	_ "github.com/yuriy-kovalchuk/yk-cloudflare-manager/internal/dns/providers"
	"github.com/yuriy-kovalchuk/yk-cloudflare-manager/internal/reconcile"
)

// errFailed signals a failed outcome that has already been printed.
var errFailed = errors.New("reconciliation failed")

var zapOpts = zap.Options{
	Development: true,
}

var cmd = &cobra.Command{
	Use:           "yk-cloudflare-manager",
	Short:         "Reconcile Cloudflare zones, DNS records and page rules",
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		ctrl.SetLogger(zap.New(zap.UseFlagOptions(&zapOpts)))
	},
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		if !errors.Is(err, errFailed) {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}
}

func init() {
	goflags := flag.NewFlagSet("zap", flag.ExitOnError)
	zapOpts.BindFlags(goflags)
	cmd.PersistentFlags().AddGoFlagSet(goflags)

	cmd.PersistentFlags().String("config", "", "Provider config file (default $CF_PROVIDER_PATH or "+config.DefaultProviderPath+")")
	cmd.PersistentFlags().Bool("check", false, "Validate input and report success without contacting Cloudflare")
}

// connector loads the provider config lazily so check mode never needs it.
func connector(cmd *cobra.Command) reconcile.Connector {
	return func() (dns.Provider, error) {
		path, err := cmd.Flags().GetString("config")
		if err != nil {
			return nil, err
		}
		cfg, err := config.LoadProviderConfig(path)
		if err != nil {
			return nil, err
		}
		return dns.NewProvider(cfg.Provider, ctrl.Log.WithName("dns-"+cfg.Provider), cfg.Settings)
	}
}

// invoke reconciles req and prints its outcome as JSON on stdout.
func invoke(cmd *cobra.Command, req reconcile.Request) error {
	check, err := cmd.Flags().GetBool("check")
	if err != nil {
		return err
	}
	req.Check = req.Check || check

	out := reconcile.Invoke(cmd.Context(), ctrl.Log.WithName("reconcile"), req, connector(cmd))

	enc := json.NewEncoder(cmd.OutOrStdout())
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("writing outcome: %w", err)
	}
	if !out.Success {
		return errFailed
	}
	return nil
}
