package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yuriy-kovalchuk/yk-cloudflare-manager/internal/config"
	"github.com/yuriy-kovalchuk/yk-cloudflare-manager/internal/reconcile"
)

var applyCommand = &cobra.Command{
	Use:   "apply -f request.yaml",
	Short: "Reconcile the resource described by a request file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := loadRequest(cmd)
		if err != nil {
			return err
		}
		return invoke(cmd, *req)
	},
}

var pageRuleCommand = &cobra.Command{
	Use:   "page-rule -f rule.yaml",
	Short: "Reconcile a page rule described by a request file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := loadRequest(cmd)
		if err != nil {
			return err
		}
		if req.Kind == "" {
			req.Kind = reconcile.KindPageRule
		}
		if req.Kind != reconcile.KindPageRule {
			return fmt.Errorf("request kind is %q, expected %q", req.Kind, reconcile.KindPageRule)
		}
		return invoke(cmd, *req)
	},
}

func loadRequest(cmd *cobra.Command) (*reconcile.Request, error) {
	path, err := cmd.Flags().GetString("file")
	if err != nil {
		return nil, err
	}
	return config.LoadRequest(path)
}

func init() {
	for _, c := range []*cobra.Command{applyCommand, pageRuleCommand} {
		c.Flags().StringP("file", "f", "-", "Request file, '-' reads stdin")
		cmd.AddCommand(c)
	}
}
