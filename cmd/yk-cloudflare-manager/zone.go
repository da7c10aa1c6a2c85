package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/yuriy-kovalchuk/yk-cloudflare-manager/internal/reconcile"
)

var zoneCommand = &cobra.Command{
	Use:   "zone --name example.com",
	Short: "Make sure a zone exists",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("name")
		account, _ := cmd.Flags().GetString("account-id")
		return invoke(cmd, reconcile.Request{
			Kind:      reconcile.KindZone,
			AccountID: account,
			Zone:      &reconcile.ZoneSpec{Name: name},
		})
	},
}

func init() {
	zoneCommand.Flags().String("name", "", "Zone name")
	zoneCommand.Flags().String("account-id", os.Getenv("CF_ACCOUNT_ID"), "Account the zone belongs to")
	cmd.AddCommand(zoneCommand)
}
