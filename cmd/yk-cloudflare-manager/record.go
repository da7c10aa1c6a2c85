package main

import (
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/yuriy-kovalchuk/yk-cloudflare-manager/internal/reconcile"
)

var recordCommand = &cobra.Command{
	Use:   "record --zone-id ID (--name --type --ttl --content|--data | --import-file)",
	Short: "Make sure a DNS record exists, or bulk import a zone file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := recordRequest(cmd.Flags())
		if err != nil {
			return err
		}
		return invoke(cmd, req)
	},
}

// recordRequest builds a dns_record request from flags. Flags that were not
// set stay empty so that validation sees exactly what the user supplied.
func recordRequest(fs *pflag.FlagSet) (reconcile.Request, error) {
	zoneID, _ := fs.GetString("zone-id")
	req := reconcile.Request{Kind: reconcile.KindDNSRecord, ZoneID: zoneID}

	if path, _ := fs.GetString("import-file"); path != "" {
		req.Import = &reconcile.ImportSpec{Path: path}
	}

	rec := &reconcile.RecordSpec{}
	rec.Name, _ = fs.GetString("name")
	rec.Type, _ = fs.GetString("type")
	rec.TTL, _ = fs.GetInt("ttl")
	rec.Value.Content, _ = fs.GetString("content")
	rec.Comment, _ = fs.GetString("comment")
	rec.Tags, _ = fs.GetStringSlice("tag")

	data, err := fs.GetStringToString("data")
	if err != nil {
		return req, err
	}
	if len(data) > 0 {
		rec.Value.Data = make(map[string]any, len(data))
		for k, v := range data {
			rec.Value.Data[k] = scalar(v)
		}
	}
	if fs.Changed("priority") {
		p, err := fs.GetInt("priority")
		if err != nil {
			return req, err
		}
		rec.Priority = &p
	}
	if fs.Changed("proxied") {
		p, err := fs.GetBool("proxied")
		if err != nil {
			return req, err
		}
		rec.Proxied = &p
	}
	// An all-empty record is dropped during validation.
	req.Record = rec
	return req, nil
}

// scalar keeps numeric data fields numeric, as the API expects for SRV
// weights, ports and similar.
func scalar(v string) any {
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	return v
}

func addRecordFlags(fs *pflag.FlagSet) {
	fs.String("zone-id", "", "Zone the record belongs to")
	fs.String("name", "", "Record name")
	fs.String("type", "", "Record type (A, AAAA, CNAME, MX, TXT, SRV, ...)")
	fs.Int("ttl", 0, "TTL in seconds, 1 for automatic")
	fs.String("content", "", "Record content for simple types")
	fs.StringToString("data", nil, "Structured record data as key=value, e.g. --data port=443")
	fs.Int("priority", 0, "Record priority (MX, SRV, URI)")
	fs.Bool("proxied", false, "Proxy traffic through Cloudflare")
	fs.String("comment", "", "Record comment")
	fs.StringSlice("tag", nil, "Record tag, repeatable")
	fs.String("import-file", "", "BIND zone file to bulk import instead of a single record")
}

func init() {
	addRecordFlags(recordCommand.Flags())
	cmd.AddCommand(recordCommand)
}
