package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"go.yaml.in/yaml/v3"

	"github.com/yuriy-kovalchuk/yk-cloudflare-manager/internal/reconcile"
)

// LoadRequest reads a reconciliation request from a YAML file, or from stdin
// when path is "-".
func LoadRequest(path string) (*reconcile.Request, error) {
	if path == "-" {
		return DecodeRequest(os.Stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reading request file: %w", err)
	}
	defer f.Close()
	return DecodeRequest(f)
}

// DecodeRequest decodes a single YAML request document. Unknown fields are
// rejected so that typos do not silently drop desired state.
func DecodeRequest(r io.Reader) (*reconcile.Request, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var req reconcile.Request
	if err := dec.Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("parsing request: empty document")
		}
		return nil, fmt.Errorf("parsing request: %w", err)
	}
	return &req, nil
}
