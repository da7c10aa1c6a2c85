package cloudflare

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-logr/logr"

	"github.com/yuriy-kovalchuk/yk-cloudflare-manager/internal/dns"
)

const (
	defaultBaseURL = "https://api.cloudflare.com/client/v4"
	defaultTimeout = 30 * time.Second
	perPage        = 50
)

func init() {
	dns.Register("cloudflare", func(log logr.Logger, settings map[string]string) (dns.Provider, error) {
		return New(log, settings)
	})
}

// Provider implements dns.Provider for the Cloudflare v4 API.
type Provider struct {
	baseURL  string
	apiToken string
	apiEmail string
	apiKey   string
	client   *http.Client
	log      logr.Logger
}

// New creates a Cloudflare provider from the given settings map.
// Credentials: either api_token, or api_email together with api_key.
// Optional settings: base_url, timeout (Go duration, default 30s),
// skip_tls_verify (default false).
func New(log logr.Logger, settings map[string]string) (*Provider, error) {
	baseURL := settings["base_url"]
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	apiToken := settings["api_token"]
	apiEmail := settings["api_email"]
	apiKey := settings["api_key"]
	if apiToken == "" {
		if apiEmail == "" || apiKey == "" {
			return nil, fmt.Errorf("cloudflare: missing credentials: set 'api_token' or both 'api_email' and 'api_key'")
		}
	}

	timeout := defaultTimeout
	if v := settings["timeout"]; v != "" {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("cloudflare: invalid timeout %q: %w", v, err)
		}
		timeout = parsed
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if v := settings["skip_tls_verify"]; v == "true" {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return &Provider{
		baseURL:  strings.TrimRight(baseURL, "/"),
		apiToken: apiToken,
		apiEmail: apiEmail,
		apiKey:   apiKey,
		client:   &http.Client{Transport: transport, Timeout: timeout},
		log:      log,
	}, nil
}

// apiMessage is an entry of the errors/messages arrays of a response.
type apiMessage struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type resultInfo struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	TotalPages int `json:"total_pages"`
	Count      int `json:"count"`
	TotalCount int `json:"total_count"`
}

// envelope is the common shape of every Cloudflare v4 response.
type envelope struct {
	Success    bool            `json:"success"`
	Errors     []apiMessage    `json:"errors"`
	Messages   []apiMessage    `json:"messages"`
	Result     json.RawMessage `json:"result"`
	ResultInfo *resultInfo     `json:"result_info"`
}

func formatMessages(msgs []apiMessage) string {
	parts := make([]string, 0, len(msgs))
	for _, m := range msgs {
		parts = append(parts, fmt.Sprintf("%d: %s", m.Code, m.Message))
	}
	return strings.Join(parts, "; ")
}

// newRequest builds an authenticated request against the Cloudflare API.
func (p *Provider) newRequest(ctx context.Context, method, path string, query url.Values, body io.Reader, contentType string) (*http.Request, error) {
	u := p.baseURL + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, fmt.Errorf("cloudflare: build request: %w", err)
	}

	if p.apiToken != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiToken)
	} else {
		req.Header.Set("X-Auth-Email", p.apiEmail)
		req.Header.Set("X-Auth-Key", p.apiKey)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// do executes req and decodes the envelope result into out.
func (p *Provider) do(req *http.Request, out interface{}) (*resultInfo, error) {
	op := req.Method + " " + req.URL.Path
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cloudflare: %s: %w", op, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("cloudflare: %s: read response: %w", op, err)
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return nil, fmt.Errorf("cloudflare: %s returned status %d: %s", op, resp.StatusCode, strings.TrimSpace(string(data)))
		}
		return nil, fmt.Errorf("cloudflare: %s: decode response: %w", op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 || !env.Success {
		return nil, fmt.Errorf("cloudflare: %s returned status %d: %s", op, resp.StatusCode, formatMessages(env.Errors))
	}
	if len(env.Result) == 0 || string(env.Result) == "null" {
		return nil, fmt.Errorf("cloudflare: %s: response carried no result", op)
	}
	if out != nil {
		if err := json.Unmarshal(env.Result, out); err != nil {
			return nil, fmt.Errorf("cloudflare: %s: decode result: %w", op, err)
		}
	}
	return env.ResultInfo, nil
}

// call sends an optional JSON body and decodes the result into out.
func (p *Provider) call(ctx context.Context, method, path string, query url.Values, body, out interface{}) (*resultInfo, error) {
	var bodyReader io.Reader
	contentType := ""
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("cloudflare: marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
		contentType = "application/json"
	}

	req, err := p.newRequest(ctx, method, path, query, bodyReader, contentType)
	if err != nil {
		return nil, err
	}
	return p.do(req, out)
}

// listPages walks a paginated collection until the last page.
func listPages[T any](ctx context.Context, p *Provider, path string, query url.Values) ([]T, error) {
	items := []T{}
	for page := 1; ; page++ {
		q := maps.Clone(query)
		if q == nil {
			q = url.Values{}
		}
		q.Set("page", strconv.Itoa(page))
		q.Set("per_page", strconv.Itoa(perPage))

		var batch []T
		info, err := p.call(ctx, http.MethodGet, path, q, nil, &batch)
		if err != nil {
			return nil, err
		}
		items = append(items, batch...)
		if info == nil || len(batch) == 0 || page >= info.TotalPages {
			return items, nil
		}
	}
}

func zonePath(scope dns.Scope, suffix string) (string, error) {
	if scope.Kind != dns.ScopeZone || scope.ID == "" {
		return "", fmt.Errorf("cloudflare: %s requires a zone scope, got %q", suffix, scope.String())
	}
	return "zones/" + url.PathEscape(scope.ID) + "/" + suffix, nil
}
