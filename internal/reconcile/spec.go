package reconcile

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"reflect"
	"strings"

	"gopkg.in/go-playground/validator.v9"

	"github.com/yuriy-kovalchuk/yk-cloudflare-manager/internal/dns"
)

// Kind is the resource kind a request reconciles.
type Kind string

const (
	KindZone      Kind = "zone"
	KindDNSRecord Kind = "dns_record"
	KindPageRule  Kind = "page_rule"
)

func (k Kind) display() string {
	switch k {
	case KindDNSRecord:
		return "DNS record"
	case KindPageRule:
		return "page rule"
	default:
		return string(k)
	}
}

// ZoneSpec is the desired state of a zone.
type ZoneSpec struct {
	Name string `yaml:"name" validate:"required,fqdn"`
}

// RecordValue holds a DNS record value in exactly one representation.
type RecordValue struct {
	Content string         `yaml:"content,omitempty"`
	Data    map[string]any `yaml:"data,omitempty"`
}

func (v RecordValue) empty() bool { return v.Content == "" && len(v.Data) == 0 }

// RecordSpec is the desired state of a DNS record.
type RecordSpec struct {
	Name     string      `yaml:"name"`
	Type     string      `yaml:"type"`
	TTL      int         `yaml:"ttl" validate:"omitempty,ttl"`
	Value    RecordValue `yaml:"value"`
	Priority *int        `yaml:"priority,omitempty" validate:"omitempty,min=0,max=65535"`
	Proxied  *bool       `yaml:"proxied,omitempty"`
	Comment  string      `yaml:"comment,omitempty" validate:"max=100"`
	Tags     []string    `yaml:"tags,omitempty" validate:"dive,required"`
}

func (s RecordSpec) empty() bool {
	return s.Name == "" && s.Type == "" && s.TTL == 0 && s.Value.empty()
}

// ImportSpec asks for a bulk import of a BIND-format zone file.
type ImportSpec struct {
	Path string `yaml:"path" validate:"required"`
}

// PageRuleSpec is the desired state of a page rule.
type PageRuleSpec struct {
	Targets  []dns.Target `yaml:"targets" validate:"required,min=1,dive"`
	Actions  []dns.Action `yaml:"actions" validate:"required,min=1,dive"`
	Status   string       `yaml:"status" validate:"required,oneof=active disabled"`
	Priority int          `yaml:"priority,omitempty" validate:"min=0"`
}

// Request is one invocation: a kind, its scope and the kind-specific fields.
type Request struct {
	Kind      Kind          `yaml:"kind" validate:"required,oneof=zone dns_record page_rule"`
	AccountID string        `yaml:"account_id,omitempty"`
	ZoneID    string        `yaml:"zone_id,omitempty"`
	Check     bool          `yaml:"check,omitempty"`
	Zone      *ZoneSpec     `yaml:"zone,omitempty"`
	Record    *RecordSpec   `yaml:"record,omitempty"`
	Import    *ImportSpec   `yaml:"import,omitempty"`
	PageRule  *PageRuleSpec `yaml:"page_rule,omitempty"`
}

// Scope returns the provider scope the request applies to.
func (r *Request) Scope() dns.Scope {
	if r.Kind == KindZone {
		return dns.AccountScope(r.AccountID)
	}
	return dns.ZoneScope(r.ZoneID)
}

var check = validator.New()

func mustRegister(err error) {
	if err != nil {
		panic(fmt.Sprintf("register custom validator: %v", err))
	}
}

func init() {
	check.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	// 1 means automatic.
	mustRegister(check.RegisterValidation("ttl", func(fl validator.FieldLevel) bool {
		ttl := fl.Field().Int()
		return ttl == 1 || (ttl >= 60 && ttl <= 86400)
	}))
}

var formats = map[string]string{
	"required": "is required",
	"min":      "must be at least %v",
	"max":      "must be at most %v",
	"oneof":    "must be one of: [%v]",
	"fqdn":     "must be a fully qualified domain name",
	"ttl":      "must be 1 (automatic) or between 60 and 86400",
}

// describe turns the first validation failure into a readable error.
func describe(err error) error {
	errs, ok := err.(validator.ValidationErrors)
	if !ok || len(errs) == 0 {
		return err
	}
	fe := errs[0]
	field := fe.Namespace()
	if i := strings.Index(field, "."); i >= 0 {
		field = field[i+1:]
	}
	format, ok := formats[fe.Tag()]
	if !ok {
		return fmt.Errorf("%s: failed %q validation", field, fe.Tag())
	}
	if strings.Contains(format, "%") {
		return fmt.Errorf("%s: "+format, field, fe.Param())
	}
	return fmt.Errorf("%s: %s", field, format)
}

// normalize fills defaults and canonicalizes fields in place.
func (r *Request) normalize() {
	r.Kind = Kind(strings.ToLower(strings.TrimSpace(string(r.Kind))))
	if r.Record != nil {
		r.Record.Type = strings.ToUpper(strings.TrimSpace(r.Record.Type))
		r.Record.Name = strings.TrimSpace(r.Record.Name)
		if r.Record.empty() && r.Record.Priority == nil && r.Record.Comment == "" && len(r.Record.Tags) == 0 && r.Record.Proxied == nil {
			r.Record = nil
		}
	}
	if r.PageRule != nil && r.PageRule.Priority == 0 {
		r.PageRule.Priority = 1
	}
}

// Validate normalizes the request and checks every input rule in one pass,
// before any provider call is made. Failures are InputErrors.
func (r *Request) Validate() error {
	r.normalize()

	if err := check.Struct(r); err != nil {
		return &Error{Kind: InputError, Err: describe(err)}
	}

	switch r.Kind {
	case KindZone:
		if r.Zone == nil {
			return inputErrorf("zone request requires 'zone'")
		}
		if r.Record != nil || r.Import != nil || r.PageRule != nil {
			return inputErrorf("zone request accepts only 'zone'")
		}
		if r.ZoneID != "" {
			return inputErrorf("zone request is scoped by 'account_id', not 'zone_id'")
		}
	case KindDNSRecord:
		if r.ZoneID == "" {
			return inputErrorf("dns_record request requires 'zone_id'")
		}
		if r.Zone != nil || r.PageRule != nil {
			return inputErrorf("dns_record request accepts only 'record' or 'import'")
		}
		if r.Record != nil && r.Import != nil {
			return inputErrorf("'record' and 'import' are mutually exclusive")
		}
		if r.Record == nil && r.Import == nil {
			return inputErrorf("one of 'record' or 'import' is required")
		}
		if r.Record != nil {
			if err := r.Record.validate(); err != nil {
				return err
			}
		}
		if r.Import != nil {
			if err := r.Import.validate(); err != nil {
				return err
			}
		}
	case KindPageRule:
		if r.ZoneID == "" {
			return inputErrorf("page_rule request requires 'zone_id'")
		}
		if r.PageRule == nil {
			return inputErrorf("page_rule request requires 'page_rule'")
		}
		if r.Zone != nil || r.Record != nil || r.Import != nil {
			return inputErrorf("page_rule request accepts only 'page_rule'")
		}
	}
	return nil
}

// validate checks that the zone file is a readable regular file.
func (s *ImportSpec) validate() error {
	info, err := os.Stat(s.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return inputErrorf("import file %s does not exist", s.Path)
		}
		return inputErrorf("import file %s: %v", s.Path, err)
	}
	if info.IsDir() {
		return inputErrorf("import file %s is a directory", s.Path)
	}
	return nil
}

// validate enforces the rules that span several record fields: name, type,
// ttl and value come together, and the value uses the representation its
// type calls for.
func (s *RecordSpec) validate() error {
	var missing []string
	if s.Name == "" {
		missing = append(missing, "name")
	}
	if s.Type == "" {
		missing = append(missing, "type")
	}
	if s.TTL == 0 {
		missing = append(missing, "ttl")
	}
	if s.Value.empty() {
		missing = append(missing, "value")
	}
	if len(missing) > 0 {
		return inputErrorf("record: name, type, ttl and value must be given together; missing %s", strings.Join(missing, ", "))
	}

	if s.Value.Content != "" && len(s.Value.Data) > 0 {
		return inputErrorf("record: value must carry exactly one of 'content' or 'data'")
	}
	if dns.IsStructuredType(s.Type) && len(s.Value.Data) == 0 {
		return inputErrorf("record: %s records carry their value in 'data'", s.Type)
	}
	if !dns.IsStructuredType(s.Type) && s.Value.Content == "" {
		return inputErrorf("record: %s records carry their value in 'content'", s.Type)
	}
	return nil
}
