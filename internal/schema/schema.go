// Package schema validates request bodies against the embedded OpenAPI
// document.
package schema

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/pobradovic08/netdash/internal/model"
)

// Request body schema names.
const (
	DeviceInput      = "DeviceInput"
	PortInput        = "PortInput"
	AlertInput       = "AlertInput"
	HealthInput      = "HealthInput"
	AcknowledgeInput = "AcknowledgeInput"
	AlertRulePatch   = "AlertRulePatch"
)

//go:embed openapi.yaml
var document []byte

// Document returns the raw OpenAPI document.
func Document() []byte {
	return document
}

// ErrMalformed is returned when a body is not a JSON object.
var ErrMalformed = errors.New("request body must be a JSON object")

// Validator checks request bodies against the component schemas of the
// OpenAPI document.
type Validator struct {
	doc *openapi3.T
}

// New loads and validates the embedded document.
func New(ctx context.Context) (*Validator, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(document)
	if err != nil {
		return nil, fmt.Errorf("load openapi document: %w", err)
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("validate openapi document: %w", err)
	}
	for _, name := range []string{DeviceInput, PortInput, AlertInput, HealthInput, AcknowledgeInput, AlertRulePatch} {
		if _, ok := doc.Components.Schemas[name]; !ok {
			return nil, fmt.Errorf("openapi document has no %s schema", name)
		}
	}
	return &Validator{doc: doc}, nil
}

// Decode validates body against the named schema and decodes it into dst.
// A body that parses but violates the schema yields a non-empty list of
// invalid parameters and a nil error. A body that does not parse yields
// ErrMalformed.
func (v *Validator) Decode(name string, body []byte, dst any) ([]model.InvalidParam, error) {
	ref, ok := v.doc.Components.Schemas[name]
	if !ok || ref.Value == nil {
		return nil, fmt.Errorf("unknown schema %q", name)
	}

	var generic any
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&generic); err != nil {
		return nil, ErrMalformed
	}
	obj, ok := generic.(map[string]any)
	if !ok {
		return nil, ErrMalformed
	}
	normalizeNumbers(obj)

	var params []model.InvalidParam
	if name == HealthInput {
		params = coerceHealth(obj)
	}

	if err := ref.Value.VisitJSON(obj, openapi3.MultiErrors()); err != nil {
		params = append(params, collect(err)...)
	}
	params = append(params, checkFormats(name, obj)...)
	if len(params) > 0 {
		sortParams(params)
		return params, nil
	}

	clean, err := json.Marshal(obj)
	if err != nil {
		return nil, fmt.Errorf("re-encode %s: %w", name, err)
	}
	if err := json.Unmarshal(clean, dst); err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	return nil, nil
}

// normalizeNumbers replaces json.Number values with float64, which is what
// the schema visitor expects.
func normalizeNumbers(obj map[string]any) {
	for k, val := range obj {
		switch t := val.(type) {
		case json.Number:
			if f, err := t.Float64(); err == nil {
				obj[k] = f
			}
		case map[string]any:
			normalizeNumbers(t)
		case []any:
			for i, item := range t {
				if n, ok := item.(json.Number); ok {
					if f, err := n.Float64(); err == nil {
						t[i] = f
					}
				} else if m, ok := item.(map[string]any); ok {
					normalizeNumbers(m)
				}
			}
		}
	}
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// coerceHealth accepts the loose forms health reporters send: numeric and
// boolean strings, and dates in a handful of layouts, normalised to RFC 3339.
func coerceHealth(obj map[string]any) []model.InvalidParam {
	var params []model.InvalidParam

	for _, key := range []string{"uptime", "responseTime", "consecutiveFailures"} {
		s, ok := obj[key].(string)
		if !ok {
			continue
		}
		s = strings.TrimSpace(s)
		if s == "" && key == "responseTime" {
			obj[key] = nil
			continue
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			params = append(params, model.InvalidParam{Name: key, Reason: "must be a number"})
			continue
		}
		obj[key] = f
	}

	if s, ok := obj["isOnline"].(string); ok {
		b, err := strconv.ParseBool(strings.TrimSpace(s))
		if err != nil {
			params = append(params, model.InvalidParam{Name: "isOnline", Reason: "must be a boolean"})
		} else {
			obj["isOnline"] = b
		}
	}

	for _, key := range []string{"lastOnline", "lastOffline"} {
		s, ok := obj[key].(string)
		if !ok {
			continue
		}
		t, err := parseDate(s)
		if err != nil {
			params = append(params, model.InvalidParam{Name: key, Reason: "must be a date"})
			continue
		}
		obj[key] = t.UTC().Format(time.RFC3339Nano)
	}
	return params
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}

// checkFormats applies the checks the schema language cannot express.
func checkFormats(name string, obj map[string]any) []model.InvalidParam {
	if name != DeviceInput {
		return nil
	}
	var params []model.InvalidParam
	if s, ok := obj["ipAddress"].(string); ok && s != "" {
		if _, err := netip.ParseAddr(strings.TrimSpace(s)); err != nil {
			params = append(params, model.InvalidParam{Name: "ipAddress", Reason: "must be an IPv4 or IPv6 address"})
		}
	}
	if s, ok := obj["macAddress"].(string); ok && s != "" {
		if _, err := net.ParseMAC(strings.TrimSpace(s)); err != nil {
			params = append(params, model.InvalidParam{Name: "macAddress", Reason: "must be a hardware address"})
		}
	}
	return params
}

// collect flattens the visitor's errors into invalid parameters named by
// their JSON pointer.
func collect(err error) []model.InvalidParam {
	var multi openapi3.MultiError
	if errors.As(err, &multi) {
		var params []model.InvalidParam
		for _, e := range multi {
			params = append(params, collect(e)...)
		}
		return params
	}

	var se *openapi3.SchemaError
	if errors.As(err, &se) {
		ptr := se.JSONPointer()
		field := strings.Join(ptr, ".")
		if se.SchemaField == "required" {
			// the pointer names the object; the reason names the property
			if prop := missingProperty(se.Reason); prop != "" {
				field = joinField(field, prop)
			}
		}
		if field == "" {
			field = "body"
		}
		return []model.InvalidParam{{Name: field, Reason: se.Reason}}
	}
	return []model.InvalidParam{{Name: "body", Reason: err.Error()}}
}

func missingProperty(reason string) string {
	// kin-openapi reports `property "name" is missing`
	_, rest, ok := strings.Cut(reason, `property "`)
	if !ok {
		return ""
	}
	prop, _, ok := strings.Cut(rest, `"`)
	if !ok {
		return ""
	}
	return prop
}

func joinField(prefix, name string) string {
	if prefix == "" {
		return name
	}
	if strings.HasSuffix(prefix, "."+name) || prefix == name {
		return prefix
	}
	return prefix + "." + name
}

func sortParams(params []model.InvalidParam) {
	sort.SliceStable(params, func(i, j int) bool {
		return params[i].Name < params[j].Name
	})
}
