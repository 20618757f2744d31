// Package settings models the typed key/value settings stored in the database.
// Every value carries its kind and is validated when parsed, so readers never
// have to guess what a stored string means.
package settings

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/chatlens/chatlens/pkg/db/models"
)

type Kind string

const (
	KindString  Kind = "string"
	KindNumber  Kind = "number"
	KindBoolean Kind = "boolean"
	KindJSON    Kind = "json"
)

const (
	EmbeddingEnabled   = "embedding_enabled"
	AutoResponse       = "auto_response"
	ResponseThreshold  = "response_threshold"
	MaxResponseTime    = "max_response_time"
	BusinessHoursStart = "business_hours_start"
	BusinessHoursEnd   = "business_hours_end"
	LineToken          = "line_token"
	LineSecret         = "line_secret"
	WebhookURL         = "webhook_url"
)

// Value is a tagged variant. Only the field matching Kind is meaningful.
type Value struct {
	Kind   Kind
	String string
	Number float64
	Bool   bool
	JSON   json.RawMessage
}

func StringValue(s string) Value { return Value{Kind: KindString, String: s} }
func NumberValue(n float64) Value { return Value{Kind: KindNumber, Number: n} }
func BoolValue(b bool) Value { return Value{Kind: KindBoolean, Bool: b} }
func JSONValue(raw []byte) Value { return Value{Kind: KindJSON, JSON: raw} }

// Parse decodes a stored string according to kind. Empty numbers parse as 0
// and empty json as {}.
func Parse(kind Kind, raw string) (Value, error) {
	switch kind {
	case KindString:
		return StringValue(raw), nil
	case KindNumber:
		if strings.TrimSpace(raw) == "" {
			return NumberValue(0), nil
		}
		n, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return Value{}, fmt.Errorf("invalid number %q", raw)
		}
		return NumberValue(n), nil
	case KindBoolean:
		switch strings.ToLower(strings.TrimSpace(raw)) {
		case "true", "1":
			return BoolValue(true), nil
		case "false", "0", "":
			return BoolValue(false), nil
		}
		return Value{}, fmt.Errorf("invalid boolean %q", raw)
	case KindJSON:
		if strings.TrimSpace(raw) == "" {
			return JSONValue([]byte("{}")), nil
		}
		if !json.Valid([]byte(raw)) {
			return Value{}, fmt.Errorf("invalid json %q", raw)
		}
		return JSONValue([]byte(raw)), nil
	}
	return Value{}, fmt.Errorf("unknown setting type %q", kind)
}

// Serialize is the inverse of Parse.
func (v Value) Serialize() string {
	switch v.Kind {
	case KindNumber:
		return strconv.FormatFloat(v.Number, 'f', -1, 64)
	case KindBoolean:
		return strconv.FormatBool(v.Bool)
	case KindJSON:
		var buf bytes.Buffer
		if err := json.Compact(&buf, v.JSON); err != nil {
			return string(v.JSON)
		}
		return buf.String()
	default:
		return v.String
	}
}

// Interface returns the Go value for JSON encoding.
func (v Value) Interface() interface{} {
	switch v.Kind {
	case KindNumber:
		return v.Number
	case KindBoolean:
		return v.Bool
	case KindJSON:
		return v.JSON
	default:
		return v.String
	}
}

// FromInterface converts a decoded JSON value into a Value of the given kind.
func FromInterface(kind Kind, in interface{}) (Value, error) {
	switch kind {
	case KindString:
		s, ok := in.(string)
		if !ok {
			return Value{}, fmt.Errorf("expected a string, got %T", in)
		}
		return StringValue(s), nil
	case KindNumber:
		switch n := in.(type) {
		case float64:
			return NumberValue(n), nil
		case string:
			return Parse(KindNumber, n)
		}
		return Value{}, fmt.Errorf("expected a number, got %T", in)
	case KindBoolean:
		switch b := in.(type) {
		case bool:
			return BoolValue(b), nil
		case string:
			return Parse(KindBoolean, b)
		}
		return Value{}, fmt.Errorf("expected a boolean, got %T", in)
	case KindJSON:
		raw, err := json.Marshal(in)
		if err != nil {
			return Value{}, err
		}
		return JSONValue(raw), nil
	}
	return Value{}, fmt.Errorf("unknown setting type %q", kind)
}

type Definition struct {
	Key         string
	Default     Value
	Description string
	validate    func(Value) error
}

var clockRegexp = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

func validClock(v Value) error {
	if !clockRegexp.MatchString(v.String) {
		return fmt.Errorf("expected HH:MM, got %q", v.String)
	}
	return nil
}

func numberBetween(min, max float64) func(Value) error {
	return func(v Value) error {
		if v.Number < min || v.Number > max {
			return fmt.Errorf("must be between %g and %g", min, max)
		}
		return nil
	}
}

var definitions = []Definition{
	{Key: LineToken, Default: StringValue(""), Description: "LINE Channel Access Token"},
	{Key: LineSecret, Default: StringValue(""), Description: "LINE Channel Secret"},
	{Key: WebhookURL, Default: StringValue(""), Description: "Webhook URL"},
	{Key: EmbeddingEnabled, Default: BoolValue(true), Description: "เปิดใช้งาน Embedding"},
	{Key: AutoResponse, Default: BoolValue(false), Description: "ตอบกลับอัตโนมัติ"},
	{Key: ResponseThreshold, Default: NumberValue(80), Description: "เกณฑ์ความมั่นใจในการตอบกลับอัตโนมัติ (%)", validate: numberBetween(0, 100)},
	{Key: MaxResponseTime, Default: NumberValue(300), Description: "เวลาตอบกลับสูงสุด (วินาที)", validate: numberBetween(0, 86400)},
	{Key: BusinessHoursStart, Default: StringValue("09:00"), Description: "เวลาเปิดทำการ", validate: validClock},
	{Key: BusinessHoursEnd, Default: StringValue("18:00"), Description: "เวลาปิดทำการ", validate: validClock},
}

func Definitions() []Definition {
	return definitions
}

func definition(key string) (Definition, bool) {
	for _, d := range definitions {
		if d.Key == key {
			return d, true
		}
	}
	return Definition{}, false
}

// Settings is the effective settings mapping.
type Settings map[string]Value

// Defaults returns the built-in settings.
func Defaults() Settings {
	s := Settings{}
	for _, d := range definitions {
		s[d.Key] = d.Default
	}
	return s
}

// DefaultModels returns the rows seeded into a new database.
func DefaultModels() []models.Setting {
	rows := make([]models.Setting, 0, len(definitions))
	for _, d := range definitions {
		rows = append(rows, models.Setting{
			Key:         d.Key,
			Value:       d.Default.Serialize(),
			Type:        string(d.Default.Kind),
			Description: d.Description,
		})
	}
	return rows
}

// FromModels overlays stored rows on the defaults. Rows that fail to parse keep
// the default and are reported.
func FromModels(rows []models.Setting) (Settings, []error) {
	s := Defaults()
	var errs []error
	for _, row := range rows {
		v, err := Parse(Kind(row.Type), row.Value)
		if err != nil {
			errs = append(errs, fmt.Errorf("setting %s: %w", row.Key, err))
			continue
		}
		if d, ok := definition(row.Key); ok && d.Default.Kind != v.Kind {
			errs = append(errs, fmt.Errorf("setting %s: stored as %s, expected %s", row.Key, v.Kind, d.Default.Kind))
			continue
		}
		s[row.Key] = v
	}
	return s, errs
}

// ToModels converts the given keys to rows, sorted by key.
func (s Settings) ToModels() []models.Setting {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	rows := make([]models.Setting, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, models.Setting{Key: k, Value: s[k].Serialize(), Type: string(s[k].Kind)})
	}
	return rows
}

// Validate checks an update. Known keys must keep their kind and pass their
// range checks; unknown keys are accepted as strings or json.
func Validate(key string, v Value) error {
	d, ok := definition(key)
	if !ok {
		if key == "" {
			return fmt.Errorf("empty setting key")
		}
		return nil
	}
	if v.Kind != d.Default.Kind {
		return fmt.Errorf("setting %s must be a %s", key, d.Default.Kind)
	}
	if d.validate != nil {
		if err := d.validate(v); err != nil {
			return fmt.Errorf("setting %s: %w", key, err)
		}
	}
	return nil
}

// KindOf returns the kind of a known key. Unknown keys are strings.
func KindOf(key string) Kind {
	if d, ok := definition(key); ok {
		return d.Default.Kind
	}
	return KindString
}

func (s Settings) Bool(key string) bool {
	if v, ok := s[key]; ok && v.Kind == KindBoolean {
		return v.Bool
	}
	if d, ok := definition(key); ok {
		return d.Default.Bool
	}
	return false
}

func (s Settings) Number(key string) float64 {
	if v, ok := s[key]; ok && v.Kind == KindNumber {
		return v.Number
	}
	if d, ok := definition(key); ok {
		return d.Default.Number
	}
	return 0
}

func (s Settings) String(key string) string {
	if v, ok := s[key]; ok && v.Kind == KindString {
		return v.String
	}
	if d, ok := definition(key); ok {
		return d.Default.String
	}
	return ""
}

// AutoReplyThreshold converts response_threshold (a percentage) to a confidence.
func (s Settings) AutoReplyThreshold() float64 {
	return s.Number(ResponseThreshold) / 100
}

// Public returns the settings as plain values for the API, hiding secrets.
func (s Settings) Public() map[string]interface{} {
	out := make(map[string]interface{}, len(s))
	for k, v := range s {
		if (k == LineToken || k == LineSecret) && v.String != "" {
			out[k] = "********"
			continue
		}
		out[k] = v.Interface()
	}
	return out
}
