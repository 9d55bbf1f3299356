package models

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// BareUTCLayout is the layout upstream uses for dbPopTime, bulletinTime and issueTime.
const BareUTCLayout = "2006-01-02 15:04:05"

// time.Parse tolerates fractional seconds the layout does not mention, so the shape is
// checked separately.
var bareUTCPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}$`)

// ParseBareUTC reads a "YYYY-MM-DD HH:MM:SS" string that carries no offset and returns it
// as a UTC timestamp. Any other shape is rejected with a ValidationError.
func ParseBareUTC(s string) (time.Time, error) {
	if !bareUTCPattern.MatchString(s) {
		return time.Time{}, &ValidationError{Reason: ReasonWrongFormat, Message: fmt.Sprintf("%q does not match YYYY-MM-DD HH:MM:SS", s)}
	}
	t, err := time.ParseInLocation(BareUTCLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, &ValidationError{Reason: ReasonWrongFormat, Message: err.Error()}
	}
	return t, nil
}

// fieldReader pulls typed values out of a decoded JSON object and keeps the first failure.
type fieldReader struct {
	prefix string
	obj    map[string]any
	err    *ValidationError
}

func newFieldReader(prefix string, obj map[string]any) *fieldReader {
	return &fieldReader{prefix: prefix, obj: obj}
}

func (r *fieldReader) path(key string) string {
	if r.prefix == "" {
		return key
	}
	return r.prefix + "." + key
}

func (r *fieldReader) fail(key string, reason Reason, msg string) {
	if r.err != nil {
		return
	}
	r.err = &ValidationError{Field: r.path(key), Reason: reason, Message: msg}
}

// adopt records a nested failure, keeping its already-qualified path.
func (r *fieldReader) adopt(err error) {
	if r.err != nil || err == nil {
		return
	}
	if ve, ok := err.(*ValidationError); ok {
		r.err = ve
		return
	}
	r.err = &ValidationError{Field: r.prefix, Reason: ReasonWrongType, Message: err.Error()}
}

func (r *fieldReader) lookup(key string, required bool) (any, bool) {
	v, ok := r.obj[key]
	if !ok || v == nil {
		if required {
			r.fail(key, ReasonMissing, "field required")
		}
		return nil, false
	}
	return v, true
}

func (r *fieldReader) String(key string) string {
	v, ok := r.lookup(key, true)
	if !ok {
		return ""
	}
	s, reason, msg := coerceString(v)
	if reason != "" {
		r.fail(key, reason, msg)
	}
	return s
}

func (r *fieldReader) OptString(key string) *string {
	v, ok := r.lookup(key, false)
	if !ok {
		return nil
	}
	s, reason, msg := coerceString(v)
	if reason != "" {
		r.fail(key, reason, msg)
		return nil
	}
	return &s
}

func (r *fieldReader) Int(key string) int {
	v, ok := r.lookup(key, true)
	if !ok {
		return 0
	}
	n, reason, msg := coerceInt(v)
	if reason != "" {
		r.fail(key, reason, msg)
	}
	return n
}

func (r *fieldReader) OptInt(key string) *int {
	v, ok := r.lookup(key, false)
	if !ok {
		return nil
	}
	n, reason, msg := coerceInt(v)
	if reason != "" {
		r.fail(key, reason, msg)
		return nil
	}
	return &n
}

func (r *fieldReader) Float(key string) float64 {
	v, ok := r.lookup(key, true)
	if !ok {
		return 0
	}
	f, reason, msg := coerceFloat(v)
	if reason != "" {
		r.fail(key, reason, msg)
	}
	return f
}

func (r *fieldReader) Time(key string) time.Time {
	v, ok := r.lookup(key, true)
	if !ok {
		return time.Time{}
	}
	t, reason, msg := coerceTime(v)
	if reason != "" {
		r.fail(key, reason, msg)
	}
	return t
}

func (r *fieldReader) OptTime(key string) *time.Time {
	v, ok := r.lookup(key, false)
	if !ok {
		return nil
	}
	t, reason, msg := coerceTime(v)
	if reason != "" {
		r.fail(key, reason, msg)
		return nil
	}
	return &t
}

func (r *fieldReader) BareUTC(key string) time.Time {
	v, ok := r.lookup(key, true)
	if !ok {
		return time.Time{}
	}
	s, isString := v.(string)
	if !isString {
		r.fail(key, ReasonWrongType, fmt.Sprintf("expected string, got %s", jsonKind(v)))
		return time.Time{}
	}
	t, err := ParseBareUTC(s)
	if err != nil {
		r.fail(key, ReasonWrongFormat, err.(*ValidationError).Message)
	}
	return t
}

func (r *fieldReader) Visibility(key string) Visibility {
	v, ok := r.lookup(key, true)
	if !ok {
		return Visibility{}
	}
	vis, reason, msg := coerceVisibility(v)
	if reason != "" {
		r.fail(key, reason, msg)
	}
	return vis
}

// Objects returns the elements of a list of JSON objects. Missing or null means empty.
func (r *fieldReader) Objects(key string) []map[string]any {
	v, ok := r.lookup(key, false)
	if !ok {
		return nil
	}
	list, isList := v.([]any)
	if !isList {
		r.fail(key, ReasonWrongType, fmt.Sprintf("expected array, got %s", jsonKind(v)))
		return nil
	}
	out := make([]map[string]any, 0, len(list))
	for i, item := range list {
		obj, isObj := item.(map[string]any)
		if !isObj {
			r.fail(fmt.Sprintf("%s[%d]", key, i), ReasonWrongType, fmt.Sprintf("expected object, got %s", jsonKind(item)))
			return nil
		}
		out = append(out, obj)
	}
	return out
}

// Tokens returns a list of opaque tokens: strings as-is, anything else as compact JSON text.
func (r *fieldReader) Tokens(key string) []string {
	out := []string{}
	v, ok := r.lookup(key, false)
	if !ok {
		return out
	}
	list, isList := v.([]any)
	if !isList {
		r.fail(key, ReasonWrongType, fmt.Sprintf("expected array, got %s", jsonKind(v)))
		return out
	}
	for i, item := range list {
		if s, isString := item.(string); isString {
			out = append(out, s)
			continue
		}
		b, err := json.Marshal(item)
		if err != nil {
			r.fail(fmt.Sprintf("%s[%d]", key, i), ReasonWrongType, err.Error())
			return out
		}
		out = append(out, string(b))
	}
	return out
}

func coerceString(v any) (string, Reason, string) {
	switch val := v.(type) {
	case string:
		return val, "", ""
	case json.Number:
		return val.String(), "", ""
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), "", ""
	case int:
		return strconv.Itoa(val), "", ""
	case int64:
		return strconv.FormatInt(val, 10), "", ""
	default:
		return "", ReasonWrongType, fmt.Sprintf("expected string, got %s", jsonKind(v))
	}
}

func coerceInt(v any) (int, Reason, string) {
	switch val := v.(type) {
	case int:
		return val, "", ""
	case int64:
		return int(val), "", ""
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return int(i), "", ""
		}
		f, err := val.Float64()
		if err != nil {
			return 0, ReasonWrongType, fmt.Sprintf("expected integer, got %s", val)
		}
		return integralFloat(f)
	case float64:
		return integralFloat(val)
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(val))
		if err != nil {
			return 0, ReasonWrongType, fmt.Sprintf("expected integer, got %q", val)
		}
		return i, "", ""
	default:
		return 0, ReasonWrongType, fmt.Sprintf("expected integer, got %s", jsonKind(v))
	}
}

func integralFloat(f float64) (int, Reason, string) {
	if f != math.Trunc(f) || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, ReasonWrongType, fmt.Sprintf("expected integer, got %v", f)
	}
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, ReasonWrongType, fmt.Sprintf("integer %v out of range", f)
	}
	return int(f), "", ""
}

func coerceFloat(v any) (float64, Reason, string) {
	switch val := v.(type) {
	case float64:
		return val, "", ""
	case int:
		return float64(val), "", ""
	case int64:
		return float64(val), "", ""
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return 0, ReasonWrongType, fmt.Sprintf("expected number, got %s", val)
		}
		return f, "", ""
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return 0, ReasonWrongType, fmt.Sprintf("expected number, got %q", val)
		}
		return f, "", ""
	default:
		return 0, ReasonWrongType, fmt.Sprintf("expected number, got %s", jsonKind(v))
	}
}

// maxEpochSeconds bounds numeric timestamps to values a float64 holds exactly.
const maxEpochSeconds = 1 << 53

// coerceTime accepts Unix epoch seconds (number or integer string) or an RFC 3339 string.
// The result is always in UTC.
func coerceTime(v any) (time.Time, Reason, string) {
	switch val := v.(type) {
	case string:
		if secs, err := strconv.ParseInt(val, 10, 64); err == nil {
			if secs > maxEpochSeconds || secs < -maxEpochSeconds {
				return time.Time{}, ReasonWrongType, fmt.Sprintf("epoch seconds %d out of range", secs)
			}
			return time.Unix(secs, 0).UTC(), "", ""
		}
		t, err := time.Parse(time.RFC3339, val)
		if err != nil {
			return time.Time{}, ReasonWrongFormat, fmt.Sprintf("%q is neither epoch seconds nor RFC 3339", val)
		}
		return t.UTC(), "", ""
	case json.Number, float64, int, int64:
		f, reason, msg := coerceFloat(val)
		if reason != "" {
			return time.Time{}, reason, msg
		}
		if math.IsNaN(f) || math.Abs(f) > maxEpochSeconds {
			return time.Time{}, ReasonWrongType, fmt.Sprintf("epoch seconds %v out of range", f)
		}
		sec, frac := math.Modf(f)
		return time.Unix(int64(sec), int64(frac*1e9)).UTC(), "", ""
	default:
		return time.Time{}, ReasonWrongType, fmt.Sprintf("expected timestamp, got %s", jsonKind(v))
	}
}

func jsonKind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case string:
		return "string"
	case json.Number, float64, int, int64:
		return "number"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}
