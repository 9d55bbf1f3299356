// Package parser turns the aviationweather.gov TAF payload into validated TAFs and
// into the weather events served by GET /weather/{airport}.
package parser

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
	_ "time/tzdata" // America/New_York must resolve on hosts without a zoneinfo database

	"github.com/kjstillabower/taf-weather-service/internal/models"
)

// EventTimeLayout renders event bounds, e.g. "Sat 03-09 07:10 PM".
const EventTimeLayout = "Mon 01-02 03:04 PM"

// DefaultTimeZone is the zone event bounds are rendered in.
const DefaultTimeZone = "America/New_York"

// ParseError reports a payload that is not a JSON array. No records are returned with it.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse taf payload: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Result is the outcome of validating one element of the payload.
// Exactly one of TAF (Err == nil) or Err is meaningful.
type Result struct {
	Index int
	Raw   json.RawMessage
	TAF   models.TAF
	Err   error
}

// OK reports whether the element produced a TAF.
func (r Result) OK() bool { return r.Err == nil }

// Parse validates every element of a top-level JSON array independently. A malformed
// element only fails its own Result; a payload that is not an array fails the call.
func Parse(data []byte) ([]Result, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, &ParseError{Err: fmt.Errorf("expected JSON array")}
	}
	var elems []json.RawMessage
	if err := json.Unmarshal(trimmed, &elems); err != nil {
		return nil, &ParseError{Err: err}
	}

	results := make([]Result, 0, len(elems))
	for i, raw := range elems {
		res := Result{Index: i, Raw: raw}
		res.TAF, res.Err = models.DecodeTAFJSON(raw)
		results = append(results, res)
	}
	return results, nil
}

// ParseTAFs returns the TAFs that validated, in arrival order.
func ParseTAFs(data []byte) ([]models.TAF, error) {
	results, err := Parse(data)
	if err != nil {
		return nil, err
	}
	tafs := make([]models.TAF, 0, len(results))
	for _, res := range results {
		if res.OK() {
			tafs = append(tafs, res.TAF)
		}
	}
	return tafs, nil
}

// Rejected returns the results that failed validation.
func Rejected(results []Result) []Result {
	var out []Result
	for _, res := range results {
		if !res.OK() {
			out = append(out, res)
		}
	}
	return out
}

// ExtractEvents emits one event per forecast with a weather string, walking valid TAFs in
// arrival order and their forecasts in reporting order. Times are rendered in loc.
func ExtractEvents(results []Result, loc *time.Location) []models.WeatherEvent {
	events := []models.WeatherEvent{}
	for _, res := range results {
		if !res.OK() {
			continue
		}
		for _, f := range res.TAF.Fcsts {
			if f.WxString == nil {
				continue
			}
			events = append(events, models.WeatherEvent{
				TimeFrom: FormatEventTime(f.TimeFrom, loc),
				TimeTo:   FormatEventTime(f.TimeTo, loc),
				WxString: *f.WxString,
			})
		}
	}
	return events
}

// FormatEventTime renders t in loc using EventTimeLayout.
func FormatEventTime(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(EventTimeLayout)
}

// LoadTimeZone resolves an IANA zone name, falling back to DefaultTimeZone when empty.
func LoadTimeZone(name string) (*time.Location, error) {
	if name == "" {
		name = DefaultTimeZone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("load time zone %q: %w", name, err)
	}
	return loc, nil
}

// EasternTime returns the America/New_York zone.
func EasternTime() *time.Location {
	loc, err := LoadTimeZone(DefaultTimeZone)
	if err != nil {
		panic(err)
	}
	return loc
}
