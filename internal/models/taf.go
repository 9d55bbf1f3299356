package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Cloud is one reported cloud layer, in reporting order within its forecast.
type Cloud struct {
	Cover string  `json:"cover"`
	Base  *int    `json:"base"`
	Type  *string `json:"type"`
}

// Forecast is one forecast period of a TAF.
type Forecast struct {
	TimeGroup   int        `json:"timeGroup"`
	TimeFrom    time.Time  `json:"timeFrom"`
	TimeTo      time.Time  `json:"timeTo"`
	TimeBec     *time.Time `json:"timeBec"`
	FcstChange  *string    `json:"fcstChange"`
	Probability *string    `json:"probability"`
	Wdir        *int       `json:"wdir"`
	Wspd        *int       `json:"wspd"`
	Wgst        *int       `json:"wgst"`
	WshearHgt   *int       `json:"wshearHgt"`
	WshearDir   *int       `json:"wshearDir"`
	WshearSpd   *int       `json:"wshearSpd"`
	Visib       Visibility `json:"visib"`
	Altim       *string    `json:"altim"`
	VertVis     *string    `json:"vertVis"`
	WxString    *string    `json:"wxString"`
	NotDecoded  *string    `json:"notDecoded"`
	Clouds      []Cloud    `json:"clouds"`
	IcgTurb     []string   `json:"icgTurb"`
	Temp        []string   `json:"temp"`
}

// TAF is one Terminal Aerodrome Forecast bulletin for one station, as served by
// https://aviationweather.gov/data/api/#/Data/dataTaf.
// MostRecent and Prior are upstream 0/1 flags and are kept as integers.
type TAF struct {
	TafID         int        `json:"tafId"`
	IcaoID        string     `json:"icaoId"`
	DBPopTime     time.Time  `json:"dbPopTime"`
	BulletinTime  time.Time  `json:"bulletinTime"`
	IssueTime     time.Time  `json:"issueTime"`
	ValidTimeFrom time.Time  `json:"validTimeFrom"`
	ValidTimeTo   time.Time  `json:"validTimeTo"`
	RawTAF        string     `json:"rawTAF"`
	MostRecent    int        `json:"mostRecent"`
	Remarks       string     `json:"remarks"`
	Lat           float64    `json:"lat"`
	Lon           float64    `json:"lon"`
	Elev          int        `json:"elev"`
	Prior         int        `json:"prior"`
	Name          string     `json:"name"`
	Fcsts         []Forecast `json:"fcsts"`
}

// DecodeCloud builds a Cloud from a decoded JSON object.
func DecodeCloud(obj map[string]any) (Cloud, error) {
	return decodeCloud("", obj)
}

func decodeCloud(prefix string, obj map[string]any) (Cloud, error) {
	r := newFieldReader(prefix, obj)
	c := Cloud{
		Cover: r.String("cover"),
		Base:  r.OptInt("base"),
		Type:  r.OptString("type"),
	}
	if r.err != nil {
		return Cloud{}, r.err
	}
	return c, nil
}

// DecodeForecast builds a Forecast from a decoded JSON object.
func DecodeForecast(obj map[string]any) (Forecast, error) {
	return decodeForecast("", obj)
}

func decodeForecast(prefix string, obj map[string]any) (Forecast, error) {
	r := newFieldReader(prefix, obj)
	f := Forecast{
		TimeGroup:   r.Int("timeGroup"),
		TimeFrom:    r.Time("timeFrom"),
		TimeTo:      r.Time("timeTo"),
		TimeBec:     r.OptTime("timeBec"),
		FcstChange:  r.OptString("fcstChange"),
		Probability: r.OptString("probability"),
		Wdir:        r.OptInt("wdir"),
		Wspd:        r.OptInt("wspd"),
		Wgst:        r.OptInt("wgst"),
		WshearHgt:   r.OptInt("wshearHgt"),
		WshearDir:   r.OptInt("wshearDir"),
		WshearSpd:   r.OptInt("wshearSpd"),
		Visib:       r.Visibility("visib"),
		Altim:       r.OptString("altim"),
		VertVis:     r.OptString("vertVis"),
		WxString:    r.OptString("wxString"),
		NotDecoded:  r.OptString("notDecoded"),
	}
	clouds := r.Objects("clouds")
	f.IcgTurb = r.Tokens("icgTurb")
	f.Temp = r.Tokens("temp")

	f.Clouds = make([]Cloud, 0, len(clouds))
	for i, obj := range clouds {
		if r.err != nil {
			break
		}
		c, err := decodeCloud(r.path(fmt.Sprintf("clouds[%d]", i)), obj)
		r.adopt(err)
		f.Clouds = append(f.Clouds, c)
	}
	if r.err != nil {
		return Forecast{}, r.err
	}
	return f, nil
}

// DecodeTAF builds a TAF from a decoded JSON object, validating and coercing every field.
// It returns a *ValidationError naming the first field that is missing, of the wrong type
// or in the wrong format.
func DecodeTAF(obj map[string]any) (TAF, error) {
	r := newFieldReader("", obj)
	t := TAF{
		TafID:         r.Int("tafId"),
		IcaoID:        r.String("icaoId"),
		DBPopTime:     r.BareUTC("dbPopTime"),
		BulletinTime:  r.BareUTC("bulletinTime"),
		IssueTime:     r.BareUTC("issueTime"),
		ValidTimeFrom: r.Time("validTimeFrom"),
		ValidTimeTo:   r.Time("validTimeTo"),
		RawTAF:        r.String("rawTAF"),
		MostRecent:    r.Int("mostRecent"),
		Remarks:       r.String("remarks"),
		Lat:           r.Float("lat"),
		Lon:           r.Float("lon"),
		Elev:          r.Int("elev"),
		Prior:         r.Int("prior"),
		Name:          r.String("name"),
	}
	fcsts := r.Objects("fcsts")
	t.Fcsts = make([]Forecast, 0, len(fcsts))
	for i, obj := range fcsts {
		if r.err != nil {
			break
		}
		f, err := decodeForecast(fmt.Sprintf("fcsts[%d]", i), obj)
		r.adopt(err)
		t.Fcsts = append(t.Fcsts, f)
	}
	if r.err != nil {
		return TAF{}, r.err
	}
	return t, nil
}

// DecodeTAFJSON validates a single TAF object given as JSON text.
func DecodeTAFJSON(data []byte) (TAF, error) {
	obj, err := DecodeObject(data)
	if err != nil {
		return TAF{}, err
	}
	return DecodeTAF(obj)
}

// DecodeObject decodes JSON text that must hold a single object, keeping numbers as json.Number.
func DecodeObject(data []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, &ValidationError{Reason: ReasonWrongFormat, Message: fmt.Sprintf("decode record: %v", err)}
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, &ValidationError{Reason: ReasonWrongType, Message: fmt.Sprintf("expected object, got %s", jsonKind(raw))}
	}
	return obj, nil
}
