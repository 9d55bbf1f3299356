package parser

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kjstillabower/taf-weather-service/internal/models"
)

func loadFixture(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	return data
}

func TestParse_IsolatesBadRecords(t *testing.T) {
	results, err := Parse(loadFixture(t, "taf_mixed.json"))
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.True(t, results[0].OK())
	assert.Equal(t, "KBOS", results[0].TAF.IcaoID)

	assert.False(t, results[1].OK())
	assert.Equal(t, 1, results[1].Index)
	assert.Contains(t, string(results[1].Raw), "KBED")
	var ve *models.ValidationError
	require.ErrorAs(t, results[1].Err, &ve)
	assert.Equal(t, "tafId", ve.Field)
	assert.Equal(t, models.ReasonMissing, ve.Reason)

	assert.True(t, results[2].OK())
	assert.Equal(t, "KJFK", results[2].TAF.IcaoID)

	rejected := Rejected(results)
	require.Len(t, rejected, 1)
	assert.Equal(t, 1, rejected[0].Index)
}

func TestParse_NonObjectElement(t *testing.T) {
	results, err := Parse([]byte(`[42, "KBOS"]`))
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, res := range results {
		var ve *models.ValidationError
		require.ErrorAs(t, res.Err, &ve)
		assert.Equal(t, models.ReasonWrongType, ve.Reason)
	}
}

func TestParse_MalformedPayload(t *testing.T) {
	payloads := map[string]string{
		"empty body":     "",
		"object":         `{"tafId": 1}`,
		"error object":   `{"error": "bad station"}`,
		"truncated":      `[{"tafId": 1}`,
		"html error":     `<html>502 Bad Gateway</html>`,
		"trailing comma": `[{"tafId": 1},]`,
	}
	for name, payload := range payloads {
		t.Run(name, func(t *testing.T) {
			results, err := Parse([]byte(payload))
			var pe *ParseError
			require.True(t, errors.As(err, &pe), "expected ParseError, got %v", err)
			assert.Nil(t, results)

			tafs, err := ParseTAFs([]byte(payload))
			require.ErrorAs(t, err, &pe)
			assert.Nil(t, tafs)
		})
	}
}

func TestParseTAFs_ArrivalOrder(t *testing.T) {
	tafs, err := ParseTAFs(loadFixture(t, "taf_mixed.json"))
	require.NoError(t, err)
	require.Len(t, tafs, 2)
	assert.Equal(t, "KBOS", tafs[0].IcaoID)
	assert.Equal(t, "KJFK", tafs[1].IcaoID)
	require.Len(t, tafs[0].Fcsts, 3)
	assert.Equal(t, []int{0, 1, 2}, []int{tafs[0].Fcsts[0].TimeGroup, tafs[0].Fcsts[1].TimeGroup, tafs[0].Fcsts[2].TimeGroup})
}

func TestParseTAFs_EmptyArray(t *testing.T) {
	tafs, err := ParseTAFs([]byte(" [] "))
	require.NoError(t, err)
	assert.Empty(t, tafs)
}

// parseEvents runs a payload through the same steps the weather service takes.
func parseEvents(t *testing.T, data []byte) ([]models.WeatherEvent, []Result) {
	t.Helper()
	results, err := Parse(data)
	require.NoError(t, err)
	return ExtractEvents(results, EasternTime()), Rejected(results)
}

func TestExtractEvents_MixedPayload(t *testing.T) {
	events, rejected := parseEvents(t, loadFixture(t, "taf_mixed.json"))

	assert.Equal(t, []models.WeatherEvent{
		{TimeFrom: "Sat 03-09 07:10 PM", TimeTo: "Sun 03-10 03:00 AM", WxString: "-SHRA"},
		{TimeFrom: "Sun 03-10 03:00 AM", TimeTo: "Sun 03-10 08:00 PM", WxString: "RA BR"},
	}, events)
	require.Len(t, rejected, 1)
	assert.Equal(t, 1, rejected[0].Index)
}

func TestExtractEvents_NoWeatherString(t *testing.T) {
	payload := `[{
		"tafId": 1, "icaoId": "KBOS",
		"dbPopTime": "2024-03-09 20:44:11", "bulletinTime": "2024-03-09 20:40:00", "issueTime": "2024-03-09 20:40:00",
		"validTimeFrom": 1710014400, "validTimeTo": 1710115200,
		"rawTAF": "TAF KBOS 092040Z 0921/1024 11012KT P6SM BKN020",
		"mostRecent": 1, "remarks": "", "lat": 42.36, "lon": -71.01, "elev": 9, "prior": 0, "name": "Boston",
		"fcsts": [{"timeGroup": 0, "timeFrom": 1710014400, "timeTo": 1710115200, "wdir": 110, "wspd": 12,
			"visib": "6+", "wxString": null, "clouds": [{"cover": "BKN", "base": 2000}], "icgTurb": [], "temp": []}]
	}]`

	events, rejected := parseEvents(t, []byte(payload))
	assert.Empty(t, rejected)
	assert.NotNil(t, events)
	assert.Empty(t, events)
}

func TestExtractEvents_EmptyArray(t *testing.T) {
	events, _ := parseEvents(t, []byte(`[]`))
	assert.NotNil(t, events)
	assert.Empty(t, events)
}

func TestFormatEventTime(t *testing.T) {
	tests := []struct {
		in   time.Time
		want string
	}{
		{time.Date(2024, 3, 10, 0, 10, 0, 0, time.UTC), "Sat 03-09 07:10 PM"},
		{time.Date(2024, 3, 10, 7, 0, 0, 0, time.UTC), "Sun 03-10 03:00 AM"},
		{time.Date(2024, 7, 4, 16, 5, 0, 0, time.UTC), "Thu 07-04 12:05 PM"},
		{time.Date(2024, 1, 1, 5, 0, 0, 0, time.UTC), "Mon 01-01 12:00 AM"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatEventTime(tt.in, EasternTime()), tt.in.String())
	}
}

func TestLoadTimeZone(t *testing.T) {
	loc, err := LoadTimeZone("")
	require.NoError(t, err)
	assert.Equal(t, DefaultTimeZone, loc.String())

	_, err = LoadTimeZone("Mars/Olympus_Mons")
	assert.Error(t, err)
}
