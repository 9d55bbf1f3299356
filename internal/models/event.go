package models

// WeatherEvent is a forecast period that reports a weather condition, with its bounds
// already rendered in the display time zone.
type WeatherEvent struct {
	TimeFrom string `json:"TimeFrom"`
	TimeTo   string `json:"TimeTo"`
	WxString string `json:"WxString"`
}

// WeatherEventsResponse is the body of GET /weather/{airport}.
type WeatherEventsResponse struct {
	WeatherEvents []WeatherEvent `json:"weather_events"`
}
