package domain

// DailySummary is the per-facility, per-day record derived from the closing
// catch_count post. Re-ingesting a day replaces it wholesale.
type DailySummary struct {
	Facility  string  `json:"facility"`
	Date      string  `json:"date"`
	Weather   string  `json:"weather"`
	WaterTemp string  `json:"waterTemp"`
	Tide      string  `json:"tide"`
	Visitors  *int    `json:"visitors"`
	Sentence  *string `json:"sentence"`
	SourceID  string  `json:"sourceId"`
	UpdatedAt string  `json:"updatedAt"`

	// RawKeys maps each archived report kind to its archive locator.
	RawKeys map[Kind]string `json:"rawKeys"`

	// FishingReportLog holds the day's intraday posts ordered by time of day.
	FishingReportLog []ReportSnippet `json:"fishingReportLog"`

	// Embedded so its attributes flatten into the stored record, as the
	// first* columns of the daily table.
	*FieldCondition
}

// ReportSnippet is one intraday fishing_report post.
type ReportSnippet struct {
	Time      *string `json:"time"`
	Sentence  *string `json:"sentence"`
	Weather   *string `json:"weather"`
	SourceID  string  `json:"sourceId"`
	UpdatedAt string  `json:"updatedAt"`
}

// FieldCondition carries the morning field_condition post.
type FieldCondition struct {
	FirstSentence  *string `json:"firstSentence,omitempty"`
	FirstWeather   *string `json:"firstWeather,omitempty"`
	Temp           *string `json:"temp,omitempty"`
	WaterTempFirst *string `json:"waterTempFirst,omitempty"`
	WindDirection  *string `json:"windDirection,omitempty"`
	WindSpeed      *string `json:"windSpeed,omitempty"`
	TideFirst      *string `json:"tideFirst,omitempty"`
	HighTide       *string `json:"highTide,omitempty"`
	LowTide        *string `json:"lowTide,omitempty"`
	Warning        *string `json:"warning,omitempty"`
	Advisory       *string `json:"advisory,omitempty"`
	FirstSourceID  string  `json:"firstSourceId,omitempty"`
	FirstUpdatedAt string  `json:"firstUpdatedAt,omitempty"`
}

// CatchRecord is one populated fish slot of a catch_count post.
type CatchRecord struct {
	Facility string `json:"facility"`
	Date     string `json:"date"`
	Fish     string `json:"fish"`
	Slot     int    `json:"slot"`
	Count    *int   `json:"count"`
	MinSize  *int   `json:"minSize"`
	MaxSize  *int   `json:"maxSize"`
	Unit     string `json:"unit"`
	Place    string `json:"place"`
}
