package models

// ReasonCount is one entry of a LOB's reason tally
type ReasonCount struct {
	Reason string `json:"reason"`
	Count  int    `json:"count"`
}

// LOBSummary is one row of the allocation summary
type LOBSummary struct {
	LOB         string        `json:"lob"`
	GroupHead   string        `json:"groupHead,omitempty"`
	Delegates   []string      `json:"delegates"`
	Reasons     []ReasonCount `json:"reasons"`
	OfficeUsers int           `json:"officeUsers"`
	Strength    int           `json:"strength"`
	Locked      bool          `json:"locked"`
}

// Report is a rendered CSV download
type Report struct {
	Filename string
	Content  string
	Rows     int
}
