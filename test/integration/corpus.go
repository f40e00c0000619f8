// Package integration holds end-to-end tests exercising the full stack:
// ingestion, retrieval, the HTTP API, and persistence.
package integration

// manual is a test fixture document.
type manual struct {
	Filename string
	Text     string
}

// queryCase maps a query to the manuals expected among its results.
type queryCase struct {
	Description   string
	Query         string
	ExpectedFiles []string
}

// corpus returns a small set of machine manuals with known contents.
func corpus() []manual {
	return []manual{
		{
			Filename: "cnc-mill.txt",
			Text: "The spindle speed is 10000 RPM under normal load. " +
				"Reduce spindle speed to 6000 RPM when milling titanium. " +
				"The coolant tank holds 40 liters and must be refilled monthly.",
		},
		{
			Filename: "air-filter.txt",
			Text: "Replace the air filters weekly during heavy operation. " +
				"Clogged filters reduce airflow and cause the motor to overheat. " +
				"Spare filters are stored in cabinet B alongside the gaskets.",
		},
		{
			Filename: "safety.txt",
			Text: "Operators must wear ear protection at all times on the shop floor. " +
				"Emergency stop buttons are located at each corner of the machine bay. " +
				"Report any exposed wiring to the site supervisor immediately.",
		},
	}
}

// queryCases returns lexical-answerable queries over the corpus.
func queryCases() []queryCase {
	return []queryCase{
		{
			Description:   "spindle speed query finds the mill manual",
			Query:         "spindle speed",
			ExpectedFiles: []string{"cnc-mill.txt"},
		},
		{
			Description:   "filter replacement query finds the filter manual",
			Query:         "replace filters",
			ExpectedFiles: []string{"air-filter.txt"},
		},
		{
			Description:   "safety query finds the safety manual",
			Query:         "ear protection",
			ExpectedFiles: []string{"safety.txt"},
		},
		{
			Description:   "coolant query finds the mill manual",
			Query:         "coolant tank",
			ExpectedFiles: []string{"cnc-mill.txt"},
		},
	}
}
