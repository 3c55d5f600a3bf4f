package model

import "time"

// Result is the response of a single probe invocation. A failed probe
// carries Error and no findings.
type Result struct {
	Probe    string    `json:"probe"`
	Started  time.Time `json:"started"`
	Finished time.Time `json:"finished"`
	Detected *bool     `json:"detected,omitempty"`
	Findings []Finding `json:"findings"`
	Error    string    `json:"error,omitempty"`
}

// Flag returns a pointer to b, handy for Result.Detected.
func Flag(b bool) *bool {
	return &b
}

// Sanitized returns r with every finding sanitized, see Finding.Sanitized.
func (r Result) Sanitized() Result {
	if r.Findings == nil {
		return r
	}
	findings := make([]Finding, len(r.Findings))
	for i, f := range r.Findings {
		findings[i] = f.Sanitized()
	}
	r.Findings = findings
	return r
}
