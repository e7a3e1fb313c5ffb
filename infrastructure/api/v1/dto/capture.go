// Package dto holds request and attribute types of the v1 API.
package dto

// CaptureRequest asks for a new acquisition.
type CaptureRequest struct {
	Channel int `json:"channel"`
	// Samples is the record length; 0 reads the full memory depth.
	Samples int `json:"samples"`
}

// SamplesAttributes is a window of a capture's processed samples.
type SamplesAttributes struct {
	Volts   bool      `json:"volts"`
	Filters string    `json:"filters,omitempty"`
	Offset  int       `json:"offset"`
	Count   int       `json:"count"`
	Total   int       `json:"total"`
	Values  []float64 `json:"values"`
}
