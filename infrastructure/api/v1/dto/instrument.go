package dto

// InstrumentAttributes describes the connected scope.
type InstrumentAttributes struct {
	Manufacturer string `json:"manufacturer"`
	Model        string `json:"model"`
	Serial       string `json:"serial"`
	Firmware     string `json:"firmware"`
	Running      bool   `json:"running"`
	// MemoryDepth is a sample count such as "12M", or "AUTO".
	MemoryDepth string `json:"memory_depth"`
	Channels    int    `json:"channels"`
	MaxChunk    int    `json:"max_chunk"`
}

// MemoryDepthRequest sets the acquisition record length, e.g. "12M".
type MemoryDepthRequest struct {
	Depth string `json:"depth"`
}
