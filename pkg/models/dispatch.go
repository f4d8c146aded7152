package models

import "time"

// Label keys attached to every dispatch request.
const (
	LabelResource = "resource"
	LabelCategory = "category"
	LabelBranch   = "branch"
)

// DispatchRequest is the unit handed to the execution engine. Target always
// originates from an EnrichmentRecord; no stage writes a literal target name.
type DispatchRequest struct {
	Target     string            `json:"target"`
	Parameters map[string]string `json:"parameters"`
	Labels     map[string]string `json:"labels"`
}

// DispatchAck is the engine's acknowledgment for one accepted request.
type DispatchAck struct {
	Token       string    `json:"token"`
	SubmittedAt time.Time `json:"submitted_at"`
}
