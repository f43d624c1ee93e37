package domain

import "time"

// BuildInfo represents the metadata for a task execution.
type BuildInfo struct {
	TaskName   string    `json:"task_name,omitzero"`
	InputHash  string    `json:"input_hash,omitzero"`
	OutputHash string    `json:"output_hash,omitzero"`
	Inputs     []string  `json:"inputs,omitzero"`
	Timestamp  time.Time `json:"timestamp,omitzero"`
}
