package models

// LogInfo pairs a logical log name with its location inside the workspace runtime.
type LogInfo struct {
	Name     string
	Location string
}
