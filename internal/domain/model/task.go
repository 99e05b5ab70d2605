package model

// ConversionTask carries everything a worker needs to execute one
// conversion. Replaces the ad hoc argument bags the workers used to get.
type ConversionTask struct {
	JobID      string
	InputPath  string
	OutputPath string
	Filename   string
	Identity   string
	ClientIP   string
}
