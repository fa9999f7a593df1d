package domain

import "strings"

// Progress is a coarse pipeline stage estimate derived from log text.
type Progress struct {
	Stage   string
	Percent int
}

// Stages reported when no marker applies.
const (
	StageStarting = "starting"
	StageRunning  = "running"
	StageUnknown  = "unknown"
)

// progressMarkers are checked most-advanced first so a late-stage log is
// never reported as an earlier stage.
var progressMarkers = []struct {
	needles []string
	stage   string
	percent int
}{
	{[]string{"codey", "implement"}, "codey-implement", 90},
	{[]string{"codey", "plan"}, "codey-plan", 75},
	{[]string{"nigel"}, "nigel", 50},
	{[]string{"cass"}, "cass", 35},
	{[]string{"alex"}, "alex", 20},
}

// ProgressFromLog infers the pipeline stage from log content.
func ProgressFromLog(content string) Progress {
	lower := strings.ToLower(content)
	for _, m := range progressMarkers {
		if containsAll(lower, m.needles) {
			return Progress{Stage: m.stage, Percent: m.percent}
		}
	}
	return Progress{Stage: StageRunning, Percent: 10}
}

func containsAll(s string, needles []string) bool {
	for _, n := range needles {
		if !strings.Contains(s, n) {
			return false
		}
	}
	return true
}
