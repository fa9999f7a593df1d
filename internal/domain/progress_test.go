package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProgressFromLog(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    Progress
	}{
		{"no markers", "[ts] Pipeline started", Progress{Stage: StageRunning, Percent: 10}},
		{"alex", "Alex is writing the spec", Progress{Stage: "alex", Percent: 20}},
		{"cass", "alex done\ncass writing stories", Progress{Stage: "cass", Percent: 35}},
		{"nigel", "alex\ncass\nNIGEL tests", Progress{Stage: "nigel", Percent: 50}},
		{"codey plan", "alex cass nigel\ncodey: plan", Progress{Stage: "codey-plan", Percent: 75}},
		{"codey implement", "codey plan\ncodey implement step 2", Progress{Stage: "codey-implement", Percent: 90}},
		{"latest wins regardless of order", "codey implement\nalex", Progress{Stage: "codey-implement", Percent: 90}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ProgressFromLog(tt.content))
		})
	}
}
