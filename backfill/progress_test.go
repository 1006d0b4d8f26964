package backfill

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProgressTracker_Basic(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, 4, 2)

	tracker.Start()
	tracker.Record(true)
	tracker.Record(false)
	tracker.Record(true)
	tracker.Record(true)

	done, failed := tracker.Counts()
	assert.Equal(t, 4, done)
	assert.Equal(t, 1, failed)

	output := buf.String()
	assert.Contains(t, output, "2/4")
	assert.Contains(t, output, "4/4 (100.0%), 1 failed")
}

func TestProgressTracker_NotStarted(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, 10, 1)

	tracker.Record(true)
	tracker.Finish()

	assert.Empty(t, buf.String())
	assert.Zero(t, tracker.Elapsed())
}

func TestProgressTracker_FinishReportsPartialRun(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, 10, 100)

	tracker.Start()
	tracker.Record(true)
	tracker.Record(true)
	tracker.Finish()

	output := buf.String()
	assert.Contains(t, output, "2/10 (20.0%)")
	assert.True(t, strings.HasSuffix(output, "\n"))
}

func TestProgressTracker_CapsAtTotal(t *testing.T) {
	tracker := NewProgressTracker(nil, 1, 1)
	tracker.Start()
	tracker.Record(true)
	tracker.Record(true)

	done, _ := tracker.Counts()
	assert.Equal(t, 1, done)
}
