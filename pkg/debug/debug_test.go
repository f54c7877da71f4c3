package debug

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSwitches(t *testing.T) {
	var buf bytes.Buffer
	old := Output
	Output = &buf
	defer func() {
		Output = old
		Enabled.Store(false)
		Tracking.Store(false)
	}()

	Log("general %d\n", 1)
	TrackLog("frame %d\n", 1)
	assert.Empty(t, buf.String())

	Enabled.Store(true)
	Log("general %d\n", 2)
	TrackLog("frame %d\n", 2)
	assert.Equal(t, "general 2\n", buf.String())

	buf.Reset()
	Tracking.Store(true)
	TrackLog("frame %d\n", 3)
	assert.Equal(t, "frame 3\n", buf.String())
}
