package session

import (
	"github.com/ja7ad/spm/pkg/recording"
	"github.com/ja7ad/spm/pkg/replay"
)

// Mode is exactly one of Live, *Browsing or *Replaying.
type Mode interface {
	isMode()
}

// Live samples every tick and feeds the recorder.
type Live struct{}

// Browsing holds the recording list as it was when the browser opened or was
// last refreshed.
type Browsing struct {
	Recordings []recording.Metadata
	Selected   int
}

// Replaying plays back one loaded recording.
type Replaying struct {
	Engine *replay.Engine
}

func (Live) isMode()       {}
func (*Browsing) isMode()  {}
func (*Replaying) isMode() {}
