package anim

// State is the animation cursor of one agent.
type State struct {
	Character  string `json:"character"`
	Variant    string `json:"variant"`
	SpriteName string `json:"sprite"`
	FrameIndex int    `json:"frame"`
	FrameCount int    `json:"frameCount"`
}

// Advance moves to the next frame, wrapping at FrameCount.
func (s *State) Advance() {
	if s.FrameCount <= 0 {
		s.FrameIndex = 0
		return
	}
	s.FrameIndex = (s.FrameIndex + 1) % s.FrameCount
}

// Rewind returns to the first frame.
func (s *State) Rewind() {
	s.FrameIndex = 0
}
