package ws

import "fmt"

type resyncReason struct {
	Kind string
	Tick uint64
}

type resyncSignal struct {
	DroppedFrames uint64
	TotalFrames   uint64
	Reasons       []resyncReason
}

// resyncPolicy decides when a subscriber has missed enough state frames that
// its next frame must be flagged as a resync. It is only touched from the
// broadcasting goroutine.
type resyncPolicy struct {
	totalFrames   uint64
	droppedFrames uint64
	pending       bool
	reasons       []resyncReason
}

const droppedFrameThresholdPerTenThousand = 1
const resyncReasonLimit = 8

func (p *resyncPolicy) NoteFrame() {
	if p.totalFrames == ^uint64(0) {
		p.totalFrames = p.totalFrames / 2
		p.droppedFrames = p.droppedFrames / 2
	}
	p.totalFrames++
}

func (p *resyncPolicy) NoteDrop(kind string, tick uint64) {
	p.droppedFrames++
	if len(p.reasons) < resyncReasonLimit {
		p.reasons = append(p.reasons, resyncReason{Kind: kind, Tick: tick})
	}
	p.evaluate()
}

func (p *resyncPolicy) evaluate() {
	if p.pending || p.droppedFrames == 0 {
		return
	}
	total := p.totalFrames
	if total == 0 {
		total = 1
	}
	if p.droppedFrames*10000 >= total*droppedFrameThresholdPerTenThousand {
		p.pending = true
	}
}

func (p *resyncPolicy) Pending() bool { return p.pending }

// Consume returns the pending signal and starts a fresh window.
func (p *resyncPolicy) Consume() (resyncSignal, bool) {
	if !p.pending {
		return resyncSignal{}, false
	}
	signal := resyncSignal{
		DroppedFrames: p.droppedFrames,
		TotalFrames:   p.totalFrames,
		Reasons:       append([]resyncReason(nil), p.reasons...),
	}
	p.pending = false
	p.totalFrames = 0
	p.droppedFrames = 0
	p.reasons = p.reasons[:0]
	return signal, true
}

func (s resyncSignal) Summary() string {
	if s.DroppedFrames == 0 && s.TotalFrames == 0 {
		return ""
	}
	return fmt.Sprintf("dropped_frames=%d total_frames=%d reasons=%v", s.DroppedFrames, s.TotalFrames, s.Reasons)
}
