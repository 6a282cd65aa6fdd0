package main

import (
	"fmt"
	"time"

	"brailled/internal/braille"
	"brailled/internal/chord"
	"brailled/internal/engine"
	"brailled/internal/ipc"
)

// handler serves the control protocol against the live engine.
type handler struct {
	engine     *engine.Engine
	aggregator *chord.Aggregator
}

func newHandler(eng *engine.Engine, agg *chord.Aggregator) *handler {
	return &handler{engine: eng, aggregator: agg}
}

func (h *handler) handle(req *ipc.Request) *ipc.Response {
	switch req.Type {
	case ipc.TypeStatus:
		return h.status()
	case ipc.TypeDot:
		return h.dot(req)
	case ipc.TypeChord:
		return h.chord(req)
	case ipc.TypeToggleMode:
		mode := h.engine.ToggleMode()
		return ipc.OK(ipc.ModeData{Mode: mode.String()})
	case ipc.TypeSetMode:
		return h.setMode(req)
	case ipc.TypeToggleOverlay:
		enabled := !h.engine.OverlayEnabled()
		h.engine.SetOverlayEnabled(enabled)
		return ipc.OK(ipc.OverlayData{Enabled: enabled})
	case ipc.TypeOverlayLine:
		return h.overlayLine(req)
	case ipc.TypeSetTimeout:
		return h.setTimeout(req)
	case ipc.TypeReset:
		h.aggregator.Cancel()
		h.engine.Reset()
		return ipc.OK(nil)
	default:
		return ipc.Fail(ipc.ErrCodeUnknown, fmt.Sprintf("unknown request type %q", req.Type))
	}
}

func (h *handler) status() *ipc.Response {
	emitted, failed, discarded := h.engine.Stats()
	return ipc.OK(ipc.StatusData{
		Mode:           h.engine.Mode().String(),
		ChordTimeoutMs: int(h.aggregator.Timeout().Milliseconds()),
		OverlayEnabled: h.engine.OverlayEnabled(),
		Emitted:        emitted,
		EmitFailed:     failed,
		Discarded:      discarded,
		TrackedLines:   h.engine.Overlay().TrackedLines(),
	})
}

func (h *handler) dot(req *ipc.Request) *ipc.Response {
	var p ipc.DotPayload
	if err := ipc.DecodePayload(req, &p); err != nil {
		return ipc.Fail(ipc.ErrCodeBadRequest, err.Error())
	}
	if p.Dot < braille.SpaceDot || p.Dot > braille.MaxDot {
		return ipc.Fail(ipc.ErrCodeBadRequest, fmt.Sprintf("dot %d out of range 0..6", p.Dot))
	}
	h.aggregator.Press(p.Dot)
	return ipc.OK(nil)
}

// chord injects a complete chord, closing any pending aggregation first
// so ordering is preserved.
func (h *handler) chord(req *ipc.Request) *ipc.Response {
	var p ipc.ChordPayload
	if err := ipc.DecodePayload(req, &p); err != nil {
		return ipc.Fail(ipc.ErrCodeBadRequest, err.Error())
	}
	if len(p.Dots) == 0 {
		return ipc.Fail(ipc.ErrCodeBadRequest, "empty chord")
	}
	for _, d := range p.Dots {
		if d < braille.SpaceDot || d > braille.MaxDot {
			return ipc.Fail(ipc.ErrCodeBadRequest, fmt.Sprintf("dot %d out of range 0..6", d))
		}
	}
	h.aggregator.Flush()
	h.engine.ProcessChord(braille.NewDotSet(p.Dots...))
	return ipc.OK(nil)
}

func (h *handler) setMode(req *ipc.Request) *ipc.Response {
	var p ipc.SetModePayload
	if err := ipc.DecodePayload(req, &p); err != nil {
		return ipc.Fail(ipc.ErrCodeBadRequest, err.Error())
	}
	mode, err := braille.ParseMode(p.Mode)
	if err != nil {
		return ipc.Fail(ipc.ErrCodeBadRequest, err.Error())
	}
	h.engine.ForceMode(mode)
	return ipc.OK(ipc.ModeData{Mode: mode.String()})
}

func (h *handler) overlayLine(req *ipc.Request) *ipc.Response {
	var p ipc.OverlayLinePayload
	if err := ipc.DecodePayload(req, &p); err != nil {
		return ipc.Fail(ipc.ErrCodeBadRequest, err.Error())
	}
	return ipc.OK(ipc.OverlayLineData{
		Line:    p.Line,
		Braille: h.engine.Overlay().GetLine(p.Line),
	})
}

func (h *handler) setTimeout(req *ipc.Request) *ipc.Response {
	var p ipc.SetTimeoutPayload
	if err := ipc.DecodePayload(req, &p); err != nil {
		return ipc.Fail(ipc.ErrCodeBadRequest, err.Error())
	}
	if p.Milliseconds <= 0 || p.Milliseconds > 5000 {
		return ipc.Fail(ipc.ErrCodeBadRequest, "timeout must be in 1..5000 ms")
	}
	h.aggregator.SetTimeout(time.Duration(p.Milliseconds) * time.Millisecond)
	return ipc.OK(nil)
}
