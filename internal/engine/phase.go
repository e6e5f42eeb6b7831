package engine

import (
	"errors"
	"time"
)

var (
	ErrExportActive       = errors.New("экспорт уже выполняется")
	ErrNoFrames           = errors.New("не захвачено ни одного кадра")
	ErrEmptyOutput        = errors.New("энкодер вернул пустой файл")
	ErrEncoderUnavailable = errors.New("энкодер недоступен")
)

type Phase int

const (
	PhaseIdle Phase = iota
	PhaseWarmup
	PhaseCapturing
	PhaseLoopClosing
	PhaseEncoding
	PhaseFinalizing
	PhaseDone
	PhaseFailed
	PhaseCancelled
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseWarmup:
		return "warmup"
	case PhaseCapturing:
		return "capturing"
	case PhaseLoopClosing:
		return "loop-closing"
	case PhaseEncoding:
		return "encoding"
	case PhaseFinalizing:
		return "finalizing"
	case PhaseDone:
		return "done"
	case PhaseFailed:
		return "failed"
	case PhaseCancelled:
		return "cancelled"
	}
	return "unknown"
}

// Label - укрупненная фаза для интерфейса: capturing / encoding / done.
func (p Phase) Label() string {
	switch p {
	case PhaseWarmup, PhaseCapturing, PhaseLoopClosing:
		return "capturing"
	case PhaseEncoding, PhaseFinalizing:
		return "encoding"
	}
	return p.String()
}

// Status - то, что видит интерфейс во время экспорта.
type Status struct {
	Phase    Phase
	Progress int
	Frames   int
	Message  string
}

func (s Status) Label() string {
	return s.Phase.Label()
}

type Timings struct {
	Total   time.Duration
	Capture time.Duration
	Encode  time.Duration
}

// Result - итог одного экспорта.
type Result struct {
	Phase    Phase
	Path     string
	Filename string
	Bytes    int
	Frames   int
	// Fallback - вместо GIF сохранен статичный кадр (PNG)
	Fallback bool
	Err      error
	Timings  Timings
}
