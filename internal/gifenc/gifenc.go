package gifenc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/gif"
	"image/png"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

var (
	ErrNotConfigured = errors.New("encoder is not configured")
	ErrNoFrames      = errors.New("no frames to encode")
)

// Params are the encoder knobs taken from a quality preset.
type Params struct {
	// Quality is the pixel sampling stride for palette building: 1 samples
	// every pixel, 20 every twentieth.
	Quality    int
	Workers    int
	Background color.Color
}

type EventKind int

const (
	EventProgress EventKind = iota
	EventFinished
	EventFailed
)

// Event is one notification from a running Render. Exactly one terminal
// event (Finished or Failed) is sent before the channel is closed.
type Event struct {
	Kind     EventKind
	Progress float64
	Data     []byte
	Err      error
}

// Encoder turns a sequence of bitmaps into a looping animated image.
type Encoder interface {
	Configure(width, height int, params Params, loopCount int) error
	AddFrame(img image.Image, delay time.Duration) error
	Render(ctx context.Context) <-chan Event
	Close()
}

type frame struct {
	img   image.Image
	delay time.Duration
}

// GIFEncoder encodes frames with image/gif, quantizing them in parallel.
type GIFEncoder struct {
	mu         sync.Mutex
	width      int
	height     int
	params     Params
	loopCount  int
	configured bool
	frames     []frame
}

func NewGIFEncoder() *GIFEncoder {
	return &GIFEncoder{}
}

func (e *GIFEncoder) Configure(width, height int, params Params, loopCount int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("invalid gif size %dx%d", width, height)
	}
	if params.Quality < 1 {
		params.Quality = 1
	}
	if params.Workers < 1 {
		params.Workers = 1
	}
	if params.Background == nil {
		params.Background = color.White
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.width, e.height = width, height
	e.params = params
	e.loopCount = loopCount
	e.configured = true
	e.frames = e.frames[:0]
	return nil
}

// AddFrame queues a frame. The image must not be modified until Render
// has delivered its terminal event.
func (e *GIFEncoder) AddFrame(img image.Image, delay time.Duration) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.configured {
		return ErrNotConfigured
	}
	if b := img.Bounds(); b.Dx() != e.width || b.Dy() != e.height {
		return fmt.Errorf("frame %d is %dx%d, want %dx%d", len(e.frames), b.Dx(), b.Dy(), e.width, e.height)
	}
	e.frames = append(e.frames, frame{img: img, delay: delay})
	return nil
}

func (e *GIFEncoder) Render(ctx context.Context) <-chan Event {
	e.mu.Lock()
	frames := make([]frame, len(e.frames))
	copy(frames, e.frames)
	configured := e.configured
	params := e.params
	loopCount := e.loopCount
	e.mu.Unlock()

	// буфер на все события: отправка никогда не блокирует воркеры
	events := make(chan Event, len(frames)+2)

	go func() {
		defer close(events)
		if !configured {
			events <- Event{Kind: EventFailed, Err: ErrNotConfigured}
			return
		}
		if len(frames) == 0 {
			events <- Event{Kind: EventFailed, Err: ErrNoFrames}
			return
		}

		data, err := encode(ctx, frames, params, loopCount, events)
		if err != nil {
			events <- Event{Kind: EventFailed, Err: err}
			return
		}
		events <- Event{Kind: EventFinished, Progress: 1, Data: data}
	}()

	return events
}

func encode(ctx context.Context, frames []frame, params Params, loopCount int, events chan<- Event) ([]byte, error) {
	out := &gif.GIF{
		Image:     make([]*image.Paletted, len(frames)),
		Delay:     make([]int, len(frames)),
		LoopCount: loopCount,
	}

	var done atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(params.Workers)

	for i, f := range frames {
		i, f := i, f
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out.Image[i] = Quantize(f.img, params.Quality, params.Background)
			// задержка GIF в сотых долях секунды, округление до ближайшей, не меньше 1
			out.Delay[i] = max(1, int((f.delay+5*time.Millisecond)/(10*time.Millisecond)))

			n := done.Add(1)
			events <- Event{Kind: EventProgress, Progress: float64(n) / float64(len(frames))}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := gif.EncodeAll(&buf, out); err != nil {
		return nil, fmt.Errorf("gif encode: %w", err)
	}
	return buf.Bytes(), nil
}

func (e *GIFEncoder) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.frames = nil
	e.configured = false
}

// EncodeStill encodes a single frame as PNG; used when GIF encoding has
// to be abandoned.
func EncodeStill(img image.Image) ([]byte, error) {
	if img == nil {
		return nil, ErrNoFrames
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
