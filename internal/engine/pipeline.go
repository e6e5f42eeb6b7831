package engine

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"math"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/tanema/gween/ease"

	"github.com/ivlev/bouncegif/internal/config"
	"github.com/ivlev/bouncegif/internal/download"
	"github.com/ivlev/bouncegif/internal/gifenc"
	"github.com/ivlev/bouncegif/internal/motion"
	"github.com/ivlev/bouncegif/internal/raster"
	"github.com/ivlev/bouncegif/internal/stage"
	"github.com/ivlev/bouncegif/internal/system"
)

// Границы прогресса по фазам, в процентах.
const (
	warmupUpper  = 5
	captureUpper = 90
	encodeUpper  = 100
)

type EncoderFactory func() gifenc.Encoder

type Option func(*Pipeline)

func WithEncoder(f EncoderFactory) Option {
	return func(p *Pipeline) { p.newEncoder = f }
}

func WithSaver(s download.Saver) Option {
	return func(p *Pipeline) { p.saver = s }
}

func WithScheduler(s Scheduler) Option {
	return func(p *Pipeline) { p.scheduler = s }
}

// WithObserver подписывает fn на изменения статуса. fn вызывается с
// горутины экспорта и может вызывать CancelExport.
func WithObserver(fn func(Status)) Option {
	return func(p *Pipeline) { p.observer = fn }
}

func WithPool(pool *system.ImagePool) Option {
	return func(p *Pipeline) { p.pool = pool }
}

func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

func WithOutput(w io.Writer) Option {
	return func(p *Pipeline) { p.out = w }
}

// Pipeline записывает анимацию со сцены и кодирует ее в зацикленный GIF.
// Одновременно выполняется не больше одного экспорта.
type Pipeline struct {
	cfg        *config.Config
	stage      *stage.Stage
	background colorful.Color

	newEncoder EncoderFactory
	saver      download.Saver
	scheduler  Scheduler
	observer   func(Status)
	pool       *system.ImagePool
	now        func() time.Time
	out        io.Writer

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	status Status
	last   Result
}

func NewPipeline(cfg *config.Config, st *stage.Stage, opts ...Option) (*Pipeline, error) {
	bg, err := colorful.Hex(cfg.Background)
	if err != nil {
		return nil, fmt.Errorf("%w: фон %q", config.ErrInvalid, cfg.Background)
	}

	var saver download.Saver = &download.DirSaver{Dir: cfg.OutputDir}
	if cfg.SaveDialog {
		saver = &download.DialogSaver{Fallback: saver}
	}
	var scheduler Scheduler = RealtimeScheduler{}
	if cfg.Offline {
		scheduler = &VirtualScheduler{}
	}

	p := &Pipeline{
		cfg:        cfg,
		stage:      st,
		background: bg,
		newEncoder: func() gifenc.Encoder { return gifenc.NewGIFEncoder() },
		saver:      saver,
		scheduler:  scheduler,
		pool:       system.DefaultPool(),
		now:        time.Now,
		out:        os.Stdout,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// session - состояние одной записи. Живет только на горутине экспорта.
type session struct {
	preset   config.QualityPreset
	duration time.Duration
	warmup   time.Duration
	window   time.Duration

	scene   stage.Scene
	sim     *motion.Simulator
	surface *raster.RGBASurface
	raster  *raster.Rasterizer

	frames     []*image.RGBA
	initial    motion.State
	closer     *motion.LoopCloser
	closeStart time.Duration
	phase      Phase
}

// StartExport запускает экспорт в фоне. Ошибки параметров и окружения
// возвращаются сразу, итог доступен через Wait.
func (p *Pipeline) StartExport(quality string, seconds float64) error {
	preset, err := validate(quality, seconds)
	if err != nil {
		return err
	}
	ctx, err := p.acquire(context.Background())
	if err != nil {
		return err
	}
	s, err := p.prepare(preset, seconds)
	if err != nil {
		p.abandon()
		return err
	}
	go p.execute(ctx, s)
	return nil
}

// Export выполняет экспорт синхронно.
func (p *Pipeline) Export(ctx context.Context, quality string, seconds float64) (Result, error) {
	preset, err := validate(quality, seconds)
	if err != nil {
		return Result{Phase: PhaseFailed, Err: err}, err
	}
	runCtx, err := p.acquire(ctx)
	if err != nil {
		return Result{Phase: PhaseFailed, Err: err}, err
	}
	s, err := p.prepare(preset, seconds)
	if err != nil {
		p.abandon()
		return Result{Phase: PhaseFailed, Err: err}, err
	}
	res := p.execute(runCtx, s)
	return res, res.Err
}

// CancelExport прерывает текущий экспорт. Без активного экспорта ничего не делает.
func (p *Pipeline) CancelExport() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		p.cancel()
	}
}

// Wait блокируется до завершения текущего экспорта и возвращает итог
// последнего экспорта.
func (p *Pipeline) Wait() Result {
	p.mu.Lock()
	done := p.done
	p.mu.Unlock()
	if done != nil {
		<-done
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}

func (p *Pipeline) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

func (p *Pipeline) Active() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancel != nil
}

func validate(quality string, seconds float64) (config.QualityPreset, error) {
	preset, ok := config.Qualities[quality]
	if !ok {
		return preset, fmt.Errorf("%w: качество %q", config.ErrInvalid, quality)
	}
	if seconds < config.MinDuration || seconds > config.MaxDuration {
		return preset, fmt.Errorf("%w: длительность %.1f вне диапазона %.0f-%.0f с",
			config.ErrInvalid, seconds, config.MinDuration, config.MaxDuration)
	}
	return preset, nil
}

// prepare вызывается только после acquire: сессия уже занята.
func (p *Pipeline) prepare(preset config.QualityPreset, seconds float64) (*session, error) {
	if !p.stage.Viewport.Measured() {
		return nil, fmt.Errorf("%w: область отображения не измерена", raster.ErrSurfaceUnavailable)
	}

	scene := p.stage.Snapshot()
	surface, err := raster.NewSurface(scene.Width, scene.Height, p.pool)
	if err != nil {
		return nil, err
	}

	duration := time.Duration(seconds * float64(time.Second))
	frameCount := int(math.Ceil(seconds*preset.FPS())) + 1
	if err := system.CheckFrameMemory(frameCount, scene.Width, scene.Height); err != nil {
		return nil, err
	}

	sim, err := p.stage.ExportSimulator()
	if err != nil {
		return nil, err
	}

	window := p.cfg.LoopWindow()
	if window > duration/2 {
		window = duration / 2
	}

	return &session{
		preset:   preset,
		duration: duration,
		warmup:   p.cfg.Warmup(),
		window:   window,
		scene:    scene,
		sim:      sim,
		surface:  surface,
		raster:   raster.NewRasterizer(p.background, p.cfg.Debug),
		frames:   make([]*image.RGBA, 0, frameCount),
	}, nil
}

func (p *Pipeline) acquire(parent context.Context) (context.Context, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return nil, ErrExportActive
	}
	ctx, cancel := context.WithCancel(parent)
	p.cancel = cancel
	p.done = make(chan struct{})
	p.status = Status{Phase: PhaseIdle}
	return ctx, nil
}

// abandon снимает захват сессии, если подготовка не удалась. Итог
// предыдущего экспорта не меняется.
func (p *Pipeline) abandon() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cancel()
	p.cancel = nil
	close(p.done)
}

// release завершает сессию: DONE/FAILED/CANCELLED -> IDLE.
func (p *Pipeline) release(res Result) {
	p.mu.Lock()
	p.cancel()
	p.cancel = nil
	p.last = res
	p.status.Phase = PhaseIdle
	st := p.status
	close(p.done)
	p.mu.Unlock()
	if p.observer != nil {
		p.observer(st)
	}
}

func (p *Pipeline) execute(ctx context.Context, s *session) (res Result) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			p.releaseFrames(s)
			res = p.fail(s, fmt.Errorf("сбой экспорта: %v", r))
		}
		res.Timings.Total = time.Since(start)
		if p.cfg.ShowStats && res.Phase == PhaseDone {
			p.writeReport(s, res)
		}
		p.release(res)
	}()
	return p.run(ctx, s)
}

func (p *Pipeline) run(ctx context.Context, s *session) Result {
	p.logf("[*] Экспорт: %s, %dx%d, качество %.0f fps, %.1f с\n",
		s.scene.Label, s.scene.Width, s.scene.Height, s.preset.FPS(), s.duration.Seconds())

	captureStart := time.Now()
	captureCtx, stop := context.WithTimeout(ctx, s.warmup+s.duration+p.cfg.CaptureTimeoutDur())
	err := p.capture(captureCtx, s)
	stop()
	captureTime := time.Since(captureStart)

	switch {
	case ctx.Err() != nil:
		return p.cancelled(s)
	case errors.Is(err, context.DeadlineExceeded):
		p.logf("[!] Захват не уложился в отведенное время, сохраняю статичный кадр\n")
		still := s.surface.Image()
		if n := len(s.frames); n > 0 {
			still = s.frames[n-1]
		}
		data, encErr := gifenc.EncodeStill(still)
		frames := len(s.frames)
		p.releaseFrames(s)
		if encErr != nil {
			return p.fail(s, encErr)
		}
		res := p.finalize(ctx, s, data, "png", true)
		res.Frames = frames
		return res
	case err != nil:
		p.releaseFrames(s)
		return p.fail(s, err)
	}

	if len(s.frames) == 0 {
		return p.fail(s, ErrNoFrames)
	}
	p.logf("[+] Захвачено кадров: %d за %.2fs\n", len(s.frames), captureTime.Seconds())

	encodeStart := time.Now()
	data, err := p.encode(ctx, s)
	encodeTime := time.Since(encodeStart)

	var res Result
	switch {
	case errors.Is(err, errEncodeTimeout) && ctx.Err() != nil:
		s.frames = nil
		return p.cancelled(s)
	case errors.Is(err, errEncodeTimeout):
		// энкодер еще может читать кадры, в пул они не возвращаются
		p.logf("[!] Кодирование не уложилось в %v, сохраняю первый кадр\n", p.cfg.EncodeTimeoutDur())
		still, stillErr := gifenc.EncodeStill(s.frames[0])
		frames := len(s.frames)
		s.frames = nil
		if stillErr != nil {
			return p.fail(s, stillErr)
		}
		res = p.finalize(ctx, s, still, "png", true)
		res.Frames = frames
	case errors.Is(err, context.Canceled) && ctx.Err() != nil:
		return p.cancelled(s)
	case err != nil:
		p.releaseFrames(s)
		return p.fail(s, err)
	default:
		res = p.finalize(ctx, s, data, "gif", false)
		p.releaseFrames(s)
	}

	res.Timings.Capture = captureTime
	res.Timings.Encode = encodeTime
	return res
}

// capture тикает экспортный симулятор и снимает кадры с шагом пресета.
func (p *Pipeline) capture(ctx context.Context, s *session) error {
	interval := p.cfg.TickInterval()
	lower := 0
	if s.warmup > 0 {
		lower = warmupUpper
		p.setPhase(s, PhaseWarmup)
	} else {
		p.setPhase(s, PhaseCapturing)
	}

	var (
		begin, captureStart time.Time
		ticks               int
		capturing           bool
		nextAt              time.Duration
	)

	return p.scheduler.Run(ctx, interval, func(now time.Time) bool {
		if ctx.Err() != nil {
			return false
		}
		if ticks == 0 {
			begin = now
		}
		ticks++

		started := false
		if !capturing && now.Sub(begin) >= s.warmup {
			capturing = true
			started = true
			captureStart = now
			p.setPhase(s, PhaseCapturing)
		}

		var elapsed time.Duration
		if capturing {
			elapsed = now.Sub(captureStart)
			if elapsed >= s.duration {
				return false
			}
		}

		if ticks > 1 {
			if capturing && !started && p.cfg.LoopClose && elapsed >= s.duration-s.window {
				p.closeLoop(s, elapsed)
			} else {
				s.sim.Tick(interval)
			}
		}
		if started {
			// начальная поза записывается после прогрева
			s.initial = s.sim.State
		}

		s.raster.Render(s.surface, s.sim.State, s.scene.Visual, &raster.Overlay{
			Frame: len(s.frames),
			Phase: s.phase.Label(),
		})

		if !capturing {
			p.setProgress(int(float64(now.Sub(begin)) / float64(s.warmup) * warmupUpper))
			return true
		}

		if elapsed >= nextAt {
			s.frames = append(s.frames, s.surface.Snapshot())
			nextAt += s.preset.SampleInterval
		}
		progress := lower + int(float64(elapsed)/float64(s.duration)*float64(captureUpper-lower))
		p.update(func(st *Status) {
			st.Frames = len(s.frames)
			if progress > st.Progress {
				st.Progress = min(progress, captureUpper)
			}
		})
		return true
	})
}

func (p *Pipeline) closeLoop(s *session, elapsed time.Duration) {
	if s.closer == nil {
		s.closer = motion.NewLoopCloser(s.sim.State, s.initial, s.duration-elapsed, ease.InOutQuad)
		s.closeStart = elapsed
		p.setPhase(s, PhaseLoopClosing)
	}
	s.closer.Apply(&s.sim.State, elapsed-s.closeStart)
}

var errEncodeTimeout = errors.New("превышено время кодирования")

// encode отдает кадры энкодеру пачками и ждет результата.
func (p *Pipeline) encode(ctx context.Context, s *session) ([]byte, error) {
	p.setPhase(s, PhaseEncoding)
	p.setProgress(captureUpper)

	enc := p.newEncoder()
	if enc == nil {
		return nil, ErrEncoderUnavailable
	}
	defer enc.Close()

	params := gifenc.Params{
		Quality:    s.preset.EncoderQuality,
		Workers:    s.preset.Workers,
		Background: p.background,
	}
	if err := enc.Configure(s.scene.Width, s.scene.Height, params, 0); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncoderUnavailable, err)
	}

	batch := max(p.cfg.BatchSize, 1)
	for i := 0; i < len(s.frames); i += batch {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, frame := range s.frames[i:min(i+batch, len(s.frames))] {
			if err := enc.AddFrame(frame, s.preset.SampleInterval); err != nil {
				return nil, fmt.Errorf("ошибка добавления кадра: %w", err)
			}
		}
		runtime.Gosched()
	}

	renderCtx, stopRender := context.WithCancel(ctx)
	defer stopRender()
	events := enc.Render(renderCtx)

	timer := time.NewTimer(p.cfg.EncodeTimeoutDur())
	defer timer.Stop()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return nil, errors.New("энкодер завершился без результата")
			}
			if data, done, err := p.handleEvent(ev); done {
				return data, err
			}
		case <-timer.C:
			stopRender()
			return nil, errEncodeTimeout
		case <-ctx.Done():
			// уже готовый результат важнее отмены
			for {
				select {
				case ev, ok := <-events:
					if !ok {
						return nil, ctx.Err()
					}
					if ev.Kind == gifenc.EventFinished {
						data, _, err := p.handleEvent(ev)
						return data, err
					}
				case <-timer.C:
					return nil, errEncodeTimeout
				}
			}
		}
	}
}

func (p *Pipeline) handleEvent(ev gifenc.Event) ([]byte, bool, error) {
	switch ev.Kind {
	case gifenc.EventProgress:
		progress := captureUpper + int(ev.Progress*float64(encodeUpper-captureUpper))
		p.setProgress(min(progress, encodeUpper-1))
		return nil, false, nil
	case gifenc.EventFinished:
		if len(ev.Data) == 0 {
			return nil, true, ErrEmptyOutput
		}
		return ev.Data, true, nil
	default:
		if ev.Err == nil {
			ev.Err = errors.New("ошибка кодирования")
		}
		return nil, true, ev.Err
	}
}

func (p *Pipeline) finalize(ctx context.Context, s *session, data []byte, ext string, fallback bool) Result {
	p.setPhase(s, PhaseFinalizing)
	if len(data) == 0 {
		return p.fail(s, ErrEmptyOutput)
	}

	name := download.Filename(p.cfg.Name, s.scene.Label, ext, p.now())
	path, err := p.saver.Save(context.WithoutCancel(ctx), data, name)
	if err != nil {
		return p.fail(s, fmt.Errorf("ошибка сохранения: %w", err))
	}

	p.setPhase(s, PhaseDone)
	p.setProgress(encodeUpper)
	p.logf("[+++] Готово: %s (%d КБ)\n", path, len(data)/1024)
	return Result{
		Phase:    PhaseDone,
		Path:     path,
		Filename: name,
		Bytes:    len(data),
		Frames:   len(s.frames),
		Fallback: fallback,
	}
}

func (p *Pipeline) fail(s *session, err error) Result {
	p.setPhase(s, PhaseFailed)
	p.update(func(st *Status) { st.Message = err.Error() })
	p.logf("[!] Ошибка экспорта: %v\n", err)
	return Result{Phase: PhaseFailed, Err: err, Frames: len(s.frames)}
}

func (p *Pipeline) cancelled(s *session) Result {
	frames := len(s.frames)
	p.releaseFrames(s)
	p.setPhase(s, PhaseCancelled)
	p.logf("[-] Экспорт отменен\n")
	return Result{Phase: PhaseCancelled, Err: context.Canceled, Frames: frames}
}

func (p *Pipeline) releaseFrames(s *session) {
	for _, f := range s.frames {
		p.pool.Put(f)
	}
	s.frames = nil
}

func (p *Pipeline) setPhase(s *session, phase Phase) {
	s.phase = phase
	p.update(func(st *Status) { st.Phase = phase })
}

// setProgress никогда не уменьшает прогресс.
func (p *Pipeline) setProgress(v int) {
	p.update(func(st *Status) {
		if v > st.Progress {
			st.Progress = v
		}
	})
}

func (p *Pipeline) update(fn func(*Status)) {
	p.mu.Lock()
	prev := p.status
	fn(&p.status)
	cur := p.status
	p.mu.Unlock()
	if cur != prev && p.observer != nil {
		p.observer(cur)
	}
}

func (p *Pipeline) logf(format string, args ...any) {
	fmt.Fprintf(p.out, format, args...)
}
