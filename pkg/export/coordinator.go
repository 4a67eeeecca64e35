// Package export streams captured frames into an ffmpeg subprocess and
// tracks the encoder until it exits.
package export

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/user/karaexport/pkg/adapters/logger"
	"github.com/user/karaexport/pkg/ffmpeg"
	"github.com/user/karaexport/pkg/metrics"
	"github.com/user/karaexport/pkg/ports"
)

// Defaults for Coordinator options.
const (
	DefaultChunkSize        = 1 << 20
	DefaultMaxFailures      = 5
	DefaultTerminateTimeout = 5 * time.Second
	DefaultKillTimeout      = 2 * time.Second
	DefaultJoinTimeout      = 5 * time.Second

	eventBuffer = 64
)

// ErrNoSource is returned by Start when no frame source is given.
var ErrNoSource = errors.New("export: no frame source")

// Result describes a finished export.
type Result struct {
	ExportID        string              `json:"exportId"`
	OutputPath      string              `json:"outputPath"`
	Command         []string            `json:"command"`
	FramesWritten   uint64              `json:"framesWritten"`
	BytesWritten    int64               `json:"bytesWritten"`
	FramesSkipped   int                 `json:"framesSkipped"`
	Elapsed         time.Duration       `json:"elapsed"`
	Encoder         ffmpeg.Progress     `json:"encoder"`
	Warnings        []ffmpeg.Diagnostic `json:"warnings,omitempty"`
	EncoderWarnings []string            `json:"encoderWarnings,omitempty"`
	EncoderLog      []string            `json:"-"`
	Cancelled       bool                `json:"cancelled"`
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithBinary sets the ffmpeg binary. Empty means ffmpeg.Locate decides.
func WithBinary(path string) Option {
	return func(c *Coordinator) { c.binary = path }
}

// WithCapabilities skips probing and uses caps instead.
func WithCapabilities(caps ffmpeg.Capabilities) Option {
	return func(c *Coordinator) {
		c.caps = caps
		c.capsSet = true
	}
}

// WithChunkSize sets the accumulation buffer flushed to the encoder.
func WithChunkSize(n int) Option {
	return func(c *Coordinator) {
		if n > 0 {
			c.chunkSize = n
		}
	}
}

// WithMaxConsecutiveFailures sets how many frames in a row may fail
// preparation before the export is aborted. Zero disables the limit.
func WithMaxConsecutiveFailures(n int) Option {
	return func(c *Coordinator) { c.maxFailures = n }
}

// WithTimeouts sets the graceful terminate, kill and loop join timeouts.
func WithTimeouts(terminate, kill, join time.Duration) Option {
	return func(c *Coordinator) {
		c.terminateTimeout = terminate
		c.killTimeout = kill
		c.joinTimeout = join
	}
}

// WithLogger sets the logger.
func WithLogger(l ports.Logger) Option {
	return func(c *Coordinator) { c.logger = l.WithComponent("export") }
}

// WithObserver registers an observer.
func WithObserver(o Observer) Option {
	return func(c *Coordinator) { c.observers = append(c.observers, o) }
}

// WithExportID fixes the ID of the next export instead of generating one.
func WithExportID(id string) Option {
	return func(c *Coordinator) { c.exportID = id }
}

// WithFileSystem lets the coordinator check the audio input and remove
// partial output in Cleanup. Without it the audio path is trusted as given.
func WithFileSystem(fs ports.FileSystem) Option {
	return func(c *Coordinator) { c.fs = fs }
}

// WithDebugSink saves every nth written frame, the encoder command line and
// its log to sink.
func WithDebugSink(sink ports.DebugSink, every uint64) Option {
	return func(c *Coordinator) {
		c.sink = sink
		c.debugEvery = every
	}
}

// Coordinator runs one encoder process at a time. A writer goroutine streams
// frames into its stdin while a monitor goroutine reads its stderr.
type Coordinator struct {
	runner           ports.ProcessRunner
	binary           string
	chunkSize        int
	maxFailures      int
	terminateTimeout time.Duration
	killTimeout      time.Duration
	joinTimeout      time.Duration
	logger           ports.Logger
	observers        []Observer
	exportID         string
	fs               ports.FileSystem
	sink             ports.DebugSink
	debugEvery       uint64

	capsOnce sync.Once
	caps     ffmpeg.Capabilities
	capsSet  bool

	mu       sync.Mutex
	running  bool
	cur      *run
	progress Progress

	// starting is set while Start validates and spawns; a Cancel in that
	// window sets cancelPending and Start stops the encoder once it exists.
	starting      bool
	cancelPending bool
}

// run is the state of one encoder process.
type run struct {
	id        string
	settings  ffmpeg.ExportSettings
	command   []string
	warnings  []ffmpeg.Diagnostic
	proc      ports.Process
	started   time.Time
	cancelled atomic.Bool
	exited    chan struct{}
	done      chan struct{}
	events    *events
	stopWatch func() bool
	lastBytes int64

	result Result
	err    error
}

// New creates a Coordinator that starts encoders through runner.
func New(runner ports.ProcessRunner, opts ...Option) *Coordinator {
	c := &Coordinator{
		runner:           runner,
		chunkSize:        DefaultChunkSize,
		maxFailures:      DefaultMaxFailures,
		terminateTimeout: DefaultTerminateTimeout,
		killTimeout:      DefaultKillTimeout,
		joinTimeout:      DefaultJoinTimeout,
		logger:           logger.NewNoop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Capabilities probes the encoder on first use and caches the report.
func (c *Coordinator) Capabilities(ctx context.Context) ffmpeg.Capabilities {
	c.capsOnce.Do(func() {
		if c.capsSet {
			return
		}
		var caps ffmpeg.Capabilities
		if bin, err := ffmpeg.Locate(c.binary); err != nil {
			caps = ffmpeg.Capabilities{Path: c.binary, Error: err.Error()}
		} else {
			caps = ffmpeg.Probe(ctx, c.runner, bin)
			c.logger.Debug("Probed ffmpeg %s at %s", caps.Version, bin)
		}
		c.mu.Lock()
		c.caps = caps
		c.mu.Unlock()
	})
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.caps
}

// Validate checks settings against the encoder's capabilities.
func (c *Coordinator) Validate(ctx context.Context, s ffmpeg.ExportSettings) ffmpeg.ValidationResult {
	return ffmpeg.Validate(s, c.Capabilities(ctx))
}

// BuildCommand returns the full encoder command line, binary first.
func (c *Coordinator) BuildCommand(s ffmpeg.ExportSettings, audioPath string) []string {
	return append([]string{c.resolvedBinary()}, ffmpeg.BuildArgs(s, audioPath, c.audioExists(audioPath))...)
}

func (c *Coordinator) resolvedBinary() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.caps.Path != "" {
		return c.caps.Path
	}
	if c.binary != "" {
		return c.binary
	}
	return "ffmpeg"
}

func (c *Coordinator) audioExists(path string) bool {
	if path == "" {
		return false
	}
	if c.fs == nil {
		return true
	}
	ok, err := c.fs.Exists(path)
	return err == nil && ok
}

// Start validates s, spawns the encoder and begins streaming frames from
// source. totalFrames drives percent and ETA; zero means unknown. Invalid
// settings return a *ffmpeg.ConfigurationError and no process is started.
// Cancelling ctx cancels the export.
func (c *Coordinator) Start(ctx context.Context, s ffmpeg.ExportSettings, source FrameSource, totalFrames int64, audioPath string) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return ErrAlreadyRunning
	}
	c.running = true
	c.starting = true
	c.cancelPending = false
	c.mu.Unlock()

	r, err := c.spawn(ctx, s, source, totalFrames, audioPath)
	if err != nil {
		c.mu.Lock()
		c.running = false
		c.starting = false
		c.cancelPending = false
		c.mu.Unlock()
		return err
	}

	c.mu.Lock()
	c.cur = r
	c.progress = Progress{Progress: ffmpeg.Progress{TotalFrames: totalFrames, ETA: -1}}
	c.starting = false
	pending := c.cancelPending
	c.cancelPending = false
	c.mu.Unlock()
	if pending {
		r.cancelled.Store(true)
	}

	metrics.ExportStarted(r.id)
	r.events.started(r.id, r.command)
	r.stopWatch = context.AfterFunc(ctx, func() { c.cancelRun(r) })

	writer := newFrameWriter(r.proc.Stdin(), s.Width, s.Height, c.chunkSize, c.maxFailures, c.logger)
	writer.sink = c.sink
	writer.debugEvery = c.debugEvery
	writer.cancelled = r.cancelled.Load
	writer.onFlush = func(ws writerStats) { c.updateWriter(r, ws) }

	monitor := newProgressMonitor(totalFrames, c.logger, func(p ffmpeg.Progress) { c.updateEncoder(r, p) })

	writerDone := make(chan error, 1)
	monitorDone := make(chan error, 1)
	go func() {
		writerDone <- writer.run(source)
	}()
	go func() {
		monitor.read(r.proc.Stderr())
		waitErr := r.proc.Wait()
		close(r.exited)
		monitorDone <- monitor.classify(waitErr)
	}()
	go c.finish(r, writer, monitor, writerDone, monitorDone)
	if pending {
		c.logger.Debug("Cancelling export %s", r.id)
		go c.stopProcess(r)
	}
	return nil
}

func (c *Coordinator) spawn(ctx context.Context, s ffmpeg.ExportSettings, source FrameSource, totalFrames int64, audioPath string) (*run, error) {
	if source == nil {
		return nil, ErrNoSource
	}

	vr := c.Validate(ctx, s)
	for _, w := range vr.Warnings {
		c.logger.Warn("Export setting %s: %s", w.String(), w.Suggestion)
	}
	if err := vr.Err(); err != nil {
		metrics.IncFailure("configuration")
		return nil, err
	}

	audioExists := c.audioExists(audioPath)
	if audioPath != "" && !audioExists {
		c.logger.Warn("Audio file %s not found, exporting without audio", audioPath)
	}
	binary := c.resolvedBinary()
	args := ffmpeg.BuildArgs(s, audioPath, audioExists)
	command := append([]string{binary}, args...)
	c.logger.Debug("Starting encoder: %s", ffmpeg.CommandLine(binary, args))
	if c.sink != nil && c.sink.Enabled() {
		if err := c.sink.SaveCommand(command); err != nil {
			c.logger.Debug("Failed to save encoder command: %v", err)
		}
	}

	proc, err := c.runner.Start(ctx, binary, args...)
	if err != nil {
		metrics.IncFailure("spawn")
		return nil, fmt.Errorf("export: starting encoder: %w", err)
	}

	id := c.exportID
	if id == "" {
		id = uuid.NewString()
	}
	c.logger.Debug("Encoder started with pid %d for %d frames", proc.Pid(), totalFrames)

	return &run{
		id:       id,
		settings: s.Clone(),
		command:  command,
		warnings: vr.Warnings,
		proc:     proc,
		started:  time.Now(),
		exited:   make(chan struct{}),
		done:     make(chan struct{}),
		events:   &events{observers: c.observers, ch: make(chan Event, eventBuffer)},
	}, nil
}

func (c *Coordinator) finish(r *run, w *frameWriter, m *progressMonitor, writerDone, monitorDone <-chan error) {
	werr := <-writerDone
	var sio *StreamingIOError
	if werr != nil && !errors.As(werr, &sio) && !r.cancelled.Load() {
		c.logger.Debug("Stopping encoder after writer failure: %v", werr)
		c.stopProcess(r)
	}
	encErr := <-monitorDone
	err := c.resolve(r, werr, encErr)

	res := Result{
		ExportID:        r.id,
		OutputPath:      r.settings.OutputPath,
		Command:         r.command,
		FramesWritten:   w.stats.frames,
		BytesWritten:    w.stats.bytes,
		FramesSkipped:   w.stats.skipped,
		Elapsed:         time.Since(r.started),
		Encoder:         m.parser.Progress(),
		Warnings:        r.warnings,
		EncoderWarnings: m.warnings,
		EncoderLog:      m.lines,
		Cancelled:       errors.Is(err, ErrCancelled),
	}

	if c.sink != nil && c.sink.Enabled() {
		if serr := c.sink.SaveEncoderLog(m.lines); serr != nil {
			c.logger.Debug("Failed to save encoder log: %v", serr)
		}
	}

	metrics.ExportFinished(r.id)
	if err != nil {
		metrics.IncFailure(failureCategory(err))
		c.logger.Debug("Export %s failed after %d frames: %v", r.id, res.FramesWritten, err)
	} else {
		c.logger.Debug("Export %s finished: %d frames, %d bytes", r.id, res.FramesWritten, res.BytesWritten)
	}

	r.result, r.err = res, err
	r.stopWatch()

	c.mu.Lock()
	c.running = false
	c.mu.Unlock()

	if err != nil {
		r.events.failed(r.id, res, err, Suggest(err))
	} else {
		r.events.completed(r.id, res)
	}
	close(r.events.ch)
	close(r.done)
}

// resolve picks the error that best explains how the export ended.
func (c *Coordinator) resolve(r *run, werr, encErr error) error {
	if r.cancelled.Load() {
		return ErrCancelled
	}
	if errors.Is(werr, ErrTooManyFrameFailures) {
		return werr
	}
	var sio *StreamingIOError
	if errors.As(werr, &sio) {
		var ee *ffmpeg.EncoderError
		if errors.As(encErr, &ee) {
			sio.Encoder = ee
		}
		return sio
	}
	if encErr != nil {
		return encErr
	}
	return werr
}

func failureCategory(err error) string {
	var ee *ffmpeg.EncoderError
	var sio *StreamingIOError
	switch {
	case errors.Is(err, ErrCancelled):
		return "cancelled"
	case errors.Is(err, ErrTooManyFrameFailures):
		return "capture"
	case errors.As(err, &sio):
		return string(ffmpeg.CategoryBrokenPipe)
	case errors.As(err, &ee):
		return string(ee.Category)
	default:
		return string(ffmpeg.CategoryUnknown)
	}
}

func (c *Coordinator) updateWriter(r *run, ws writerStats) {
	delta := ws.bytes - r.lastBytes
	r.lastBytes = ws.bytes

	c.mu.Lock()
	if c.cur == r {
		c.progress.FramesWritten = ws.frames
		c.progress.BytesWritten = ws.bytes
		c.progress.FramesSkipped = ws.skipped
	}
	c.mu.Unlock()

	metrics.SetFramesWritten(r.id, ws.frames)
	metrics.AddBytesWritten(r.id, int(delta))
}

func (c *Coordinator) updateEncoder(r *run, p ffmpeg.Progress) {
	c.mu.Lock()
	if c.cur != r {
		c.mu.Unlock()
		return
	}
	c.progress.Progress = p
	snapshot := c.progress
	c.mu.Unlock()

	metrics.SetEncoderProgress(r.id, p.FPS, p.Speed, p.DropFrames, p.DupFrames)
	r.events.progress(r.id, snapshot)
}

// Cancel stops the running export: the encoder is asked to terminate, killed
// if it does not exit in time, and both loops are joined with a bounded
// wait. It reports whether an export was running. A Cancel that arrives
// while Start is still validating or spawning stops the encoder as soon as
// it has been started.
func (c *Coordinator) Cancel() bool {
	c.mu.Lock()
	r, running := c.cur, c.running
	if running && c.starting {
		c.cancelPending = true
		c.mu.Unlock()
		return true
	}
	c.mu.Unlock()
	if !running || r == nil {
		return false
	}
	c.cancelRun(r)
	return true
}

func (c *Coordinator) cancelRun(r *run) {
	select {
	case <-r.done:
		return
	default:
	}
	if r.cancelled.CompareAndSwap(false, true) {
		c.logger.Debug("Cancelling export %s", r.id)
		c.stopProcess(r)
	}
	select {
	case <-r.done:
	case <-time.After(c.joinTimeout):
		c.logger.Warn("Export %s did not stop within %v", r.id, c.joinTimeout)
	}
}

// stopProcess escalates from terminate to kill.
func (c *Coordinator) stopProcess(r *run) {
	if err := r.proc.Terminate(); err != nil {
		c.logger.Debug("Terminate encoder: %v", err)
	}
	select {
	case <-r.exited:
		return
	case <-time.After(c.terminateTimeout):
	}

	c.logger.Debug("Encoder did not exit within %v, killing pid %d", c.terminateTimeout, r.proc.Pid())
	if err := r.proc.Kill(); err != nil {
		c.logger.Debug("Kill encoder: %v", err)
	}
	select {
	case <-r.exited:
	case <-time.After(c.killTimeout):
		c.logger.Warn("Encoder pid %d still running after kill", r.proc.Pid())
	}
}

// Wait blocks until the current export finishes or ctx is done.
func (c *Coordinator) Wait(ctx context.Context) (Result, error) {
	c.mu.Lock()
	r := c.cur
	c.mu.Unlock()
	if r == nil {
		return Result{}, ErrNotRunning
	}
	select {
	case <-r.done:
		return r.result, r.err
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// Progress returns a snapshot of the current export.
func (c *Coordinator) Progress() Progress {
	c.mu.Lock()
	defer c.mu.Unlock()
	p := c.progress
	if c.running && c.cur != nil {
		p.Elapsed = time.Since(c.cur.started)
	}
	return p
}

// IsRunning reports whether an export is in progress.
func (c *Coordinator) IsRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// Events returns the event channel of the current export. It is closed
// after the completed or failed event. Progress events are dropped when the
// receiver falls behind.
func (c *Coordinator) Events() <-chan Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cur == nil {
		return nil
	}
	return c.cur.events.ch
}

// Cleanup cancels a running export, removes the output of a failed one when
// a FileSystem is configured, and forgets the finished export.
func (c *Coordinator) Cleanup() error {
	c.mu.Lock()
	r, running := c.cur, c.running
	c.mu.Unlock()
	if r == nil {
		return nil
	}
	if running {
		c.cancelRun(r)
	}

	var err error
	select {
	case <-r.done:
		if r.err != nil && c.fs != nil && r.settings.OutputPath != "" {
			if ok, _ := c.fs.Exists(r.settings.OutputPath); ok {
				c.logger.Debug("Removing partial output %s", r.settings.OutputPath)
				err = c.fs.Remove(r.settings.OutputPath)
			}
		}
	default:
		return nil
	}

	metrics.DeleteExportMetrics(r.id)
	c.mu.Lock()
	if c.cur == r {
		c.cur = nil
		c.progress = Progress{}
	}
	c.mu.Unlock()
	return err
}
