// Package main provides the CLI entry point for karaexport.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/ideamans/go-l10n"
	"github.com/urfave/cli/v2"

	"github.com/user/karaexport/pkg/adapters/execrunner"
	"github.com/user/karaexport/pkg/adapters/filesink"
	"github.com/user/karaexport/pkg/adapters/ggrenderer"
	"github.com/user/karaexport/pkg/adapters/logger"
	"github.com/user/karaexport/pkg/adapters/mp4probe"
	"github.com/user/karaexport/pkg/adapters/nullsink"
	"github.com/user/karaexport/pkg/adapters/osfilesystem"
	"github.com/user/karaexport/pkg/adapters/softcontext"
	"github.com/user/karaexport/pkg/capture"
	"github.com/user/karaexport/pkg/config"
	"github.com/user/karaexport/pkg/export"
	"github.com/user/karaexport/pkg/ffmpeg"
	"github.com/user/karaexport/pkg/karaexport"
	"github.com/user/karaexport/pkg/metrics"
	"github.com/user/karaexport/pkg/orchestrator"
	"github.com/user/karaexport/pkg/pipeline"
	"github.com/user/karaexport/pkg/ports"
	exportstage "github.com/user/karaexport/pkg/stages/export"
	"github.com/user/karaexport/pkg/stages/preflight"
	"github.com/user/karaexport/pkg/stages/verify"
	"github.com/user/karaexport/pkg/summarizer"
)

var version = "dev"

// maxTextureSide bounds the software render target.
const maxTextureSide = 8192

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		var exitErr cli.ExitCoder
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.ExitCode())
		}
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "karaexport",
		Usage:   l10n.T("Render timed lyrics to video through ffmpeg"),
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "log-level", Aliases: []string{"l"}, Value: "info", Usage: l10n.T("Log level (debug, info, warn, error)"), Category: l10n.T("Logging")},
			&cli.BoolFlag{Name: "quiet", Aliases: []string{"Q"}, Usage: l10n.T("Suppress all log output"), Category: l10n.T("Logging")},
		},
		Commands: []*cli.Command{
			exportCommand(),
			probeCommand(),
			validateCommand(),
			{
				Name:  "version",
				Usage: l10n.T("Show version information"),
				Action: func(c *cli.Context) error {
					fmt.Fprintln(c.App.Writer, l10n.F("karaexport version %s", version))
					return nil
				},
			},
		},
	}
}

func newLogger(c *cli.Context) ports.Logger {
	if c.Bool("quiet") {
		return logger.NewNoop()
	}
	level := ports.ParseLogLevel(c.String("log-level"))
	if level == ports.LevelDebug {
		return logger.NewConsole(level, logger.WithElapsed(time.Now()))
	}
	return logger.NewConsole(level)
}

// signalContext cancels on SIGINT or SIGTERM.
func signalContext(log ports.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			log.Warn("Interrupted, shutting down...")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()
	return ctx, cancel
}

func configFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: l10n.T("YAML configuration file"), Category: l10n.T("Input")},
		&cli.StringFlag{Name: "audio", Aliases: []string{"a"}, Usage: l10n.T("Audio file muxed into the video"), Category: l10n.T("Input")},
		&cli.Float64Flag{Name: "duration", Usage: l10n.T("Song length in seconds (default: end of the last lyric line)"), Category: l10n.T("Input")},
		&cli.Float64Flag{Name: "audio-offset", Usage: l10n.T("Audio sync offset in seconds"), Category: l10n.T("Input")},

		&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: l10n.T("Output video file path"), Category: l10n.T("Output")},
		&cli.BoolFlag{Name: "overwrite", Aliases: []string{"y"}, Usage: l10n.T("Overwrite an existing output file"), Category: l10n.T("Output")},

		&cli.StringFlag{Name: "quality", Aliases: []string{"q"}, Usage: l10n.T("Quality preset (high, medium, low, ultrafast, lossless)"), Category: l10n.T("Video and Quality")},
		&cli.StringFlag{Name: "target", Usage: l10n.T("Playback target preset (web, mobile)"), Category: l10n.T("Video and Quality")},
		&cli.StringFlag{Name: "resolution", Aliases: []string{"r"}, Usage: l10n.T("Resolution preset (480p, 720p, 1080p, 1080p-hq, 4k)"), Category: l10n.T("Video and Quality")},
		&cli.IntFlag{Name: "width", Aliases: []string{"W"}, Usage: l10n.T("Output video width"), Category: l10n.T("Video and Quality")},
		&cli.IntFlag{Name: "height", Aliases: []string{"H"}, Usage: l10n.T("Output video height"), Category: l10n.T("Video and Quality")},
		&cli.Float64Flag{Name: "fps", Usage: l10n.T("Frame rate"), Category: l10n.T("Video and Quality")},
		&cli.StringFlag{Name: "codec", Usage: l10n.T("Video codec passed to ffmpeg"), Category: l10n.T("Video and Quality")},
		&cli.IntFlag{Name: "crf", Usage: l10n.T("Constant rate factor (0-51, lower is better)"), Category: l10n.T("Video and Quality")},
		&cli.StringFlag{Name: "hwaccel", Usage: l10n.T("Hardware acceleration (nvenc, qsv, vaapi, videotoolbox)"), Category: l10n.T("Video and Quality")},

		&cli.StringFlag{Name: "ffmpeg", Usage: l10n.T("Path to the ffmpeg binary"), EnvVars: []string{"FFMPEG_PATH"}, Category: l10n.T("Encoder")},
	}
}

func exportCommand() *cli.Command {
	flags := append(configFlags(),
		&cli.BoolFlag{Name: "threaded", Usage: l10n.T("Render frames ahead on a separate goroutine"), Category: l10n.T("Performance")},
		&cli.IntFlag{Name: "retries", Value: -1, Usage: l10n.T("Retries after a transient failure (default: 3)"), Category: l10n.T("Performance")},
		&cli.BoolFlag{Name: "no-verify", Usage: l10n.T("Skip probing the output file"), Category: l10n.T("Output")},
		&cli.StringFlag{Name: "summary", Usage: l10n.T("Write a run summary to file (Markdown, or JSON for .json paths)"), Category: l10n.T("Output")},
		&cli.BoolFlag{Name: "debug", Aliases: []string{"d"}, Usage: l10n.T("Enable debug output"), Category: l10n.T("Debug")},
		&cli.StringFlag{Name: "debug-dir", Usage: l10n.T("Directory for debug output"), Category: l10n.T("Debug")},
		&cli.StringFlag{Name: "metrics-addr", Usage: l10n.T("Serve Prometheus metrics on this address (e.g. :9090)"), Category: l10n.T("Debug")},
	)
	return &cli.Command{
		Name:      "export",
		Usage:     l10n.T("Render and encode a karaoke video"),
		ArgsUsage: " ",
		Flags:     flags,
		Action:    runExport,
	}
}

func runExport(c *cli.Context) error {
	log := newLogger(c)
	cfg, err := loadConfig(flagsFrom(c))
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(log)
	defer cancel()

	if addr := c.String("metrics-addr"); addr != "" {
		stop := serveMetrics(addr, log)
		defer stop()
	}

	orch, err := buildPipeline(cfg, log)
	if err != nil {
		return err
	}
	orch.OnStatus(func(s orchestrator.Status) { log.Debug("Status: %s", s) })

	result, runErr := orch.Run(ctx, cfg.ToOrchestratorConfig())

	if path := c.String("summary"); path != "" {
		w := summarizer.NewWriter(summarizer.NewMarkdownFormatter(
			summarizer.WithTranslator(l10n.T),
			summarizer.WithVersion(version),
		), osfilesystem.New())
		if err := w.Write(path, summarizer.FromRunResult(result)); err != nil {
			log.Warn("Failed to write summary: %s", err)
		} else {
			log.Info("Summary saved to %s", path)
		}
	}

	if runErr != nil {
		if result.Status == orchestrator.StatusCancelled {
			return cli.Exit(runErr.Error(), 130)
		}
		return runErr
	}
	return nil
}

// buildPipeline wires the adapters, stages and orchestrator for cfg.
func buildPipeline(cfg config.Config, log ports.Logger) (*orchestrator.Orchestrator, error) {
	fs := osfilesystem.New()
	runner := execrunner.New(log)

	var sink ports.DebugSink = nullsink.New()
	if cfg.Debug {
		if err := fs.MkdirAll(cfg.DebugDir); err != nil {
			return nil, fmt.Errorf("create debug directory: %w", err)
		}
		sink = filesink.New(cfg.DebugDir, fs)
	}

	terminate, kill, join := cfg.Timeouts()
	coordinator := export.New(runner,
		export.WithBinary(cfg.Encoder.FFmpegPath),
		export.WithLogger(log),
		export.WithFileSystem(fs),
		export.WithChunkSize(cfg.Encoder.ChunkSize),
		export.WithMaxConsecutiveFailures(cfg.Encoder.MaxConsecutiveFailures),
		export.WithTimeouts(terminate, kill, join),
		export.WithDebugSink(sink, cfg.DebugEvery),
		export.WithObserver(progressObserver(log)),
	)

	layers, err := buildLayers(cfg)
	if err != nil {
		return nil, err
	}
	engine := capture.NewEngine(softcontext.New(maxTextureSide), layers, log)

	return orchestrator.New(
		preflight.NewStage(coordinator, fs, log),
		exportstage.NewStage(engine, coordinator, log, capture.WithMaxDroppedFrames(cfg.Capture.MaxDroppedFrames)),
		verify.NewStage(mp4probe.New(log), fs, log),
		sink,
		log,
	), nil
}

// buildLayers creates the background, lyric and progress renderers.
func buildLayers(cfg config.Config) (capture.Layers, error) {
	var layers capture.Layers

	if path := cfg.Theme.BackgroundImage; path != "" {
		bg, err := ggrenderer.LoadImageBackground(path)
		if err != nil {
			return layers, err
		}
		layers.Background = bg
	} else {
		layers.Background = ggrenderer.NewBackground(
			config.ParseColor(cfg.Theme.BackgroundTop),
			config.ParseColor(cfg.Theme.BackgroundBottom),
		)
	}

	if len(cfg.Lyrics) > 0 {
		layers.Overlay = ggrenderer.NewLyrics(cfg.LyricLines(), cfg.LyricStyle())
	}

	if cfg.Theme.ShowProgress {
		bar := ggrenderer.NewProgressBar(cfg.SongDuration(),
			config.ParseColor(cfg.Theme.ProgressColor),
			config.ParseColor(cfg.Theme.TrackColor))
		if cfg.Theme.ProgressHeight > 0 {
			bar.Height = float64(cfg.Theme.ProgressHeight)
		}
		layers.Composite = bar
	}
	return layers, nil
}

// progressObserver logs encoder progress at every tenth of the export.
func progressObserver(log ports.Logger) export.Observer {
	var lastStep atomic.Int64
	return export.ObserverFuncs{
		Started: func(id string, command []string) {
			lastStep.Store(0)
			log.Debug("Export %s started", id)
		},
		Progress: func(id string, p export.Progress) {
			step := int64(p.Percent / 10)
			if prev := lastStep.Load(); step <= prev || !lastStep.CompareAndSwap(prev, step) {
				return
			}
			log.Info("Progress: %.0f%% (%d/%d frames, %.1f fps)", p.Percent, p.FramesWritten, p.TotalFrames, p.FPS)
		},
	}
}

func serveMetrics(addr string, log ports.Logger) func() {
	srv := &http.Server{Addr: addr, Handler: metrics.HTTPHandler(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		log.Info("Serving metrics on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Warn("Metrics server stopped: %v", err)
		}
	}()
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}
}

func validateCommand() *cli.Command {
	return &cli.Command{
		Name:      "validate",
		Usage:     l10n.T("Check settings, ffmpeg and the output location without exporting"),
		ArgsUsage: " ",
		Flags:     configFlags(),
		Action: func(c *cli.Context) error {
			log := newLogger(c)
			cfg, err := loadConfig(flagsFrom(c))
			if err != nil {
				return err
			}
			fs := osfilesystem.New()
			coordinator := export.New(execrunner.New(log), export.WithBinary(cfg.Encoder.FFmpegPath), export.WithLogger(log), export.WithFileSystem(fs))

			oc := cfg.ToOrchestratorConfig()
			total := int64(0)
			if oc.Export.FPS > 0 {
				total = int64(oc.Duration * oc.Export.FPS)
			}
			res, err := preflight.NewStage(coordinator, fs, log).Execute(c.Context, pipeline.PreflightInput{
				Settings:    oc.Export,
				Capture:     oc.Capture,
				AudioPath:   oc.AudioPath,
				Duration:    oc.Duration,
				TotalFrames: total,
				Overwrite:   oc.Overwrite,
			})

			w := c.App.Writer
			for _, check := range res.Checks {
				fmt.Fprintf(w, "[%s] %s: %s\n", l10n.T(string(check.Level)), check.Name, check.Message)
				if check.Suggestion != "" && check.Level != pipeline.CheckInfo {
					fmt.Fprintf(w, "    %s\n", check.Suggestion)
				}
			}
			fmt.Fprintln(w, l10n.F("Estimated size: %d bytes, free: %d bytes", res.EstimatedBytes, res.FreeBytes))
			if err != nil {
				return cli.Exit(err.Error(), 2)
			}
			fmt.Fprintln(w, l10n.T("Ready to export"))
			return nil
		},
	}
}

func probeCommand() *cli.Command {
	return &cli.Command{
		Name:      "probe",
		Usage:     l10n.T("Show ffmpeg capabilities, or inspect an exported MP4/MOV file"),
		ArgsUsage: "[file]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "ffmpeg", Usage: l10n.T("Path to the ffmpeg binary"), EnvVars: []string{"FFMPEG_PATH"}},
		},
		Action: func(c *cli.Context) error {
			log := newLogger(c)
			w := c.App.Writer

			if path := c.Args().First(); path != "" {
				info, err := mp4probe.New(log).ProbeFile(path)
				if err != nil {
					return err
				}
				fmt.Fprintln(w, l10n.F("Container: %s (fragmented: %v)", info.Container, info.Fragmented))
				fmt.Fprintln(w, l10n.F("Video: %s %dx%d, %d frames, %.2fs", info.VideoCodec, info.Width, info.Height, info.VideoFrames, info.Duration))
				fmt.Fprintln(w, l10n.F("Tracks: %d video, %d audio", info.VideoTracks, info.AudioTracks))
				return nil
			}

			binary, err := ffmpeg.Locate(c.String("ffmpeg"))
			if err != nil {
				return err
			}
			caps := ffmpeg.Probe(c.Context, execrunner.New(log), binary)
			if !caps.Available {
				return fmt.Errorf("ffmpeg: %s", caps.Error)
			}
			fmt.Fprintln(w, l10n.F("ffmpeg %s at %s", caps.Version, caps.Path))
			for _, codec := range append(append([]string{}, ffmpeg.VideoCodecs...), ffmpeg.AudioCodecs...) {
				fmt.Fprintf(w, "  %-12s %s\n", codec, yesNo(caps.HasEncoder(codec)))
			}
			if len(caps.HWAccel) > 0 {
				fmt.Fprintln(w, l10n.F("Hardware acceleration: %v", caps.HWAccel))
			}
			return nil
		},
	}
}

func yesNo(b bool) string {
	if b {
		return l10n.T("available")
	}
	return l10n.T("missing")
}

// exportFlags are the command-line overrides applied on top of the config file.
type exportFlags struct {
	ConfigPath  string
	Output      string
	Audio       string
	Duration    float64
	AudioOffset *float64
	Overwrite   bool

	Quality    string
	Target     string
	Resolution string
	Width      int
	Height     int
	FPS        float64
	Codec      string
	CRF        *int
	HWAccel    string
	FFmpegPath string

	Threaded bool
	Retries  int // negative keeps the config value
	NoVerify bool
	Debug    bool
	DebugDir string
}

func flagsFrom(c *cli.Context) exportFlags {
	f := exportFlags{
		ConfigPath: c.String("config"),
		Output:     c.String("output"),
		Audio:      c.String("audio"),
		Duration:   c.Float64("duration"),
		Overwrite:  c.Bool("overwrite"),
		Quality:    c.String("quality"),
		Target:     c.String("target"),
		Resolution: c.String("resolution"),
		Width:      c.Int("width"),
		Height:     c.Int("height"),
		FPS:        c.Float64("fps"),
		Codec:      c.String("codec"),
		HWAccel:    c.String("hwaccel"),
		FFmpegPath: c.String("ffmpeg"),
		Threaded:   c.Bool("threaded"),
		Retries:    -1,
		NoVerify:   c.Bool("no-verify"),
		Debug:      c.Bool("debug"),
		DebugDir:   c.String("debug-dir"),
	}
	if c.IsSet("audio-offset") {
		v := c.Float64("audio-offset")
		f.AudioOffset = &v
	}
	if c.IsSet("crf") {
		v := c.Int("crf")
		f.CRF = &v
	}
	if c.IsSet("retries") {
		f.Retries = c.Int("retries")
	}
	return f
}

// loadConfig reads the config file, if any, and applies the flags. Presets
// replace the file's export settings; individual flags override both.
func loadConfig(f exportFlags) (config.Config, error) {
	cfg := config.Defaults()
	if f.ConfigPath != "" {
		var err error
		if cfg, err = config.LoadFromFile(f.ConfigPath); err != nil {
			return cfg, err
		}
	}

	if f.Quality != "" || f.Target != "" || f.Resolution != "" {
		b := karaexport.NewConfigBuilder().
			WithSize(cfg.Export.Width, cfg.Export.Height).
			WithFPS(cfg.Export.FPS).
			WithTarget(karaexport.Target(f.Target)).
			WithHWAccel(f.HWAccel)
		if f.Quality != "" {
			b.WithQualityPreset(karaexport.QualityPreset(f.Quality))
		}
		if f.Resolution != "" {
			if _, err := b.WithResolution(f.Resolution); err != nil {
				return cfg, err
			}
		}
		s, err := b.Build().ExportSettings(cfg.OutputPath)
		if err != nil {
			return cfg, err
		}
		cfg.Export = s
	}

	if f.Output != "" {
		cfg.OutputPath = f.Output
		ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(f.Output), "."))
		if container := ffmpeg.ParseContainer(ext); slices.Contains(ffmpeg.Containers, container) {
			cfg.Export.Container = container
		}
	}
	if f.Audio != "" {
		cfg.Audio.Path = f.Audio
	}
	if f.Duration > 0 {
		cfg.Duration = f.Duration
	}
	if f.AudioOffset != nil {
		cfg.Audio.Sync = true
		cfg.Audio.OffsetSeconds = *f.AudioOffset
	}
	if f.Overwrite {
		cfg.Overwrite = true
	}
	if f.Width > 0 {
		cfg.Export.Width = f.Width
	}
	if f.Height > 0 {
		cfg.Export.Height = f.Height
	}
	if f.FPS > 0 {
		cfg.Export.FPS = f.FPS
	}
	if f.Codec != "" {
		cfg.Export.VideoCodec = f.Codec
	}
	if f.CRF != nil {
		cfg.Export.CRF = ffmpeg.IntPtr(*f.CRF)
		cfg.Export.Bitrate = 0
	}
	if f.HWAccel != "" {
		cfg.Export.HWAccel = f.HWAccel
	}
	if f.FFmpegPath != "" {
		cfg.Encoder.FFmpegPath = f.FFmpegPath
	}
	if f.Threaded {
		cfg.Capture.Threaded = true
	}
	if f.Retries >= 0 {
		cfg.MaxRetries = f.Retries
	}
	if f.NoVerify {
		cfg.Verify = false
	}
	if f.Debug {
		cfg.Debug = true
	}
	if f.DebugDir != "" {
		cfg.DebugDir = f.DebugDir
	}

	if cfg.SongDuration() <= 0 {
		return cfg, errors.New(l10n.T("Song length is unknown: set --duration or add lyrics to the config"))
	}
	return cfg, nil
}
