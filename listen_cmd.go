package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"
	"golang.org/x/time/rate"

	"github.com/dgnsrekt/narrate/internal/observability"
	"github.com/dgnsrekt/narrate/tts"
)

var queueLines bool

var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Speak lines from stdin as they arrive",
	Long: paragraph(fmt.Sprintf("\n%s each line read from stdin. A new line interrupts the previous one unless --queue is set. Voice settings are reloaded when the config file changes.", keyword("Speak"))),
	Example: paragraph("tail -f build.log | narrate listen\nnarrate listen --queue < notes.txt"),
	Args:    cobra.NoArgs,
	RunE:    runListen,
}

func init() {
	listenCmd.Flags().BoolVarP(&queueLines, "queue", "q", false, "queue lines instead of interrupting")
	listenCmd.Flags().Duration("min-interval", 250*time.Millisecond, "minimum time between spoken lines")
	listenCmd.Flags().String("metrics-addr", "", "serve prometheus metrics on this address")
	_ = viper.BindPFlag("listen.min_interval", listenCmd.Flags().Lookup("min-interval"))
	_ = viper.BindPFlag("listen.metrics_addr", listenCmd.Flags().Lookup("metrics-addr"))
}

func runListen(*cobra.Command, []string) error {
	b, err := openBackend(cfg.Backend)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if addr := cfg.Listen.MetricsAddr; addr != "" {
		srv := serveMetrics(addr)
		defer srv.Close() //nolint:errcheck
	}

	reloads := make(chan tts.EngineConfig, 1)
	viper.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		c, err := tts.LoadConfigFromViper()
		if err != nil {
			log.Warn("Ignoring invalid configuration", "err", err)
			return
		}
		log.Debug("Configuration changed", "file", e.Name)
		select {
		case reloads <- c.Engine:
		default:
		}
	})
	if viper.ConfigFileUsed() != "" {
		viper.WatchConfig()
	}

	if term.IsTerminal(int(os.Stdin.Fd())) {
		fmt.Fprintln(os.Stderr, faintStyle.Render("Type lines to speak them. Ctrl+D to finish."))
	}

	l := newListener(b, cfg.Listen.MinInterval, !queueLines)
	err = l.run(ctx, os.Stdin, reloads)
	fmt.Fprintln(os.Stderr, faintStyle.Render(l.summary()))
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func serveMetrics(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Metrics server failed", "addr", addr, "err", err)
		}
	}()
	log.Info("Serving metrics", "addr", addr)
	return srv
}

// listener speaks lines from a reader. It owns the backend; config
// reloads reach it over a channel.
type listener struct {
	backend   tts.Backend
	limiter   *rate.Limiter
	interrupt bool

	lines  int64
	bytes  uint64
	failed int64
}

func newListener(b tts.Backend, minInterval time.Duration, interrupt bool) *listener {
	limit := rate.Inf
	if minInterval > 0 {
		limit = rate.Every(minInterval)
	}
	return &listener{
		backend:   b,
		limiter:   rate.NewLimiter(limit, 1),
		interrupt: interrupt,
	}
}

func (l *listener) run(ctx context.Context, r io.Reader, reloads <-chan tts.EngineConfig) error {
	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			_ = l.backend.Stop()
			return ctx.Err()

		case ec := <-reloads:
			if err := applyVoiceParams(l.backend, ec); err != nil {
				log.Warn("Could not apply voice settings", "err", err)
			}

		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-readErr:
					return err
				default:
					return nil
				}
			}
			if err := l.speak(ctx, line); err != nil {
				return err
			}
		}
	}
}

func (l *listener) speak(ctx context.Context, line string) error {
	if strings.TrimSpace(line) == "" {
		return nil
	}
	if err := l.limiter.Wait(ctx); err != nil {
		return err //nolint:wrapcheck
	}

	if err := l.backend.Speak(tts.NewRequest(line, l.interrupt)); err != nil {
		l.failed++
		if !tts.IsRecoverable(err) {
			return fmt.Errorf("unable to speak: %w", err)
		}
		log.Warn("Could not speak line", "err", err)
		return nil
	}
	l.lines++
	l.bytes += uint64(len(line))
	return nil
}

func (l *listener) summary() string {
	s := fmt.Sprintf("Spoke %s lines (%s)", humanize.Comma(l.lines), humanize.Bytes(l.bytes))
	if l.failed > 0 {
		s += fmt.Sprintf(", %s failed", humanize.Comma(l.failed))
	}
	return s
}

// applyVoiceParams pushes rate, pitch, volume and voice to backends that
// support them.
func applyVoiceParams(b tts.Backend, ec tts.EngineConfig) error {
	vc, ok := b.(tts.VoiceController)
	if !ok {
		return nil
	}
	if err := vc.SetRate(ec.Rate); err != nil {
		return fmt.Errorf("rate: %w", err)
	}
	if err := vc.SetPitch(ec.Pitch); err != nil {
		return fmt.Errorf("pitch: %w", err)
	}
	if err := vc.SetVolume(ec.Volume); err != nil {
		return fmt.Errorf("volume: %w", err)
	}
	if ec.Voice != "" {
		if err := vc.SetVoice(ec.Voice); err != nil {
			return fmt.Errorf("voice: %w", err)
		}
	}
	return nil
}
