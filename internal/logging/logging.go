package logging

import (
	"io"
	"os"
	"strings"
	"sync"

	"tournament-settlement/internal/config"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	mu     sync.Mutex
	sink   io.Writer = os.Stdout
	capped *cappedFile
)

// Init configures the global zerolog logger. Call Close on shutdown when a
// log file is configured.
func Init(cfg config.LogConfig) error {
	level := zerolog.InfoLevel
	if v := strings.TrimSpace(cfg.Level); v != "" {
		if parsed, err := zerolog.ParseLevel(strings.ToLower(v)); err == nil {
			level = parsed
		}
	}

	var out io.Writer = os.Stdout
	var file *cappedFile
	if path := strings.TrimSpace(cfg.File); path != "" {
		f, err := newCappedFile(path, cfg.MaxMB)
		if err != nil {
			return err
		}
		file = f
		out = io.MultiWriter(os.Stdout, f)
	}

	console := out
	if cfg.Pretty {
		console = zerolog.ConsoleWriter{Out: out}
	}

	zerolog.SetGlobalLevel(level)
	ctx := zerolog.New(console).With().Timestamp()
	if cfg.Service != "" {
		ctx = ctx.Str("service", cfg.Service)
	}
	logger := ctx.Logger()
	if cfg.SampleEvery > 1 {
		logger = logger.Sample(&zerolog.BasicSampler{N: uint32(cfg.SampleEvery)})
	}

	mu.Lock()
	if capped != nil {
		_ = capped.Close()
	}
	sink, capped = out, file
	mu.Unlock()

	log.Logger = logger
	return nil
}

// Writer is the raw JSON sink used by the global logger, for libraries that
// bring their own handler.
func Writer() io.Writer {
	mu.Lock()
	defer mu.Unlock()
	return sink
}

func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if capped == nil {
		return nil
	}
	err := capped.Close()
	capped = nil
	sink = os.Stdout
	return err
}
