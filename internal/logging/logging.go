package logging

import (
	"io"
	"os"
	"strings"
	"sync"

	"dice-duel/internal/config"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	writerMu sync.RWMutex
	writer   io.Writer = os.Stdout
	fileOut  *segmentWriter
)

// Init configures the global zerolog logger. Output goes to stdout and, when
// LOG_FILE is set, also to a size-capped file.
func Init(cfg config.LogConfig) error {
	level := zerolog.InfoLevel
	if v := strings.TrimSpace(cfg.Level); v != "" {
		if parsed, err := zerolog.ParseLevel(strings.ToLower(v)); err == nil {
			level = parsed
		}
	}

	var out io.Writer = os.Stdout
	if cfg.Pretty {
		out = zerolog.ConsoleWriter{Out: os.Stdout}
	}
	if cfg.File != "" {
		fw, err := newSegmentWriter(cfg.File, cfg.MaxMB)
		if err != nil {
			return err
		}
		out = zerolog.MultiLevelWriter(out, fw)
		writerMu.Lock()
		if fileOut != nil {
			_ = fileOut.Close()
		}
		fileOut = fw
		writerMu.Unlock()
	}
	writerMu.Lock()
	writer = out
	writerMu.Unlock()

	zerolog.SetGlobalLevel(level)
	ctx := zerolog.New(out).With().Timestamp()
	if cfg.Service != "" {
		ctx = ctx.Str("service", cfg.Service)
	}
	logger := ctx.Logger()
	if cfg.SampleEvery > 1 {
		logger = logger.Sample(&zerolog.BasicSampler{N: uint32(cfg.SampleEvery)})
	}
	log.Logger = logger
	return nil
}

// Writer returns the sink chosen by Init so other loggers (the HTTP request
// logger) land in the same place.
func Writer() io.Writer {
	writerMu.RLock()
	defer writerMu.RUnlock()
	return writer
}

func Close() error {
	writerMu.Lock()
	defer writerMu.Unlock()
	if fileOut == nil {
		return nil
	}
	err := fileOut.Close()
	fileOut = nil
	return err
}
