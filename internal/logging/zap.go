// Package logging builds the application's zap logger: a console core at
// the configured level teed with an error-level core appended to a log file.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// FileName is the log file created inside Options.Dir.
const FileName = "pushtalk.log"

type Options struct {
	Level zapcore.Level
	JSON  bool
	// Dir receives error-level events. Empty disables the file core.
	Dir string
}

// New returns the logger and a close func that syncs and closes the log file.
func New(opts Options) (*zap.Logger, func(), error) {
	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.TimeKey = ""
	encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	encCfg.EncodeCaller = nil

	consoleEnc := zapcore.NewConsoleEncoder(encCfg)
	if opts.JSON {
		consoleEnc = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	}

	cores := []zapcore.Core{
		zapcore.NewCore(consoleEnc, zapcore.Lock(os.Stderr), zap.NewAtomicLevelAt(opts.Level)),
	}

	closeFn := func() {}
	if opts.Dir != "" {
		f, err := openLogFile(opts.Dir)
		if err != nil {
			return nil, nil, err
		}
		fileEnc := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
		cores = append(cores, zapcore.NewCore(fileEnc, zapcore.Lock(f), zapcore.ErrorLevel))
		closeFn = func() {
			_ = f.Sync()
			_ = f.Close()
		}
	}

	logger := zap.New(zapcore.NewTee(cores...), zap.AddStacktrace(zapcore.ErrorLevel))
	return logger, func() {
		_ = logger.Sync()
		closeFn()
	}, nil
}

func openLogFile(dir string) (*os.File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("logging: create log dir: %w", err)
	}
	path := filepath.Join(dir, FileName)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("logging: open %s: %w", path, err)
	}
	return f, nil
}

// LogPanic logs a recovered panic with its stack and panics again so the
// runtime's default handling still applies. Use as `defer LogPanic(log, "where")`.
func LogPanic(log *zap.Logger, where string) {
	r := recover()
	if r == nil {
		return
	}
	log.Error("unhandled panic",
		zap.String("where", where),
		zap.Any("panic", r),
		zap.ByteString("stack", debug.Stack()),
	)
	_ = log.Sync()
	panic(r)
}
