package logging

import (
	"io"
	"log/slog"
	"time"

	"github.com/lmittmann/tint"
)

const appName = "microclimate-engine"

// New создает логгер: цветной текст в режиме разработки, JSON в остальных
func New(w io.Writer, env string, level slog.Level) *slog.Logger {
	if env == "dev" {
		h := tint.NewHandler(w, &tint.Options{
			Level:      level,
			AddSource:  true,
			TimeFormat: time.Kitchen,
		})
		return slog.New(h).With("app", appName)
	}

	h := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	})
	return slog.New(h).With(
		"app", appName,
		"env", env,
	)
}
