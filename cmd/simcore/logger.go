package main

import (
	"go.uber.org/zap"

	"simcore/pkg/domain"
)

// zapLogger adapts zap to the key/value logger used by the engine.
type zapLogger struct {
	s *zap.SugaredLogger
}

func newZapLogger(l *zap.Logger) domain.Logger {
	if l == nil {
		l = zap.NewNop()
	}
	return zapLogger{s: l.Sugar()}
}

func (l zapLogger) Debug(msg string, args ...any) { l.s.Debugw(msg, args...) }
func (l zapLogger) Info(msg string, args ...any)  { l.s.Infow(msg, args...) }
func (l zapLogger) Warn(msg string, args ...any)  { l.s.Warnw(msg, args...) }
func (l zapLogger) Error(msg string, args ...any) { l.s.Errorw(msg, args...) }
