package services

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/iota-uz/org-import/pkg/composables"
)

func logWithFields(ctx context.Context, level logrus.Level, msg string, fields logrus.Fields) {
	logger := composables.UseLogger(ctx)
	if logger == nil {
		return
	}
	logger.WithFields(fields).Log(level, msg)
}

func withFields(base logrus.Fields, extra logrus.Fields) logrus.Fields {
	out := make(logrus.Fields, len(base)+len(extra))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

func levelFor(status Status) logrus.Level {
	switch status {
	case StatusSuccess:
		return logrus.InfoLevel
	case StatusPartialSuccess:
		return logrus.WarnLevel
	default:
		return logrus.ErrorLevel
	}
}
