package util

import (
	"fmt"

	"github.com/sjc5/kit/pkg/colorlog"
	"github.com/sjc5/tessera/internal/common"
)

type colorLogger struct {
	label string
	base  *colorlog.Log
}

func NewColorLogger(label string) common.Logger {
	labelToUse := label
	if len(labelToUse) < 6 {
		labelToUse = fmt.Sprintf("%-6s", labelToUse)
	}
	return &colorLogger{label: labelToUse, base: &colorlog.Log{}}
}

func (l *colorLogger) msg(format string, args ...any) string {
	return l.label + " " + fmt.Sprintf(format, args...)
}

func (l *colorLogger) Debugf(format string, args ...any) {
	l.base.Infof("%s", l.msg(format, args...))
}

func (l *colorLogger) Infof(format string, args ...any) {
	l.base.Infof("%s", l.msg(format, args...))
}

func (l *colorLogger) Warningf(format string, args ...any) {
	l.base.Warning(l.msg(format, args...))
}

func (l *colorLogger) Errorf(format string, args ...any) {
	l.base.Errorf("%s", l.msg(format, args...))
}
