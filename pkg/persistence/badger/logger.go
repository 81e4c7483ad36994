package badger

import (
	"strings"

	badgerdb "github.com/dgraph-io/badger/v3"
	"go.uber.org/zap"
)

// badgerLogger sends badger's printf logs to a child logger named "badger". Info is
// demoted to debug since badger reports every compaction at info.
type badgerLogger struct {
	sugar *zap.SugaredLogger
}

func newBadgerLogger(l *zap.Logger) badgerdb.Logger {
	return &badgerLogger{sugar: l.Named("badger").Sugar()}
}

// badger terminates most format strings with a newline
func trimFormat(format string) string {
	return strings.TrimRight(format, "\n")
}

func (b *badgerLogger) Errorf(format string, args ...interface{}) {
	b.sugar.Errorf(trimFormat(format), args...)
}

func (b *badgerLogger) Warningf(format string, args ...interface{}) {
	b.sugar.Warnf(trimFormat(format), args...)
}

func (b *badgerLogger) Infof(format string, args ...interface{}) {
	b.sugar.Debugf(trimFormat(format), args...)
}

func (b *badgerLogger) Debugf(format string, args ...interface{}) {
	b.sugar.Debugf(trimFormat(format), args...)
}
