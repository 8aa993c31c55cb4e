package util

import (
	"strings"

	"github.com/sirupsen/logrus"
)

var Debug uint64 = 1

var logger = logrus.New()

// Logger returns the logger behind DPrintf, so that a command can choose its
// output and formatter.
func Logger() *logrus.Logger {
	return logger
}

// SetDebug sets the highest DPrintf level that is emitted.
func SetDebug(level uint64) {
	Debug = level
	switch {
	case level >= 5:
		logger.SetLevel(logrus.TraceLevel)
	case level >= 1:
		logger.SetLevel(logrus.DebugLevel)
	default:
		logger.SetLevel(logrus.InfoLevel)
	}
}

func init() {
	SetDebug(Debug)
}

// DPrintf logs at debug level `level`. A trailing newline in format is
// dropped; logrus ends every entry with one.
func DPrintf(level uint64, format string, a ...interface{}) {
	if level <= Debug {
		format = strings.TrimSuffix(format, "\n")
		entry := logger.WithField("dlevel", level)
		switch {
		case level == 0:
			entry.Infof(format, a...)
		case level < 5:
			entry.Debugf(format, a...)
		default:
			entry.Tracef(format, a...)
		}
	}
}

// WithVolume returns an entry tagged with a volume id, for messages that
// concern one mounted volume.
func WithVolume(id string) *logrus.Entry {
	return logger.WithField("volume", id)
}

func Min(n uint64, m uint64) uint64 {
	if n < m {
		return n
	} else {
		return m
	}
}

// SumOverflows reports whether a+b wraps around.
func SumOverflows(a uint64, b uint64) bool {
	return a+b < a
}

func CloneByteSlice(s []byte) []byte {
	s2 := make([]byte, len(s))
	copy(s2, s)
	return s2
}
