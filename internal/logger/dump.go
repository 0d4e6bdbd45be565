package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/davecgh/go-spew/spew"
)

var spewConfig = &spew.ConfigState{
	Indent:                  "  ",
	DisablePointerAddresses: true,
	DisableCapacities:       true,
	SortKeys:                true,
}

// Dump returns a readable multi-line rendering of values for debug output.
func Dump(a ...interface{}) string {
	return spewConfig.Sdump(a...)
}

// DebugDump logs msg with a spew rendering of v under key, skipping the
// formatting work when debug output is disabled.
func DebugDump(msg, key string, v interface{}, fields ...zap.Field) {
	if !Enabled(zapcore.DebugLevel) {
		return
	}
	helpers.Debug(msg, append(fields, zap.String(key, Dump(v)))...)
}
