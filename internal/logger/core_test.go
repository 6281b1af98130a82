package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newTestLogger() (*zap.Logger, *DBLogWriter, *observer.ObservedLogs) {
	// no worker: entries stay on the channel for inspection
	writer := &DBLogWriter{logChan: make(chan LogEntry, 16)}
	base, logs := observer.New(zapcore.DebugLevel)
	return zap.New(NewDBCore(base, writer), zap.AddCaller()), writer, logs
}

func TestDBCore_TeesEntries(t *testing.T) {
	log, writer, logs := newTestLogger()

	log.Info("Transition applied", zap.String("transition_id", "t-1"), zap.String("workflow_id", "w-1"))

	require.Len(t, writer.logChan, 1)
	entry := <-writer.logChan
	assert.Equal(t, "Transition applied", entry.Message)
	assert.Equal(t, zapcore.InfoLevel, entry.Level)
	assert.Equal(t, "t-1", entry.TransitionID)
	assert.Equal(t, "w-1", entry.WorkflowID)
	assert.Contains(t, entry.Caller, "TestDBCore_TeesEntries")
	assert.Equal(t, 1, logs.Len())
}

func TestDBCore_KeepsIDsBoundWithWith(t *testing.T) {
	log, writer, _ := newTestLogger()

	child := log.With(zap.String("transition_id", "t-2"))
	child.Warn("Attempt failed", zap.String("workflow_id", "w-2"))
	child.With(zap.String("transition_id", "t-3")).Error("Transition dead")

	require.Len(t, writer.logChan, 2)
	first := <-writer.logChan
	assert.Equal(t, "t-2", first.TransitionID)
	assert.Equal(t, "w-2", first.WorkflowID)

	second := <-writer.logChan
	assert.Equal(t, "t-3", second.TransitionID)
	assert.Empty(t, second.WorkflowID)
}

func TestDBCore_RespectsLevel(t *testing.T) {
	writer := &DBLogWriter{logChan: make(chan LogEntry, 4)}
	base, _ := observer.New(zapcore.WarnLevel)
	log := zap.New(NewDBCore(base, writer))

	log.Info("dropped")
	log.Warn("kept")

	require.Len(t, writer.logChan, 1)
	assert.Equal(t, "kept", (<-writer.logChan).Message)
}

func TestMapLevelToInt(t *testing.T) {
	assert.Equal(t, 10, mapLevelToInt(zapcore.DebugLevel))
	assert.Equal(t, 40, mapLevelToInt(zapcore.ErrorLevel))
	assert.Equal(t, 20, mapLevelToInt(zapcore.DPanicLevel))
}
