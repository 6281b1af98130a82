package logger

import (
	"go.uber.org/zap/zapcore"
)

// DBCore is a custom Zap Core that tees entries to the DB writer
type DBCore struct {
	zapcore.Core
	writer *DBLogWriter

	// ids bound through logger.With
	transitionID string
	workflowID   string
}

// NewDBCore wraps an existing core (like console logger) and adds DB logging
func NewDBCore(baseCore zapcore.Core, writer *DBLogWriter) zapcore.Core {
	return &DBCore{
		Core:   baseCore,
		writer: writer,
	}
}

// With keeps the DB tee on child loggers
func (c *DBCore) With(fields []zapcore.Field) zapcore.Core {
	transitionID, workflowID := c.ids(fields)
	return &DBCore{
		Core:         c.Core.With(fields),
		writer:       c.writer,
		transitionID: transitionID,
		workflowID:   workflowID,
	}
}

func (c *DBCore) ids(fields []zapcore.Field) (transitionID, workflowID string) {
	transitionID, workflowID = c.transitionID, c.workflowID
	for _, f := range fields {
		switch f.Key {
		case "transition_id":
			transitionID = fieldString(f)
		case "workflow_id":
			workflowID = fieldString(f)
		}
	}
	return transitionID, workflowID
}

// Write is called for every log entry
func (c *DBCore) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	transitionID, workflowID := c.ids(fields)

	// To get "Function", Zap must be configured with AddCaller()
	c.writer.AddLog(LogEntry{
		Level:        entry.Level,
		Message:      entry.Message,
		Caller:       entry.Caller.Function,
		TransitionID: transitionID,
		WorkflowID:   workflowID,
	})

	return c.Core.Write(entry, fields)
}

// Check decides if we should log this level
func (c *DBCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

// fieldString reads string and Stringer fields (ObjectIDs are logged via zap.Stringer)
func fieldString(f zapcore.Field) string {
	switch f.Type {
	case zapcore.StringType:
		return f.String
	case zapcore.StringerType:
		if s, ok := f.Interface.(interface{ String() string }); ok {
			return s.String()
		}
	}
	return ""
}
