// Package logging provides structured logging for coon on top of zap.
//
// Loggers take a context on every call and add trace_id/span_id from the
// active OpenTelemetry span plus the request and MCP session ids stored with
// WithRequestID and WithSessionID. Output goes to stderr (stdout belongs to
// command output and the MCP stdio transport) and, when configured, to an
// OpenTelemetry log provider through the otelzap bridge.
//
// Usage:
//
//	logger, err := logging.NewLogger(logging.NewDefaultConfig())
//	if err != nil {
//	    return err
//	}
//	defer logger.Sync()
//
//	ctx = logging.WithRequestID(ctx, id)
//	logger.Info(ctx, "compressed", zap.String("strategy", "aggressive"))
//
// Entries below error level are sampled per message. Values of keys listed in
// the redaction config (api_key, authorization, ...) are masked.
//
// Tests use NewTestLogger, which records entries in memory:
//
//	tl := logging.NewTestLogger()
//	svc.Run(ctx, tl.Logger)
//	tl.AssertLogged(t, zapcore.WarnLevel, "rejected")
package logging
