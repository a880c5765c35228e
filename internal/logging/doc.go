// Package logging provides structured logging for docsession.
//
// This package wraps Go's log/slog to emit JSON lines with persistent context
// attributes, so every save, view-mode switch and export can be traced back
// to the document that caused it.
//
// # Basic Usage
//
//	logger, err := logging.NewLogger(logging.Options{Dir: dir, Level: "INFO"})
//	if err != nil {
//	    return err
//	}
//	defer logger.Close()
//
//	docLog := logger.WithDocument(id)
//	docLog.Info("document saved", "path", path)
//
// Output:
//
//	{"time":"...","level":"INFO","msg":"document saved","document_id":"...","path":"/docs/note.md"}
//
// # Rotation
//
// When Options.Rotation.MaxSizeMB is positive the log file rolls over to
// numbered backups (docsession.log.1 is the newest). The writer works on any
// afero.Fs, which keeps tests in memory.
package logging
