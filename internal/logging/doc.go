// Package logging provides structured logging for enclave.
//
// It wraps Go's log/slog JSON handler with a small Logger type carrying
// persistent attributes (registration session, step, component) so every
// line written during a wizard run can be correlated after the fact.
//
// # Usage
//
//	logger, err := logging.NewLogger(dir, logging.LevelInfo)
//	if err != nil {
//	    return err
//	}
//	defer logger.Close()
//
//	log := logger.WithSession(sessionID).WithStep("email")
//	log.Info("verification code dispatched")
//
// An empty directory sends output to stderr. NopLogger discards everything
// and is what tests and library defaults use.
package logging
