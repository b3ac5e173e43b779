// Package log is the small structured logging interface shared by the
// rfbridge packages, with a zerolog implementation and a no-op one.
//
//	logger := log.NewZerologAdapterWithLogger(zerolog.New(os.Stderr))
//	ingest := log.With(logger, log.String("source", "RFLINK1"))
//	ingest.Info("connected", log.String("addr", "192.168.1.10:1001"))
//
// Anything with Debug, Info, Warn and Error methods taking ...Field can be
// passed where a Logger is expected.
package log
