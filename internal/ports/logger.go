package ports

import "github.com/bft-labs/rfbridge/pkg/log"

// Logger is the structured logger used across the application layer.
type Logger = log.Logger

// Field is a structured log field.
type Field = log.Field

// Field constructors re-exported so the application layer only imports ports.
var (
	String   = log.String
	Int      = log.Int
	Int64    = log.Int64
	Bool     = log.Bool
	Duration = log.Duration
	Bytes    = log.Bytes
	Err      = log.Err
	Any      = log.Any
)
