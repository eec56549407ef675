package port_reader

import "go.uber.org/zap"

// DefaultMaxLineLength is the line buffer capacity used when none is configured.
const DefaultMaxLineLength = 256

// LineAssembler splits a byte stream into newline-terminated lines.
// It is owned by a single goroutine and is not safe for concurrent use.
type LineAssembler struct {
	buf       []byte
	maxLength int
	overflows int
	log       *zap.Logger
}
