package port_reader

import (
	"fmt"
	"io"

	"github.com/NotCoffee418/serial_event_log/pkg/metrics"
	"github.com/jacobsa/go-serial/serial"
	"go.uber.org/zap"
)

// Open the serial port the controllers are attached to.
func Open(port string, baudrate uint) (io.ReadWriteCloser, error) {
	options := serial.OpenOptions{
		PortName:        port,
		BaudRate:        baudrate,
		DataBits:        8,
		StopBits:        1,
		MinimumReadSize: 1,
	}

	p, err := serial.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", port, err)
	}
	return p, nil
}

// NewLineAssembler creates an assembler that discards partial lines
// once they reach maxLength bytes without a newline.
func NewLineAssembler(maxLength int, log *zap.Logger) *LineAssembler {
	if maxLength <= 0 {
		maxLength = DefaultMaxLineLength
	}
	return &LineAssembler{
		buf:       make([]byte, 0, maxLength),
		maxLength: maxLength,
		log:       log,
	}
}

// Feed consumes a chunk of the stream and returns every line it completes,
// without the newline. Unterminated bytes stay buffered for the next call.
func (a *LineAssembler) Feed(chunk []byte) []string {
	var lines []string
	for _, b := range chunk {
		if b == '\n' {
			lines = append(lines, string(a.buf))
			a.buf = a.buf[:0]
			continue
		}

		a.buf = append(a.buf, b)
		if len(a.buf) >= a.maxLength {
			a.overflows++
			metrics.LineOverflows.Inc()
			a.log.Warn("Line buffer exceeded, discarding partial line",
				zap.Int("max_length", a.maxLength))
			a.buf = a.buf[:0]
		}
	}
	return lines
}

// Pending returns the number of buffered bytes not yet terminated by a newline.
func (a *LineAssembler) Pending() int {
	return len(a.buf)
}

// Overflows returns how many partial lines were discarded so far.
func (a *LineAssembler) Overflows() int {
	return a.overflows
}
