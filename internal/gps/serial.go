package gps

import (
	"fmt"
	"io"
	"time"

	"go.bug.st/serial"
)

// Port is the modem's AT command channel. Read must return (0, nil) when
// nothing is buffered within the port's read timeout.
type Port interface {
	io.ReadWriteCloser
	ResetInputBuffer() error
}

func OpenSerial(device string, baud int) (Port, error) {
	p, err := serial.Open(device, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", device, err)
	}
	if err := p.SetReadTimeout(50 * time.Millisecond); err != nil {
		p.Close()
		return nil, fmt.Errorf("set read timeout: %w", err)
	}
	if err := p.ResetInputBuffer(); err != nil {
		p.Close()
		return nil, fmt.Errorf("flush input: %w", err)
	}
	return p, nil
}
