package greaseweazle

import (
	"fmt"
	"io"
	"time"

	"go.bug.st/serial"
)

// Port is the byte transport to a Greaseweazle. The real implementation is a
// USB CDC serial port; tests swap in a MockPort.
type Port interface {
	io.ReadWriter
	Close() error
}

// OpenPort opens the device's serial port. The baud rate is nominal, the
// device runs USB CDC and ignores it.
func OpenPort(name string) (Port, error) {
	mode := &serial.Mode{
		BaudRate: 115200,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	p, err := serial.Open(name, mode)
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", name, err)
	}
	if err := p.SetReadTimeout(3 * time.Second); err != nil {
		p.Close()
		return nil, fmt.Errorf("set read timeout on %s: %w", name, err)
	}
	return p, nil
}
