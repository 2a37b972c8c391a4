package greaseweazle

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/preserva-tech/flux.report/internal/flux"
	"github.com/preserva-tech/flux.report/internal/monitoring"
)

// defaultSampleFreqHz is assumed when the firmware does not report its
// sample clock.
const defaultSampleFreqHz = 72_000_000

// index25nsHz converts device ticks to the 25ns units the capture model
// carries index times in.
const index25nsHz = 40_000_000

// Info is the firmware handshake result.
type Info struct {
	FwMajor      byte
	FwMinor      byte
	IsMainFw     bool
	MaxCmd       byte
	SampleFreqHz uint32
	HwModel      byte
	HwSubmodel   byte
}

// Device is one open Greaseweazle. All reads go through a single buffered
// reader so no stream bytes are lost between commands. Not safe for
// concurrent use.
type Device struct {
	port Port
	r    *bufio.Reader
	info Info
}

// Open connects to the named serial port and performs the firmware
// handshake.
func Open(portName string) (*Device, error) {
	p, err := OpenPort(portName)
	if err != nil {
		return nil, err
	}
	d, err := NewDevice(p)
	if err != nil {
		p.Close()
		return nil, err
	}
	return d, nil
}

// NewDevice wraps an already open port and performs the firmware handshake.
func NewDevice(port Port) (*Device, error) {
	d := &Device{port: port, r: bufio.NewReader(port)}

	resp, err := d.commandResponse(cmdGetInfo, []byte{0}, 32)
	if err != nil {
		return nil, fmt.Errorf("get info: %w", err)
	}
	d.info = Info{
		FwMajor:      resp[0],
		FwMinor:      resp[1],
		IsMainFw:     resp[2] != 0,
		MaxCmd:       resp[3],
		SampleFreqHz: binary.LittleEndian.Uint32(resp[4:8]),
		HwModel:      resp[8],
		HwSubmodel:   resp[9],
	}
	if d.info.SampleFreqHz == 0 {
		d.info.SampleFreqHz = defaultSampleFreqHz
	}

	monitoring.Logf("greaseweazle: firmware v%d.%d, model %d.%d, sample clock %d Hz",
		d.info.FwMajor, d.info.FwMinor, d.info.HwModel, d.info.HwSubmodel,
		d.info.SampleFreqHz)
	return d, nil
}

// Info returns the handshake result.
func (d *Device) Info() Info { return d.info }

// Close releases the port.
func (d *Device) Close() error { return d.port.Close() }

// command sends a framed command and verifies the echo+ack response.
func (d *Device) command(cmd byte, params ...byte) error {
	tx := make([]byte, 0, 2+len(params))
	tx = append(tx, cmd, byte(2+len(params)))
	tx = append(tx, params...)
	if _, err := d.port.Write(tx); err != nil {
		return fmt.Errorf("command 0x%02X: write: %w", cmd, err)
	}

	var resp [2]byte
	if _, err := io.ReadFull(d.r, resp[:]); err != nil {
		return fmt.Errorf("command 0x%02X: read ack: %w", cmd, err)
	}
	if resp[0] != cmd {
		return fmt.Errorf("command 0x%02X: echo mismatch, got 0x%02X", cmd, resp[0])
	}
	if resp[1] != ackOK {
		return &AckError{Cmd: cmd, Code: resp[1]}
	}
	return nil
}

// commandResponse runs command and then reads n payload bytes.
func (d *Device) commandResponse(cmd byte, params []byte, n int) ([]byte, error) {
	if err := d.command(cmd, params...); err != nil {
		return nil, err
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(d.r, payload); err != nil {
		return nil, fmt.Errorf("command 0x%02X: read payload: %w", cmd, err)
	}
	return payload, nil
}

// Reset returns the device to its power-on state.
func (d *Device) Reset() error { return d.command(cmdReset) }

// Select asserts the drive-select line for unit.
func (d *Device) Select(unit byte) error { return d.command(cmdSelect, unit) }

// Deselect releases the drive-select line.
func (d *Device) Deselect() error { return d.command(cmdDeselect) }

// Motor switches the spindle motor.
func (d *Device) Motor(on bool) error {
	state := byte(0)
	if on {
		state = 1
	}
	return d.command(cmdMotor, state)
}

// Seek steps the head carriage to the cylinder.
func (d *Device) Seek(cylinder byte) error { return d.command(cmdSeek, cylinder) }

// SelectHead picks head 0 or 1.
func (d *Device) SelectHead(head byte) error {
	if head > 1 {
		return fmt.Errorf("invalid head %d", head)
	}
	return d.command(cmdHead, head)
}

// fluxStatus surfaces a deferred capture error; the device acks READ_FLUX
// immediately and reports overruns here afterwards.
func (d *Device) fluxStatus() error {
	return d.command(cmdGetFluxStatus)
}

// indexTimes fetches up to max index-to-index durations in device ticks.
func (d *Device) indexTimes(max int) ([]uint32, error) {
	resp, err := d.commandResponse(cmdGetIndexTimes, nil, 4*max)
	if err != nil {
		return nil, fmt.Errorf("get index times: %w", err)
	}
	times := make([]uint32, 0, max)
	for i := 0; i < max; i++ {
		t := binary.LittleEndian.Uint32(resp[4*i:])
		if t == 0 {
			break
		}
		times = append(times, t)
	}
	return times, nil
}

// ReadFlux captures revolutions of flux from the currently selected track
// and returns the decoded sample stream in device ticks plus the per-
// revolution index times.
func (d *Device) ReadFlux(revolutions byte) (samples []uint32, indexTimes []uint32, err error) {
	// Zero tick budget means "by revolutions": 200ms per revolution at
	// 300 RPM, doubled for margin.
	ticks := uint32(revolutions) * (d.info.SampleFreqHz / 5) * 2

	var params [5]byte
	binary.LittleEndian.PutUint32(params[0:4], ticks)
	params[4] = revolutions
	if err := d.command(cmdReadFlux, params[:]...); err != nil {
		return nil, nil, fmt.Errorf("read flux: %w", err)
	}

	samples, err = d.readFluxStream()
	if err != nil {
		return nil, nil, fmt.Errorf("read flux: %w", err)
	}
	if err := d.fluxStatus(); err != nil {
		return nil, nil, fmt.Errorf("flux status: %w", err)
	}

	indexTimes, err = d.indexTimes(int(revolutions) + 1)
	if err != nil {
		return nil, nil, err
	}
	return samples, indexTimes, nil
}

// readFluxStream decodes the sample stream until the 00 00 00 terminator.
// Encoding: 1-249 direct tick count, 250-254 a two-byte extension, 255 a
// three-byte 16-bit extension. Isolated zero bytes are in-band markers and
// are skipped.
func (d *Device) readFluxStream() ([]uint32, error) {
	var samples []uint32
	zeros := 0
	for {
		b, err := d.r.ReadByte()
		if err != nil {
			return nil, fmt.Errorf("stream: %w", err)
		}
		if b == 0 {
			zeros++
			if zeros >= 3 {
				return samples, nil
			}
			continue
		}
		zeros = 0

		switch {
		case b <= 249:
			samples = append(samples, uint32(b))
		case b <= 254:
			b2, err := d.r.ReadByte()
			if err != nil {
				return nil, fmt.Errorf("stream extension: %w", err)
			}
			samples = append(samples, uint32(b-249)*250+uint32(b2))
		default: // 255
			lo, err := d.r.ReadByte()
			if err != nil {
				return nil, fmt.Errorf("stream extension: %w", err)
			}
			hi, err := d.r.ReadByte()
			if err != nil {
				return nil, fmt.Errorf("stream extension: %w", err)
			}
			samples = append(samples, 250+uint32(lo)+uint32(hi)<<8)
		}
	}
}

// ReadTrackCapture seeks, selects the head, captures revolutions and splits
// the stream into a per-revolution track capture. Index times come back
// converted to 25ns units.
func (d *Device) ReadTrackCapture(cylinder, head byte, revolutions int) (*flux.TrackCapture, error) {
	if revolutions < 1 {
		revolutions = 1
	}
	if revolutions > flux.MaxRevolutions {
		revolutions = flux.MaxRevolutions
	}

	if err := d.Seek(cylinder); err != nil {
		return nil, fmt.Errorf("seek cylinder %d: %w", cylinder, err)
	}
	if err := d.SelectHead(head); err != nil {
		return nil, fmt.Errorf("select head %d: %w", head, err)
	}

	samples, indexTimes, err := d.ReadFlux(byte(revolutions))
	if err != nil {
		return nil, fmt.Errorf("cylinder %d head %d: %w", cylinder, head, err)
	}
	monitoring.Debugf("greaseweazle: cylinder %d head %d: %d samples, %d index times",
		cylinder, head, len(samples), len(indexTimes))

	tc := &flux.TrackCapture{Track: int(cylinder), Head: int(head)}
	tc.Revolutions = splitRevolutions(samples, indexTimes, d.info.SampleFreqHz)
	return tc, nil
}

// splitRevolutions cuts the continuous sample stream at each index time.
// Device ticks accumulate until they reach the revolution's duration; the
// tail past the last index is dropped, matching how the capture began at an
// index pulse.
func splitRevolutions(samples, indexTimes []uint32, sampleFreq uint32) []flux.RevolutionCapture {
	if len(indexTimes) == 0 {
		if len(samples) == 0 {
			return nil
		}
		return []flux.RevolutionCapture{{Intervals: samples}}
	}

	revs := make([]flux.RevolutionCapture, 0, len(indexTimes))
	pos := 0
	for _, dur := range indexTimes {
		var acc uint64
		start := pos
		for pos < len(samples) && acc < uint64(dur) {
			acc += uint64(samples[pos])
			pos++
		}
		revs = append(revs, flux.RevolutionCapture{
			Intervals: samples[start:pos],
			IndexTime: uint32(uint64(dur) * index25nsHz / uint64(sampleFreq)),
		})
	}
	return revs
}
