// Package greaseweazle drives a Greaseweazle flux-capture board over its
// serial protocol: framed commands with echo+ack verification, and a
// variable-length flux sample stream terminated by three zero bytes.
package greaseweazle

import "fmt"

// Command opcodes.
const (
	cmdGetInfo       = 0x00
	cmdSeek          = 0x02
	cmdHead          = 0x03
	cmdMotor         = 0x06
	cmdReadFlux      = 0x07
	cmdGetFluxStatus = 0x09
	cmdGetIndexTimes = 0x0A
	cmdSelect        = 0x0C
	cmdDeselect      = 0x0D
	cmdReset         = 0x10
)

// Ack codes returned in the second response byte.
const (
	ackOK            = 0x00
	ackBadCommand    = 0x01
	ackNoIndex       = 0x02
	ackNoTrk0        = 0x03
	ackFluxOverflow  = 0x04
	ackFluxUnderflow = 0x05
	ackWriteProtect  = 0x06
	ackNoUnit        = 0x07
	ackNoBus         = 0x08
	ackBadUnit       = 0x09
)

var ackNames = map[byte]string{
	ackBadCommand:    "bad command",
	ackNoIndex:       "no index pulse",
	ackNoTrk0:        "track 0 not found",
	ackFluxOverflow:  "flux buffer overflow",
	ackFluxUnderflow: "flux buffer underflow",
	ackWriteProtect:  "disk write protected",
	ackNoUnit:        "no drive unit selected",
	ackNoBus:         "no bus type set",
	ackBadUnit:       "invalid unit number",
}

// AckError is a non-OK ack from the device.
type AckError struct {
	Cmd  byte
	Code byte
}

func (e *AckError) Error() string {
	name, ok := ackNames[e.Code]
	if !ok {
		name = "unknown error"
	}
	return fmt.Sprintf("command 0x%02X: device ack 0x%02X (%s)", e.Cmd, e.Code, name)
}
