// Package driveport is the thin transport layer between this tool and the
// drive controller firmware: it knows the command bytes and framing, and
// nothing about GCR, retries, or sector layout. Those live in gcr and retry.
package driveport

import (
	"time"

	"go.bug.st/serial"

	"github.com/mtwomey/a2gcr/errs"
	"github.com/mtwomey/a2gcr/gcr"
)

const (
	baudRate     = 500000
	chunkTimeout = 200 * time.Millisecond

	cmdEnterSingleTrack byte = 0x72
	cmdLeaveTrackMode1  byte = 0x2E
	cmdLeaveTrackMode2  byte = 0xF0
	cmdCapture          byte = 0x80
	cmdSelfTestEnter    byte = 0x74
	cmdSelfTestRead     byte = 0xA0
	cmdSelfTestExit     byte = 0xF0

	captureAckOK byte = 0x40
	selfTestPass byte = 0x60

	// RepositionTiming is the timing byte that asks the controller to
	// reposition the head (seek off-and-back) rather than capture a track;
	// no payload follows its ack.
	RepositionTiming byte = 0xFF
)

// Port is an open connection to the drive controller over a serial line.
type Port struct {
	conn serial.Port
	name string
}

// Open opens the named serial device at the fixed 500000 baud 8N1
// configuration the controller firmware expects.
func Open(name string) (*Port, error) {
	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	conn, err := serial.Open(name, mode)
	if err != nil {
		return nil, errs.Transportf("driveport: opening %s: %v", name, err)
	}
	if err := conn.SetReadTimeout(chunkTimeout); err != nil {
		conn.Close()
		return nil, errs.Transportf("driveport: setting read timeout on %s: %v", name, err)
	}
	return &Port{conn: conn, name: name}, nil
}

// Close releases the serial device.
func (p *Port) Close() error {
	return p.conn.Close()
}

// EnterSingleTrackMode puts the controller into single-track capture mode.
func (p *Port) EnterSingleTrackMode() error {
	if err := p.write(cmdEnterSingleTrack); err != nil {
		return err
	}
	_, err := p.readAck()
	return err
}

// LeaveSingleTrackMode takes the controller back to its main loop.
func (p *Port) LeaveSingleTrackMode() error {
	if err := p.write(cmdLeaveTrackMode1, cmdLeaveTrackMode2); err != nil {
		return err
	}
	_, err := p.readAck()
	return err
}

// Capture asks the controller to read one revolution of a track and returns
// the raw 7168-byte nibble stream. timing selects the firmware's step-pulse
// rounding for this attempt; pass RepositionTiming to request a seek-off-
// and-back with no capture.
//
// When timing is RepositionTiming the returned buffer is nil: the firmware
// only sends the ack byte for a reposition command.
func (p *Port) Capture(track byte, timing byte) ([]byte, error) {
	if err := p.write(cmdCapture, track, timing); err != nil {
		return nil, err
	}
	ack, err := p.readAck()
	if err != nil {
		return nil, err
	}
	if timing == RepositionTiming {
		return nil, nil
	}
	if ack != captureAckOK {
		return nil, errs.Transportf("driveport: capture nack from %s: got %#x, want %#x", p.name, ack, captureAckOK)
	}
	raw := make([]byte, gcr.RawTrackBytes)
	if err := p.readFull(raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// SelfTest issues the controller's built-in self-test command and reports
// whether the firmware's final acknowledgement indicated success.
func (p *Port) SelfTest() (bool, error) {
	if err := p.write(cmdSelfTestEnter); err != nil {
		return false, err
	}
	if _, err := p.readAck(); err != nil {
		return false, err
	}

	if err := p.write(cmdSelfTestRead); err != nil {
		return false, err
	}
	if _, err := p.readAck(); err != nil {
		return false, err
	}
	buf := make([]byte, gcr.RawTrackBytes)
	if err := p.readFull(buf); err != nil {
		return false, err
	}

	if err := p.write(cmdSelfTestExit); err != nil {
		return false, err
	}
	finalAck, err := p.readAck()
	if err != nil {
		return false, err
	}
	return finalAck == selfTestPass, nil
}

func (p *Port) write(cmd ...byte) error {
	if _, err := p.conn.Write(cmd); err != nil {
		return errs.Transportf("driveport: writing command to %s: %v", p.name, err)
	}
	return nil
}

func (p *Port) readAck() (byte, error) {
	buf := make([]byte, 1)
	if err := p.readFull(buf); err != nil {
		return 0, err
	}
	return buf[0], nil
}

// readFull reads exactly len(buf) bytes, honoring the per-chunk read
// timeout the serial port was opened with: a short read (timeout with no
// data) is reported as a transport error rather than silently truncated.
func (p *Port) readFull(buf []byte) error {
	for n := 0; n < len(buf); {
		nn, err := p.conn.Read(buf[n:])
		if err != nil {
			return errs.Transportf("driveport: reading from %s: %v", p.name, err)
		}
		if nn == 0 {
			return errs.Transportf("driveport: reading from %s: timed out after %d of %d bytes", p.name, n, len(buf))
		}
		n += nn
	}
	return nil
}
