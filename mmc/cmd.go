package mmc

import "fmt"

// RespType describes the response a command expects. It is a set of flags,
// the named values below are the combinations cards actually use.
type RespType uint8

const (
	rspPresent RespType = 1 << iota
	rsp136
	rspCRC
	rspBusy
	rspOpcode
)

const (
	RespNone RespType = 0
	RespR1            = rspPresent | rspCRC | rspOpcode
	RespR1b           = rspPresent | rspCRC | rspOpcode | rspBusy
	RespR2            = rspPresent | rsp136 | rspCRC
	RespR3            = rspPresent
	RespR4            = rspPresent
	RespR5            = rspPresent | rspCRC | rspOpcode
	RespR6            = rspPresent | rspCRC | rspOpcode
	RespR7            = rspPresent | rspCRC | rspOpcode
)

// Present reports whether the card answers at all.
func (t RespType) Present() bool { return t&rspPresent != 0 }

// Long reports whether the response is 136 bits.
func (t RespType) Long() bool { return t&rsp136 != 0 }

// CRC reports whether the response carries a valid CRC7.
func (t RespType) CRC() bool { return t&rspCRC != 0 }

// Busy reports whether the card may signal busy after responding.
func (t RespType) Busy() bool { return t&rspBusy != 0 }

// Opcode reports whether the response echoes the command index.
func (t RespType) Opcode() bool { return t&rspOpcode != 0 }

func (t RespType) String() string {
	switch t {
	case RespNone:
		return "none"
	case RespR1:
		return "R1"
	case RespR1b:
		return "R1b"
	case RespR2:
		return "R2"
	case RespR3:
		return "R3"
	}
	return fmt.Sprintf("RespType(%#x)", uint8(t))
}

// Cmd is a single card command. Response is filled in by the host.
type Cmd struct {
	Index    uint8
	Arg      uint32
	Resp     RespType
	Response [4]uint32
}

func (c *Cmd) String() string {
	return fmt.Sprintf("CMD%d(%#08x) %v", c.Index, c.Arg, c.Resp)
}

type DataFlags uint8

const (
	DataRead DataFlags = 1 << iota
	DataWrite
)

// Data describes the data phase of a command. Buf is read from or written to
// starting at its first byte; exactly Blocks*BlockSize bytes are moved.
type Data struct {
	Flags     DataFlags
	Blocks    uint32
	BlockSize uint32
	Buf       []byte
}

func (d *Data) size() uint64 {
	return uint64(d.Blocks) * uint64(d.BlockSize)
}

// Len returns the number of bytes the data phase moves. The result is only
// meaningful once Check succeeded, which guarantees it fits into Buf.
func (d *Data) Len() int {
	return int(d.size())
}

// Write reports whether data flows from the host to the card.
func (d *Data) Write() bool {
	return d.Flags&DataWrite != 0
}

// Check returns ErrShortBuffer if Buf can't hold the whole transfer.
func (d *Data) Check() error {
	if d.size() > uint64(len(d.Buf)) {
		return fmt.Errorf("%w: %d < %d*%d", ErrShortBuffer, len(d.Buf), d.Blocks, d.BlockSize)
	}
	return nil
}
