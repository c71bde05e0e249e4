package pxasim

import (
	"encoding/binary"

	"github.com/clktmr/pxammc/mmc"
)

// Card states as reported in bits 12:9 of the card status.
const (
	stateIdle = iota
	stateReady
	stateIdent
	stateStby
	stateTran
	stateData
	stateRcv
	statePrg
)

// Card status bits.
const (
	statusAppCmd       = 1 << 5
	statusReadyForData = 1 << 8
	statusOutOfRange   = 1 << 31
)

// OCR bits.
const (
	OCRBusy = 1 << 31 // power up finished
	OCRCCS  = 1 << 30 // block addressed
)

// Card is a minimal SD card answering the commands a storage core needs to
// identify it and move blocks. Media is the card's storage.
type Card struct {
	CID   [15]byte // without CRC, which is computed
	CSD   [15]byte
	OCR   uint32
	RCA   uint16
	Media []byte

	state    int
	appCmd   bool
	blockLen uint32
	outRange bool
}

// NewCard returns a standard capacity card with size bytes of zeroed media.
func NewCard(size int) *Card {
	c := &Card{
		OCR:      OCRBusy | uint32(mmc.Vdd32_33|mmc.Vdd33_34),
		RCA:      0xb368,
		Media:    make([]byte, size),
		blockLen: 512,
	}
	copy(c.CID[:], "\x03SDSIM01\x10\x12\x34\x56\x78\x01") // SanDisk style MID, OID, name
	c.CSD[0] = 0x00                                       // CSD version 1.0
	return c
}

func (c *Card) status() uint32 {
	s := uint32(c.state) << 9
	if c.state == stateTran {
		s |= statusReadyForData
	}
	if c.appCmd {
		s |= statusAppCmd
	}
	if c.outRange {
		s |= statusOutOfRange
	}
	return s
}

func shortFrame(idx uint8, payload uint32) []byte {
	f := make([]byte, 6)
	f[0] = idx & 0x3f
	binary.BigEndian.PutUint32(f[1:], payload)
	f[5] = mmc.CRC7(f[:5])<<1 | 1
	return f
}

func longFrame(reg *[15]byte) []byte {
	f := make([]byte, 17)
	f[0] = 0x3f
	copy(f[1:], reg[:])
	f[16] = mmc.CRC7(reg[:])<<1 | 1
	return f
}

// Command runs a command on the card and returns the response frame as it
// appears on the command line, without the start bit. A nil frame with ok set
// means the command has no response, ok unset means the card didn't answer.
func (c *Card) Command(idx uint8, arg uint32) (frame []byte, ok bool) {
	app := c.appCmd
	c.appCmd = false

	if app {
		switch idx {
		case 6: // SET_BUS_WIDTH
			return shortFrame(idx, c.status()), true
		case 41: // SD_SEND_OP_COND
			if c.state == stateIdle {
				c.state = stateReady
			}
			f := shortFrame(0x3f, c.OCR)
			f[5] = 0xff // R3 carries no CRC
			return f, true
		}
	}

	switch idx {
	case 0: // GO_IDLE_STATE
		*c = Card{CID: c.CID, CSD: c.CSD, OCR: c.OCR, RCA: c.RCA, Media: c.Media, blockLen: 512}
		return nil, true
	case 2: // ALL_SEND_CID
		c.state = stateIdent
		return longFrame(&c.CID), true
	case 3: // SEND_RELATIVE_ADDR
		c.state = stateStby
		return shortFrame(idx, uint32(c.RCA)<<16|c.status()&0xffff), true
	case 7: // SELECT_CARD
		if uint16(arg>>16) == c.RCA {
			c.state = stateTran
		} else {
			c.state = stateStby
		}
		return shortFrame(idx, c.status()), true
	case 8: // SEND_IF_COND
		return shortFrame(idx, arg&0xfff), true
	case 9: // SEND_CSD
		return longFrame(&c.CSD), true
	case 12, 13: // STOP_TRANSMISSION, SEND_STATUS
		f := shortFrame(idx, c.status())
		c.outRange = false
		return f, true
	case 16: // SET_BLOCKLEN
		c.blockLen = arg
		return shortFrame(idx, c.status()), true
	case 17, 18, 24, 25: // block reads and writes
		return shortFrame(idx, c.status()), true
	case 55: // APP_CMD
		c.appCmd = true
		return shortFrame(idx, c.status()), true
	}
	return nil, false
}

func (c *Card) offset(arg uint32) int {
	if c.OCR&OCRCCS != 0 {
		return int(arg) * 512
	}
	return int(arg)
}

// Read returns n bytes of media for the read command with argument arg.
func (c *Card) Read(arg uint32, n int) []byte {
	p := make([]byte, n)
	off := c.offset(arg)
	if off+n > len(c.Media) {
		c.outRange = true
		return p
	}
	copy(p, c.Media[off:])
	return p
}

// Write stores p for the write command with argument arg.
func (c *Card) Write(arg uint32, p []byte) {
	off := c.offset(arg)
	if off+len(p) > len(c.Media) {
		c.outRange = true
		return
	}
	copy(c.Media[off:], p)
}
