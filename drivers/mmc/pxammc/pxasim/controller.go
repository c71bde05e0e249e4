// Package pxasim simulates a PXA MMC controller with an SD card attached. The
// Controller implements pxammc.Bus, so the real driver can be run and tested
// on a development machine.
package pxasim

import (
	"github.com/clktmr/pxammc/drivers/mmc/pxammc/internal/regs"
	"github.com/clktmr/pxammc/mmc"
)

// Faults make the simulated controller misbehave.
type Faults struct {
	ClockStuck      bool // clock keeps its current state
	NoEndCmd        bool // END_CMD_RES is never set
	ResponseTimeout bool // card doesn't answer
	BadCRC          bool // response CRC is corrupted
	NoTransferDone  bool // DATA_TRAN_DONE is never set
	NoProgramDone   bool // PRG_DONE is never set

	// DataError sets a CRC error in STAT once DataErrorAt bytes of the data
	// phase were moved.
	DataError   bool
	DataErrorAt int

	// FIFOStall stops raising FIFO requests once FIFOStallAt bytes were
	// moved, without flagging an error.
	FIFOStall   bool
	FIFOStallAt int
}

// Command is a command as seen by the controller.
type Command struct {
	Index uint8
	Arg   uint32
	Cmdat uint32
}

// Counters of register accesses, used to check what the driver did.
type Counters struct {
	StatReads    int
	ResReads     int
	RxBytes      int
	TxBytes      int
	PartialFlags int // writes to PRTBUF
	MaxBurst     int // most FIFO bytes moved after a single FIFO request
}

// Controller is an in-memory PXA MMC controller.
type Controller struct {
	Card   *Card
	Faults Faults

	Commands []Command
	Counters Counters

	regs  [regs.Size / 4]uint32
	clk   bool
	stat  regs.Status
	res   []uint16
	rx    []byte
	tx    []byte
	txLen int
	xarg  uint32
	moved int
	burst int
}

// New returns a controller with card inserted.
func New(card *Card) *Controller {
	return &Controller{Card: card}
}

func (c *Controller) reg(off uintptr) uint32 { return c.regs[off/4] }

// Load implements pxammc.Bus.
func (c *Controller) Load(off uintptr) uint32 {
	switch off {
	case regs.STAT:
		c.Counters.StatReads++
		stat := c.stat
		if c.clk {
			stat |= regs.ClkEn
		}
		return uint32(stat)
	case regs.IREG:
		return uint32(c.ireg())
	case regs.RES:
		c.Counters.ResReads++
		if len(c.res) == 0 {
			return 0
		}
		w := c.res[0]
		c.res = c.res[1:]
		return uint32(w)
	case regs.RXFIFO:
		return uint32(c.popRx())
	}
	return c.reg(off)
}

// LoadByte implements pxammc.Bus.
func (c *Controller) LoadByte(off uintptr) byte {
	if off == regs.RXFIFO {
		return c.popRx()
	}
	return byte(c.Load(off))
}

// Store implements pxammc.Bus.
func (c *Controller) Store(off uintptr, v uint32) {
	switch off {
	case regs.STRPCL:
		c.strpcl(regs.Strpcl(v))
		return
	case regs.TXFIFO:
		c.pushTx(byte(v))
		return
	case regs.PRTBUF:
		if regs.Prtbuf(v)&regs.BufPartFull != 0 {
			c.Counters.PartialFlags++
		}
	case regs.STAT, regs.IREG, regs.RES, regs.RXFIFO:
		return // read-only
	}
	c.regs[off/4] = v
}

// Running reports whether the bus clock is enabled.
func (c *Controller) Running() bool { return c.clk }

// Divider returns the last value written to CLKRT.
func (c *Controller) Divider() uint32 { return c.reg(regs.CLKRT) }

func (c *Controller) ireg() (irq regs.Irq) {
	stalled := c.Faults.FIFOStall && c.moved >= c.Faults.FIFOStallAt
	if c.txLen > len(c.tx) && !stalled {
		irq |= regs.IrqTxFIFOWrReq
		c.burst = 0
	}
	if len(c.rx) > 0 && !stalled {
		irq |= regs.IrqRxFIFORdReq
		c.burst = 0
	}
	if c.stat&regs.DataTranDone != 0 {
		irq |= regs.IrqDataTranDone
	}
	if c.stat&regs.EndCmdRes != 0 {
		irq |= regs.IrqEndCmdRes
	}
	return irq &^ regs.Irq(c.reg(regs.IMASK))
}

func (c *Controller) strpcl(v regs.Strpcl) {
	if c.Faults.ClockStuck {
		return
	}
	switch {
	case v&regs.StopClk != 0:
		c.clk = false
	case v&regs.StartClk != 0:
		c.clk = true
		c.issue()
	}
}

func (c *Controller) issue() {
	cmd := Command{
		Index: uint8(c.reg(regs.CMD) & 0x3f),
		Arg:   c.reg(regs.ARGH)<<16 | c.reg(regs.ARGL)&0xffff,
		Cmdat: c.reg(regs.CMDAT),
	}
	c.Commands = append(c.Commands, cmd)

	c.stat = 0
	c.res, c.rx, c.tx, c.txLen, c.moved = nil, nil, nil, 0, 0

	frame, ok := c.Card.Command(cmd.Index, cmd.Arg)
	if c.Faults.NoEndCmd {
		return
	}
	c.stat |= regs.EndCmdRes

	cmdat := regs.Cmdat(cmd.Cmdat)
	if cmdat&regs.RespMask == regs.RespNone {
		return
	}
	if !ok || frame == nil || c.Faults.ResponseTimeout {
		c.stat |= regs.TimeOutResponse
		return
	}
	if c.Faults.BadCRC {
		frame[len(frame)-1] ^= 0x02
	}
	if !crcValid(frame) {
		c.stat |= regs.ResCRCError
	}

	// The response FIFO is 16 bit wide and filled big endian.
	for i := 0; i < len(frame); i += 2 {
		w := uint16(frame[i]) << 8
		if i+1 < len(frame) {
			w |= uint16(frame[i+1])
		}
		c.res = append(c.res, w)
	}

	if cmdat&regs.DataEn == 0 {
		return
	}
	n := int(c.reg(regs.NOB)) * int(c.reg(regs.BLKLEN))
	c.xarg = cmd.Arg
	if cmdat&regs.Write != 0 {
		c.txLen = n
	} else {
		c.rx = c.Card.Read(cmd.Arg, n)
	}
}

func crcValid(frame []byte) bool {
	payload := frame[:len(frame)-1]
	if len(frame) == 17 {
		payload = frame[1:16] // header isn't covered
	}
	return mmc.CRC7(payload) == frame[len(frame)-1]>>1
}

func (c *Controller) dataMoved() {
	c.moved++
	c.burst++
	c.Counters.MaxBurst = max(c.Counters.MaxBurst, c.burst)
	if c.Faults.DataError && c.moved >= c.Faults.DataErrorAt {
		if c.txLen > 0 {
			c.stat |= regs.CRCWriteError
		} else {
			c.stat |= regs.CRCReadError
		}
	}
}

func (c *Controller) popRx() byte {
	if len(c.rx) == 0 {
		return 0
	}
	b := c.rx[0]
	c.rx = c.rx[1:]
	c.Counters.RxBytes++
	c.dataMoved()
	if len(c.rx) == 0 && !c.Faults.NoTransferDone {
		c.stat |= regs.DataTranDone
	}
	return b
}

func (c *Controller) pushTx(b byte) {
	if len(c.tx) >= c.txLen {
		return
	}
	c.tx = append(c.tx, b)
	c.Counters.TxBytes++
	c.dataMoved()
	if len(c.tx) < c.txLen {
		return
	}
	c.Card.Write(c.xarg, c.tx)
	if !c.Faults.NoTransferDone {
		c.stat |= regs.DataTranDone
	}
	if !c.Faults.NoProgramDone {
		c.stat |= regs.PrgDone
	}
}
