package pxammc

import "github.com/clktmr/pxammc/drivers/mmc/pxammc/internal/regs"

// BaseAddr is the physical address of the MMC controller on PXA2xx/PXA3xx.
const BaseAddr uintptr = 0x4110_0000

// Bus gives word access to the controller's register block. Offsets are
// relative to the block's base address.
type Bus interface {
	Load(off uintptr) uint32
	Store(off uintptr, v uint32)

	// LoadByte does a byte wide read, which the RX FIFO needs to pop a
	// single byte.
	LoadByte(off uintptr) byte
}

type reg[T ~uint32] struct {
	bus Bus
	off uintptr
}

func (r reg[T]) Load() T          { return T(r.bus.Load(r.off)) }
func (r reg[T]) Store(v T)        { r.bus.Store(r.off, uint32(v)) }
func (r reg[T]) LoadBits(m T) T   { return r.Load() & m }
func (r reg[T]) LoadByte() byte   { return r.bus.LoadByte(r.off) }
func (r reg[T]) StoreByte(b byte) { r.bus.Store(r.off, uint32(b)) }

type registers struct {
	strpcl reg[regs.Strpcl]
	stat   reg[regs.Status]
	clkrt  reg[uint32]
	spi    reg[uint32]
	cmdat  reg[regs.Cmdat]
	resto  reg[uint32]
	rdto   reg[uint32]
	blklen reg[uint32]
	nob    reg[uint32]
	prtbuf reg[regs.Prtbuf]
	imask  reg[regs.Irq]
	ireg   reg[regs.Irq]
	cmd    reg[uint32]
	argh   reg[uint32]
	argl   reg[uint32]
	res    reg[uint32]
	rxfifo reg[uint32]
	txfifo reg[uint32]
}

func newRegisters(bus Bus) *registers {
	return &registers{
		strpcl: reg[regs.Strpcl]{bus, regs.STRPCL},
		stat:   reg[regs.Status]{bus, regs.STAT},
		clkrt:  reg[uint32]{bus, regs.CLKRT},
		spi:    reg[uint32]{bus, regs.SPI},
		cmdat:  reg[regs.Cmdat]{bus, regs.CMDAT},
		resto:  reg[uint32]{bus, regs.RESTO},
		rdto:   reg[uint32]{bus, regs.RDTO},
		blklen: reg[uint32]{bus, regs.BLKLEN},
		nob:    reg[uint32]{bus, regs.NOB},
		prtbuf: reg[regs.Prtbuf]{bus, regs.PRTBUF},
		imask:  reg[regs.Irq]{bus, regs.IMASK},
		ireg:   reg[regs.Irq]{bus, regs.IREG},
		cmd:    reg[uint32]{bus, regs.CMD},
		argh:   reg[uint32]{bus, regs.ARGH},
		argl:   reg[uint32]{bus, regs.ARGL},
		res:    reg[uint32]{bus, regs.RES},
		rxfifo: reg[uint32]{bus, regs.RXFIFO},
		txfifo: reg[uint32]{bus, regs.TXFIFO},
	}
}
