// Package regs holds the register map of the PXA2xx/PXA3xx MMC controller.
// It is shared by the driver and the simulator so both agree on offsets and
// bit positions.
package regs

// Offsets from the controller base address.
const (
	STRPCL = 0x00 // clock start/stop
	STAT   = 0x04 // status, read-only
	CLKRT  = 0x08 // clock rate divider
	SPI    = 0x0c // SPI mode control
	CMDAT  = 0x10 // command/data control
	RESTO  = 0x14 // response timeout
	RDTO   = 0x18 // read timeout
	BLKLEN = 0x1c // block length
	NOB    = 0x20 // number of blocks
	PRTBUF = 0x24 // partial buffer full
	IMASK  = 0x28 // interrupt mask
	IREG   = 0x2c // interrupt request, read-only
	CMD    = 0x30 // command index
	ARGH   = 0x34 // argument bits 31:16
	ARGL   = 0x38 // argument bits 15:0
	RES    = 0x3c // response FIFO, 16 bit wide
	RXFIFO = 0x40
	TXFIFO = 0x44

	Size = 0x48
)

// FIFOSize is the depth of the RX and TX data FIFOs in bytes.
const FIFOSize = 32

type Strpcl uint32

const (
	StopClk Strpcl = 1 << iota
	StartClk
)

type Status uint32

const (
	ReadTimeOut Status = 1 << iota
	TimeOutResponse
	CRCWriteError
	CRCReadError
	SPIReadErrorToken
	ResCRCError
	XmitFIFOEmpty
	RecvFIFOFull
	ClkEn
	_
	_
	DataTranDone
	PrgDone
	EndCmdRes

	Errors = ReadTimeOut | TimeOutResponse | CRCWriteError | CRCReadError |
		SPIReadErrorToken | ResCRCError
)

type Cmdat uint32

const (
	RespNone Cmdat = 0
	RespR1   Cmdat = 1
	RespR2   Cmdat = 2
	RespR3   Cmdat = 3
	RespMask Cmdat = 3
)

const (
	DataEn Cmdat = 1 << (iota + 2)
	Write
	Stream
	Busy
	Init
	DMAEn
	SD4Dat
)

type Irq uint32

const (
	IrqDataTranDone Irq = 1 << iota
	IrqPrgDone
	IrqEndCmdRes
	IrqStopCmd
	IrqClkIsOff
	IrqRxFIFORdReq
	IrqTxFIFOWrReq
)

type Prtbuf uint32

const BufPartFull Prtbuf = 1

const (
	SPIDisable = 0x0
	RestoMax   = 0x7f
	RdtoMax    = 0xffff
)
