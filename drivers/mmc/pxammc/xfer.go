package pxammc

import (
	"fmt"

	"github.com/clktmr/pxammc/debug"
	"github.com/clktmr/pxammc/drivers/mmc/pxammc/internal/regs"
	"github.com/clktmr/pxammc/mmc"
)

// fifoIdleMax bounds the consecutive I_REG polls without a FIFO request.
// A request normally shows up within a few polls, at the slowest bus clock
// a FIFO takes well below a millisecond to drain.
const fifoIdleMax = 1 << 16

// fifoChunk returns how many bytes can be moved through the FIFO at once.
func fifoChunk(left int) int {
	return min(left, regs.FIFOSize)
}

// xferBuf returns the part of the buffer the data phase moves. Execute
// rejects descriptors whose length doesn't fit the buffer.
func xferBuf(data *mmc.Data) []byte {
	n := data.Len()
	debug.Assertf(n >= 0 && n <= len(data.Buf),
		"unchecked transfer of %d*%d bytes into %d", data.Blocks, data.BlockSize, len(data.Buf))
	return data.Buf[:n]
}

func (h *Host) fifoStalled(data *mmc.Data, left int) error {
	return fmt.Errorf("%w: no FIFO request with %d of %d bytes left",
		mmc.ErrTimeout, left, data.Len())
}

func (h *Host) xferError(data *mmc.Data, left int) error {
	stat := h.regs.stat.LoadBits(regs.Errors)
	if stat == 0 {
		return nil
	}
	return fmt.Errorf("%w: status %#04x with %d of %d bytes left",
		mmc.ErrIO, uint32(stat), left, data.Len())
}

func (h *Host) readXfer(data *mmc.Data) error {
	buf := xferBuf(data)

	for idle := 0; len(buf) > 0; {
		if h.regs.ireg.LoadBits(regs.IrqRxFIFORdReq) != 0 {
			n := fifoChunk(len(buf))
			for i := range n {
				buf[i] = h.regs.rxfifo.LoadByte()
			}
			buf = buf[n:]
			idle = 0
		} else if idle++; idle > fifoIdleMax {
			return h.fifoStalled(data, len(buf))
		}

		if err := h.xferError(data, len(buf)); err != nil {
			return err
		}
	}

	if err := h.wait(regs.DataTranDone); err != nil {
		return fmt.Errorf("%w: read not finished", err)
	}
	return nil
}

func (h *Host) writeXfer(data *mmc.Data) error {
	buf := xferBuf(data)

	for idle := 0; len(buf) > 0; {
		if h.regs.ireg.LoadBits(regs.IrqTxFIFOWrReq) != 0 {
			n := fifoChunk(len(buf))
			for _, b := range buf[:n] {
				h.regs.txfifo.StoreByte(b)
			}
			if n < regs.FIFOSize {
				h.regs.prtbuf.Store(regs.BufPartFull)
			}
			buf = buf[n:]
			idle = 0
		} else if idle++; idle > fifoIdleMax {
			return h.fifoStalled(data, len(buf))
		}

		if err := h.xferError(data, len(buf)); err != nil {
			return err
		}
	}

	if err := h.wait(regs.DataTranDone); err != nil {
		return fmt.Errorf("%w: write not finished", err)
	}

	// The FIFO is empty now, but the card may still be programming.
	if err := h.wait(regs.PrgDone); err != nil {
		return fmt.Errorf("%w: write not committed", err)
	}
	return nil
}
