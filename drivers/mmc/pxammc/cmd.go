package pxammc

import (
	"fmt"

	"gopkg.in/Sirupsen/logrus.v0"

	"github.com/clktmr/pxammc/drivers/mmc/pxammc/internal/regs"
	"github.com/clktmr/pxammc/mmc"
)

// Number of 16-bit reads from RES needed to assemble a 136-bit response. The
// upper byte of the first read is the response header and is dropped.
const resWords = 9

func respFormat(t mmc.RespType) regs.Cmdat {
	switch t {
	case mmc.RespR1, mmc.RespR1b:
		return regs.RespR1
	case mmc.RespR2:
		return regs.RespR2
	case mmc.RespR3:
		return regs.RespR3
	}
	return regs.RespNone
}

// startCmd loads cmd into the controller and starts the clock, which begins
// the transmission. cmdat carries the data and bus width flags.
func (h *Host) startCmd(cmd *mmc.Cmd, cmdat regs.Cmdat) error {
	if cmd.Resp.Busy() {
		cmdat |= regs.Busy
	}
	cmdat |= respFormat(cmd.Resp)

	if h.log.Logger.Level >= logrus.DebugLevel {
		h.log.WithFields(logrus.Fields{
			"cmd":   cmd.Index,
			"arg":   fmt.Sprintf("%#08x", cmd.Arg),
			"cmdat": fmt.Sprintf("%#03x", uint32(cmdat)),
		}).Debug("start command")
	}

	h.regs.cmd.Store(uint32(cmd.Index))
	h.regs.argh.Store(cmd.Arg >> 16)
	h.regs.argl.Store(cmd.Arg & 0xffff)
	h.regs.cmdat.Store(cmdat)

	return h.startClock()
}

// assembleResponse rebuilds the response words from the raw 16-bit reads of
// the response FIFO. Each word takes the low byte of the previous read and
// both bytes of the next read plus the high byte of the one after.
func assembleResponse(raw *[resWords]uint16) (resp [4]uint32) {
	a := uint32(raw[0])
	for i := range resp {
		b := uint32(raw[1+2*i])
		c := uint32(raw[2+2*i])
		resp[i] = a<<24 | b<<8 | c>>8
		a = c
	}
	return
}

// crcSuppressed reports whether a CRC error is ignored for cmd. Some cards
// send 136-bit responses (CID/CSD) with a CRC the controller always rejects;
// if the top response bit is set the error is accepted. This is a
// compatibility hack and StrictCRC turns it off.
func (h *Host) crcSuppressed(cmd *mmc.Cmd) bool {
	return !h.cfg.StrictCRC && cmd.Resp.Long() && cmd.Response[0]&0x8000_0000 != 0
}

// cmdDone reads back the response of the last command.
func (h *Host) cmdDone(cmd *mmc.Cmd) error {
	stat := h.regs.stat.Load()

	if stat&regs.TimeOutResponse != 0 {
		return fmt.Errorf("%w: CMD%d response", mmc.ErrTimeout, cmd.Index)
	}

	var raw [resWords]uint16
	for i := range raw {
		raw[i] = uint16(h.regs.res.Load())
	}
	cmd.Response = assembleResponse(&raw)

	if stat&regs.ResCRCError != 0 && cmd.Resp.CRC() {
		if !h.crcSuppressed(cmd) {
			return fmt.Errorf("%w: CMD%d", mmc.ErrCRC, cmd.Index)
		}
		h.log.WithField("cmd", cmd.Index).Warn("ignoring CRC error on long response")
	}

	return nil
}
