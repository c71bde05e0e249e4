package pxammc

import (
	"fmt"
	"time"

	"gopkg.in/Sirupsen/logrus.v0"

	"github.com/clktmr/pxammc/drivers/mmc/pxammc/internal/regs"
	"github.com/clktmr/pxammc/mmc"
)

// Every wait is pollRetries reads of STAT, pollInterval apart: 1ms total.
const (
	pollRetries  = 100
	pollInterval = 10 * time.Microsecond
)

// wait polls until any bit in mask is set in STAT.
func (h *Host) wait(mask regs.Status) error {
	if h.log.Logger.Level >= logrus.DebugLevel {
		h.log.WithField("mask", fmt.Sprintf("%#04x", uint32(mask))).Debug("wait")
	}
	for i := range pollRetries {
		if h.regs.stat.LoadBits(mask) != 0 {
			return nil
		}
		if i < pollRetries-1 {
			h.delay(pollInterval)
		}
	}
	return fmt.Errorf("%w: status %#04x never set", mmc.ErrTimeout, uint32(mask))
}

// waitClear polls until all bits in mask are cleared in STAT.
func (h *Host) waitClear(mask regs.Status) error {
	for i := range pollRetries {
		if h.regs.stat.LoadBits(mask) == 0 {
			return nil
		}
		if i < pollRetries-1 {
			h.delay(pollInterval)
		}
	}
	return fmt.Errorf("%w: status %#04x never cleared", mmc.ErrTimeout, uint32(mask))
}

func (h *Host) stopClock() error {
	if h.regs.stat.LoadBits(regs.ClkEn) == 0 {
		return nil
	}

	h.regs.strpcl.Store(regs.StopClk)

	if err := h.waitClear(regs.ClkEn); err != nil {
		return fmt.Errorf("%w: clock refused to stop", err)
	}
	return nil
}

func (h *Host) startClock() error {
	h.regs.strpcl.Store(regs.StartClk)

	if err := h.wait(regs.ClkEn); err != nil {
		return fmt.Errorf("%w: clock refused to start", err)
	}
	return nil
}
