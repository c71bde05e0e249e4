// Package pxammc drives the MMC/SD controller of the Intel/Marvell PXA2xx and
// PXA3xx processors.
//
// The driver never uses interrupts. Every wait is a bounded poll of the status
// register, so a request either completes or fails with mmc.ErrTimeout after a
// fixed time. Only one request may be in flight at a time.
package pxammc

import (
	"fmt"
	"io"
	"time"

	"gopkg.in/Sirupsen/logrus.v0"

	"github.com/clktmr/pxammc/drivers/mmc/pxammc/internal/regs"
	"github.com/clktmr/pxammc/mmc"
)

// Config describes the controller as wired on a particular board.
type Config struct {
	Name     string      `toml:"name"`
	FMax     uint32      `toml:"f_max"` // Hz, controller input clock
	FMin     uint32      `toml:"f_min"` // Hz
	Caps     mmc.Caps    `toml:"caps"`
	Voltages mmc.Voltage `toml:"voltages"`

	// FastRate is a rate which can't be reached by dividing FMax and is
	// selected by writing FastDivider to CLKRT instead. Zero disables it.
	FastRate    uint32 `toml:"fast_rate"`
	FastDivider uint32 `toml:"fast_divider"`

	// StrictCRC disables ignoring CRC errors on 136-bit responses which
	// have their top bit set.
	StrictCRC bool `toml:"strict_crc"`

	Logger *logrus.Logger      `toml:"-"` // nil discards all output
	Delay  func(time.Duration) `toml:"-"` // nil uses time.Sleep
}

// DefaultConfig returns the configuration of the PXA27x controller.
func DefaultConfig() Config {
	return Config{
		Name:     "PXA MMC",
		FMax:     19_500_000,
		FMin:     304_000,
		Caps:     mmc.Mode4Bit,
		Voltages: mmc.Vdd32_33 | mmc.Vdd33_34,
	}
}

// PXA3xxConfig returns the configuration of the PXA3xx controller, which
// additionally runs the bus at 26MHz.
func PXA3xxConfig() Config {
	cfg := DefaultConfig()
	cfg.FastRate = 26_000_000
	cfg.FastDivider = 0x7
	return cfg
}

func (c *Config) validate() error {
	switch {
	case c.FMax == 0:
		return fmt.Errorf("%w: zero f_max", mmc.ErrAllocation)
	case c.FMin > c.FMax:
		return fmt.Errorf("%w: f_min %d above f_max %d", mmc.ErrAllocation, c.FMin, c.FMax)
	case c.Voltages == 0:
		return fmt.Errorf("%w: no supply voltage", mmc.ErrAllocation)
	}
	return nil
}

// Host implements mmc.Host for a single PXA MMC controller.
//
// Host is not safe for concurrent use.
type Host struct {
	regs  *registers
	cfg   Config
	dev   *mmc.Device
	log   *logrus.Entry
	delay func(time.Duration)
}

// New returns a host for the controller behind bus. The controller isn't
// touched until Open is called.
func New(bus Bus, cfg Config) *Host {
	logger := cfg.Logger
	if logger == nil {
		logger = logrus.New()
		logger.Out = io.Discard
	}
	delay := cfg.Delay
	if delay == nil {
		delay = time.Sleep
	}
	return &Host{
		regs:  newRegisters(bus),
		cfg:   cfg,
		log:   logger.WithField("host", cfg.Name),
		delay: delay,
	}
}

// Open resets the controller into polling mode and returns the host instance
// to be handed to the storage core. A controller whose clock can't be stopped
// fails the whole Open.
func (h *Host) Open() (*mmc.Device, error) {
	if err := h.cfg.validate(); err != nil {
		return nil, err
	}

	if err := h.stopClock(); err != nil {
		return nil, err
	}
	h.regs.spi.Store(regs.SPIDisable)
	h.regs.resto.Store(regs.RestoMax)

	// Only the FIFO requests stay unmasked, they must be visible in IREG
	// for the transfer loops. Nothing is routed to the CPU.
	h.regs.imask.Store(^(regs.IrqTxFIFOWrReq | regs.IrqRxFIFORdReq))

	h.dev = &mmc.Device{
		Name:     h.cfg.Name,
		Host:     h,
		Voltages: h.cfg.Voltages,
		Caps:     h.cfg.Caps,
		FMin:     h.cfg.FMin,
		FMax:     max(h.cfg.FMax, h.cfg.FastRate),
		BusWidth: 1,
	}
	h.log.Debug("controller ready")
	return h.dev, nil
}

// Init opens the controller behind bus and registers it with the storage
// core.
func Init(bus Bus, cfg Config) (*mmc.Device, error) {
	dev, err := New(bus, cfg).Open()
	if err != nil {
		return nil, err
	}
	if err := mmc.Register(dev); err != nil {
		return nil, err
	}
	return dev, nil
}

// Execute implements mmc.Host.
//
// A failing data phase doesn't undo the command, which the card has already
// accepted at that point.
func (h *Host) Execute(cmd *mmc.Cmd, data *mmc.Data) error {
	var cmdat regs.Cmdat

	if h.dev == nil {
		return fmt.Errorf("%w: %s", mmc.ErrNotOpen, h.cfg.Name)
	}
	if data != nil {
		if err := data.Check(); err != nil {
			return err
		}
	}

	if err := h.stopClock(); err != nil {
		return err
	}

	if data != nil {
		h.regs.nob.Store(data.Blocks)
		h.regs.blklen.Store(data.BlockSize)
		h.regs.rdto.Store(regs.RdtoMax)
		cmdat |= regs.DataEn
		if data.Write() {
			cmdat |= regs.Write
		}
	}

	if h.dev.BusWidth == 4 {
		cmdat |= regs.SD4Dat
	}

	if err := h.startCmd(cmd, cmdat); err != nil {
		return err
	}

	if err := h.wait(regs.EndCmdRes); err != nil {
		return fmt.Errorf("%w: no response to CMD%d", err, cmd.Index)
	}

	if err := h.cmdDone(cmd); err != nil {
		return err
	}

	if data == nil {
		return nil
	}
	if data.Write() {
		return h.writeXfer(data)
	}
	return h.readXfer(data)
}
