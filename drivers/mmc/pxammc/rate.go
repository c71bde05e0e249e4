package pxammc

import "github.com/clktmr/pxammc/mmc"

// divider returns the CLKRT value for hz, the bus clock being fmax>>CLKRT.
//
// The ratio is rounded up to an even number before searching the exponent,
// so the result may run slightly faster than hz for odd ratios above two.
// This matches the behaviour the hardware was validated with.
func divider(fmax, hz uint32) uint32 {
	var clkrt uint32

	ratio := fmax / hz
	if ratio > 1 {
		ratio += ratio % 2
	}
	for ratio > 1 {
		clkrt++
		ratio >>= 1
	}
	return clkrt
}

// SetRate implements mmc.Host. A rate of zero stops the clock.
func (h *Host) SetRate(hz uint32) error {
	if hz == 0 {
		return h.stopClock()
	}

	var clkrt uint32
	if h.cfg.FastRate != 0 && hz == h.cfg.FastRate {
		clkrt = h.cfg.FastDivider
	} else {
		clkrt = divider(h.cfg.FMax, hz)
	}
	h.regs.clkrt.Store(clkrt)
	h.log.WithField("hz", hz).WithField("clkrt", clkrt).Debug("set rate")
	return nil
}

var _ mmc.Host = (*Host)(nil)
