// Package mmc contains the types shared between a storage core and the
// MMC/SD host controller drivers below it.
//
// A host driver executes exactly one command, optionally followed by one data
// phase, per call. Card discovery, voltage negotiation and any retry policy
// live above this package.
package mmc

import "fmt"

// Host is implemented by every host controller driver. Implementations are
// not required to be safe for concurrent use; the caller serializes requests.
type Host interface {
	// SetRate programs the bus clock to at most hz. A rate of zero stops
	// the clock.
	SetRate(hz uint32) error

	// Execute sends cmd to the card and runs the data phase described by
	// data, which may be nil. On success cmd.Response holds the decoded
	// response.
	Execute(cmd *Cmd, data *Data) error
}

// Voltage is the set of supply voltages a host can provide, using the bit
// layout of the OCR register.
type Voltage uint32

const (
	Vdd165_195 Voltage = 1 << (iota + 7) // 1.65 - 1.95 V
	Vdd20_21
	Vdd21_22
	Vdd22_23
	Vdd23_24
	Vdd24_25
	Vdd25_26
	Vdd26_27
	Vdd27_28
	Vdd28_29
	Vdd29_30
	Vdd30_31
	Vdd31_32
	Vdd32_33
	Vdd33_34
	Vdd34_35
	Vdd35_36
)

// Caps are the capabilities of a host controller.
type Caps uint32

const (
	ModeHS Caps = 1 << iota
	ModeHS52
	Mode4Bit
	Mode8Bit
	ModeSPI
	ModeHC
)

// Device is the host instance handed to the storage core when a host driver
// is opened. The core owns it and may change BusWidth and Clock after
// negotiating with the card; drivers only read it.
type Device struct {
	Name     string
	Host     Host
	Voltages Voltage
	Caps     Caps
	FMin     uint32 // Hz
	FMax     uint32 // Hz

	BusWidth int    // 1 or 4
	Clock    uint32 // last requested rate in Hz
}

func (d *Device) String() string {
	return fmt.Sprintf("%s (%d-%d Hz, %d-bit)", d.Name, d.FMin, d.FMax, d.BusWidth)
}

// SetClock records hz as the requested rate and forwards it to the host.
func (d *Device) SetClock(hz uint32) error {
	if hz != 0 {
		hz = max(min(hz, d.FMax), d.FMin)
	}
	d.Clock = hz
	return d.Host.SetRate(hz)
}
