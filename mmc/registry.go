package mmc

import "fmt"

// MaxDevices is the number of hosts that can be registered.
const MaxDevices = 4

var devices [MaxDevices]*Device

// Register makes dev known to the storage core. It is meant to be called
// from board init code and is not safe for concurrent use.
func Register(dev *Device) error {
	for i := range devices {
		if devices[i] == dev {
			return nil
		}
		if devices[i] == nil {
			devices[i] = dev
			return nil
		}
	}
	return fmt.Errorf("%w: all %d host slots in use", ErrAllocation, MaxDevices)
}

// Devices returns all registered hosts in registration order.
func Devices() []*Device {
	n := 0
	for n < len(devices) && devices[n] != nil {
		n++
	}
	return devices[:n:n]
}

// Find returns the registered host called name or nil.
func Find(name string) *Device {
	for _, dev := range Devices() {
		if dev.Name == name {
			return dev
		}
	}
	return nil
}
