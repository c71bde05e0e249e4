package mmc

import "github.com/sigurn/crc8"

// CRC-7/MMC computed as an 8-bit CRC with the polynomial shifted left by one.
// The result carries the CRC in its upper seven bits, which is also where it
// sits in the last byte of a command or response frame.
var crc7Table = crc8.MakeTable(crc8.Params{0x12, 0x00, false, false, 0x00, 0xea, "CRC-7/MMC"})

// CRC7 returns the CRC-7 of p in the lower seven bits.
func CRC7(p []byte) uint8 {
	return crc8.Checksum(p, crc7Table) >> 1
}

// Frame returns the 48-bit frame that is sent on the command line for c,
// including start, transmission, CRC and end bits.
func (c *Cmd) Frame() [6]byte {
	f := [6]byte{
		0x40 | c.Index&0x3f,
		byte(c.Arg >> 24),
		byte(c.Arg >> 16),
		byte(c.Arg >> 8),
		byte(c.Arg),
	}
	f[5] = CRC7(f[:5])<<1 | 1
	return f
}
