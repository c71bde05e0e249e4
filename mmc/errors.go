package mmc

import "errors"

var (
	// ErrTimeout is returned when the controller didn't reach an expected
	// state within its polling budget.
	ErrTimeout = errors.New("mmc: timeout")

	// ErrCRC is returned when a CRC protected response failed its check.
	ErrCRC = errors.New("mmc: response crc mismatch")

	// ErrIO is returned when the controller flagged an error while data
	// was being transferred. The buffer contents are undefined.
	ErrIO = errors.New("mmc: data transfer error")

	// ErrAllocation is returned when a host instance can't be set up.
	ErrAllocation = errors.New("mmc: host allocation failed")

	// ErrNotOpen is returned by hosts which are used before being opened.
	ErrNotOpen = errors.New("mmc: host not opened")

	// ErrShortBuffer is returned when a data buffer can't hold the
	// announced number of blocks.
	ErrShortBuffer = errors.New("mmc: buffer shorter than transfer")
)
