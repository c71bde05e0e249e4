//go:build noos

package pxammc

import (
	"embedded/mmio"
	"unsafe"

	"github.com/clktmr/pxammc/drivers/mmc/pxammc/internal/regs"
)

type mmioBus struct {
	base uintptr
}

// MMIO returns a Bus accessing the controller registers mapped at base,
// usually BaseAddr.
func MMIO(base uintptr) Bus {
	return &mmioBus{base: base}
}

func (b *mmioBus) u32(off uintptr) *mmio.U32 {
	return (*mmio.U32)(unsafe.Pointer(b.base + off))
}

func (b *mmioBus) Load(off uintptr) uint32 {
	return b.u32(off).Load()
}

func (b *mmioBus) Store(off uintptr, v uint32) {
	b.u32(off).Store(v)
}

// LoadByte reads the lowest byte lane, which is where the controller places
// FIFO data on this little-endian core.
func (b *mmioBus) LoadByte(off uintptr) byte {
	if off != regs.RXFIFO {
		return byte(b.Load(off))
	}
	return (*mmio.U8)(unsafe.Pointer(b.base + off)).Load()
}
