package pxammc

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gopkg.in/Sirupsen/logrus.v0"

	"github.com/clktmr/pxammc/drivers/mmc/pxammc/internal/regs"
	"github.com/clktmr/pxammc/drivers/mmc/pxammc/pxasim"
	"github.com/clktmr/pxammc/mmc"
)

func TestAssembleResponse(t *testing.T) {
	tests := map[string]struct {
		raw  [resWords]uint16
		want [4]uint32
	}{
		"Zero": {},
		"HeaderDropped": {
			[resWords]uint16{0xff12, 0x3456, 0x789a, 0xbcde, 0xf011, 0x2233, 0x4455, 0x6677, 0x8899},
			[4]uint32{0x12345678, 0x9abcdef0, 0x11223344, 0x55667788},
		},
		"Ones": {
			[resWords]uint16{0xffff, 0xffff, 0xffff, 0xffff, 0xffff, 0xffff, 0xffff, 0xffff, 0xffff},
			[4]uint32{0xffff_ffff, 0xffff_ffff, 0xffff_ffff, 0xffff_ffff},
		},
		"ShortResponse": { // R1: 0x11 header, status 0x00000900, crc+end, rest is stale
			[resWords]uint16{0x1100, 0x0009, 0x0045, 0, 0, 0, 0, 0, 0},
			[4]uint32{0x00000900, 0x45000000, 0, 0},
		},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			got := assembleResponse(&tc.raw)
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Fatal(diff)
			}
			for i := range got { // formula from the controller manual
				prev, mid, high := uint32(tc.raw[2*i]), uint32(tc.raw[2*i+1]), uint32(tc.raw[2*i+2])
				if want := (prev&0xff)<<24 | mid<<8 | high>>8; got[i] != want {
					t.Fatalf("word %d: expected %#08x, got %#08x", i, want, got[i])
				}
			}
		})
	}
}

func TestRespFormat(t *testing.T) {
	tests := map[string]struct {
		cmd  mmc.Cmd
		want regs.Cmdat
	}{
		"None": {mmc.Cmd{Index: 0, Resp: mmc.RespNone}, regs.RespNone},
		"R1":   {mmc.Cmd{Index: 13, Resp: mmc.RespR1}, regs.RespR1},
		"R1b":  {mmc.Cmd{Index: 7, Resp: mmc.RespR1b}, regs.RespR1 | regs.Busy},
		"R2":   {mmc.Cmd{Index: 2, Resp: mmc.RespR2}, regs.RespR2},
		"R3":   {mmc.Cmd{Index: 41, Resp: mmc.RespR3}, regs.RespR3},
		"R6":   {mmc.Cmd{Index: 3, Resp: mmc.RespR6}, regs.RespR1},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			h, sim, _ := newSimHost(t, pxasim.NewCard(1<<16))
			_ = h.Execute(&tc.cmd, nil) // only the encoding matters here
			if len(sim.Commands) != 1 {
				t.Fatalf("expected 1 command, got %d", len(sim.Commands))
			}
			if got := regs.Cmdat(sim.Commands[0].Cmdat); got != tc.want {
				t.Fatalf("expected cmdat %#x, got %#x", tc.want, got)
			}
		})
	}
}

func TestArgument(t *testing.T) {
	bus := newFakeBus(func(int) regs.Status { return regs.ClkEn })
	h := newFakeHost(bus, &sleepCounter{})

	cmd := mmc.Cmd{Index: 55, Arg: 0xdead_beef, Resp: mmc.RespR1}
	if err := h.startCmd(&cmd, regs.DataEn); err != nil {
		t.Fatal(err)
	}
	got := map[uintptr][]uint32{
		regs.CMD:    bus.stores[regs.CMD],
		regs.ARGH:   bus.stores[regs.ARGH],
		regs.ARGL:   bus.stores[regs.ARGL],
		regs.CMDAT:  bus.stores[regs.CMDAT],
		regs.STRPCL: bus.stores[regs.STRPCL],
	}
	want := map[uintptr][]uint32{
		regs.CMD:    {55},
		regs.ARGH:   {0xdead},
		regs.ARGL:   {0xbeef},
		regs.CMDAT:  {uint32(regs.DataEn | regs.RespR1)},
		regs.STRPCL: {uint32(regs.StartClk)},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatal(diff)
	}
}

func TestResponseCRC(t *testing.T) {
	tests := map[string]struct {
		cmd    mmc.Cmd
		mid    byte // first CID byte, top response bit for CMD2
		strict bool
		err    error
		warned bool
	}{
		"ShortCRCError":     {cmd: mmc.Cmd{Index: 13, Resp: mmc.RespR1}, err: mmc.ErrCRC},
		"LongTopBitClear":   {cmd: mmc.Cmd{Index: 2, Resp: mmc.RespR2}, mid: 0x03, err: mmc.ErrCRC},
		"LongTopBitSet":     {cmd: mmc.Cmd{Index: 2, Resp: mmc.RespR2}, mid: 0x83, warned: true},
		"LongTopBitStrict":  {cmd: mmc.Cmd{Index: 2, Resp: mmc.RespR2}, mid: 0x83, strict: true, err: mmc.ErrCRC},
		"UncheckedResponse": {cmd: mmc.Cmd{Index: 41, Resp: mmc.RespR3}},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			card := pxasim.NewCard(1 << 16)
			card.CID[0] = tc.mid
			h, sim, rec := newSimHost(t, card)
			h.cfg.StrictCRC = tc.strict
			sim.Faults.BadCRC = true

			if tc.cmd.Index == 41 {
				if err := h.Execute(&mmc.Cmd{Index: 55, Resp: mmc.RespR1}, nil); !errors.Is(err, mmc.ErrCRC) {
					t.Fatalf("expected %v, got %v", mmc.ErrCRC, err)
				}
			}

			err := h.Execute(&tc.cmd, nil)
			if !errors.Is(err, tc.err) {
				t.Fatalf("expected %v, got %v", tc.err, err)
			}
			if got := len(rec.messages(logrus.WarnLevel)) > 0; got != tc.warned {
				t.Fatalf("expected warning %v, got %v", tc.warned, got)
			}
		})
	}
}

func TestResponseValues(t *testing.T) {
	card := pxasim.NewCard(1 << 16)
	h, _, _ := newSimHost(t, card)

	cid := mmc.Cmd{Index: 2, Resp: mmc.RespR2}
	if err := h.Execute(&cid, nil); err != nil {
		t.Fatal(err)
	}
	want := [4]uint32{
		uint32(card.CID[0])<<24 | uint32(card.CID[1])<<16 | uint32(card.CID[2])<<8 | uint32(card.CID[3]),
		uint32(card.CID[4])<<24 | uint32(card.CID[5])<<16 | uint32(card.CID[6])<<8 | uint32(card.CID[7]),
		uint32(card.CID[8])<<24 | uint32(card.CID[9])<<16 | uint32(card.CID[10])<<8 | uint32(card.CID[11]),
		uint32(card.CID[12])<<24 | uint32(card.CID[13])<<16 | uint32(card.CID[14])<<8 | uint32(mmc.CRC7(card.CID[:]))<<1 | 1,
	}
	if diff := cmp.Diff(want, cid.Response); diff != "" {
		t.Fatal(diff)
	}

	ifCond := mmc.Cmd{Index: 8, Arg: 0x1aa, Resp: mmc.RespR7}
	if err := h.Execute(&ifCond, nil); err != nil {
		t.Fatal(err)
	}
	if ifCond.Response[0] != 0x1aa {
		t.Fatalf("expected echo %#x, got %#x", 0x1aa, ifCond.Response[0])
	}
}
