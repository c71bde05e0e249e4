package main

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"golang.org/x/sync/errgroup"

	"github.com/clktmr/pxammc/drivers/mmc/pxammc"
	"github.com/clktmr/pxammc/drivers/mmc/pxammc/pxasim"
	"github.com/clktmr/pxammc/mmc"
)

type Script struct {
	Card   CardSpec `toml:"card"`
	Faults Faults   `toml:"faults"`
	Steps  []Step   `toml:"step"`
}

type CardSpec struct {
	Size           int    `toml:"size"`
	Image          string `toml:"image"`
	BlockAddressed bool   `toml:"block_addressed"`
}

// Faults are applied to the controller before the step that sets them.
type Faults struct {
	ClockStuck      bool `toml:"clock_stuck"`
	NoEndCmd        bool `toml:"no_end_cmd"`
	ResponseTimeout bool `toml:"response_timeout"`
	BadCRC          bool `toml:"bad_crc"`
	NoTransferDone  bool `toml:"no_transfer_done"`
	NoProgramDone   bool `toml:"no_program_done"`
	DataErrorAt     *int `toml:"data_error_at"`
}

func (f *Faults) sim() pxasim.Faults {
	faults := pxasim.Faults{
		ClockStuck:      f.ClockStuck,
		NoEndCmd:        f.NoEndCmd,
		ResponseTimeout: f.ResponseTimeout,
		BadCRC:          f.BadCRC,
		NoTransferDone:  f.NoTransferDone,
		NoProgramDone:   f.NoProgramDone,
	}
	if f.DataErrorAt != nil {
		faults.DataError, faults.DataErrorAt = true, *f.DataErrorAt
	}
	return faults
}

type Step struct {
	Cmd      uint8   `toml:"cmd"`
	Arg      uint32  `toml:"arg"`
	Resp     string  `toml:"resp"`
	Rate     *uint32 `toml:"rate"`
	BusWidth int     `toml:"bus_width"`
	Faults   *Faults `toml:"faults"`

	Read      uint32 `toml:"read"`  // blocks
	Write     uint32 `toml:"write"` // blocks
	BlockSize uint32 `toml:"block_size"`
	Fill      byte   `toml:"fill"` // pattern for writes

	Expect string `toml:"expect"` // "", "timeout", "crc", "io"
}

var respTypes = map[string]mmc.RespType{
	"":     mmc.RespNone,
	"none": mmc.RespNone,
	"r1":   mmc.RespR1,
	"r1b":  mmc.RespR1b,
	"r2":   mmc.RespR2,
	"r3":   mmc.RespR3,
	"r6":   mmc.RespR6,
	"r7":   mmc.RespR7,
}

var expectErrs = map[string]error{
	"":        nil,
	"timeout": mmc.ErrTimeout,
	"crc":     mmc.ErrCRC,
	"io":      mmc.ErrIO,
}

var errUnexpected = errors.New("unexpected result")

func LoadScript(r io.Reader) (*Script, error) {
	var s Script
	if _, err := toml.NewDecoder(r).Decode(&s); err != nil {
		return nil, err
	}
	if s.Card.Size == 0 && s.Card.Image == "" {
		s.Card.Size = 1 << 20
	}
	for i := range s.Steps {
		step := &s.Steps[i]
		step.Resp = strings.ToLower(step.Resp)
		if _, ok := respTypes[step.Resp]; !ok {
			return nil, fmt.Errorf("step %d: unknown response type %q", i+1, step.Resp)
		}
		if _, ok := expectErrs[step.Expect]; !ok {
			return nil, fmt.Errorf("step %d: unknown expectation %q", i+1, step.Expect)
		}
		if step.Read != 0 && step.Write != 0 {
			return nil, fmt.Errorf("step %d: both read and write", i+1)
		}
		if step.BlockSize == 0 {
			step.BlockSize = 512
		}
	}
	return &s, nil
}

func (s *Script) card() (*pxasim.Card, error) {
	card := pxasim.NewCard(s.Card.Size)
	if s.Card.Image != "" {
		media, err := os.ReadFile(s.Card.Image)
		if err != nil {
			return nil, err
		}
		card.Media = media
	}
	if s.Card.BlockAddressed {
		card.OCR |= pxasim.OCRCCS
	}
	return card, nil
}

// Run executes all steps, writing a transcript to w. It stops at the first
// step whose outcome doesn't match its expectation.
func (s *Script) Run(w io.Writer, cfg pxammc.Config) error {
	card, err := s.card()
	if err != nil {
		return err
	}
	sim := pxasim.New(card)
	sim.Faults = s.Faults.sim()

	dev, err := pxammc.New(sim, cfg).Open()
	if err != nil {
		return err
	}

	for i, step := range s.Steps {
		if step.Faults != nil {
			sim.Faults = step.Faults.sim()
		}
		if step.BusWidth != 0 {
			dev.BusWidth = step.BusWidth
		}
		if step.Rate != nil {
			if err := dev.SetClock(*step.Rate); err != nil {
				return fmt.Errorf("step %d: %w", i+1, err)
			}
			fmt.Fprintf(w, "rate %d Hz, CLKRT %d\n", dev.Clock, sim.Divider())
		}

		cmd := mmc.Cmd{Index: step.Cmd, Arg: step.Arg, Resp: respTypes[step.Resp]}
		data := step.data()
		err := dev.Host.Execute(&cmd, data)

		fmt.Fprintf(w, "%v: ", &cmd)
		if err != nil {
			fmt.Fprintln(w, err)
		} else {
			fmt.Fprintf(w, "%08x\n", cmd.Response)
			if data != nil && !data.Write() {
				io.WriteString(w, hex.Dump(data.Buf[:min(len(data.Buf), 64)]))
			}
		}

		want := expectErrs[step.Expect]
		if (want == nil && err != nil) || (want != nil && !errors.Is(err, want)) {
			return fmt.Errorf("step %d: %w: expected %v, got %v", i+1, errUnexpected, want, err)
		}
	}
	return nil
}

func (step *Step) data() *mmc.Data {
	switch {
	case step.Read != 0:
		return &mmc.Data{
			Flags:     mmc.DataRead,
			Blocks:    step.Read,
			BlockSize: step.BlockSize,
			Buf:       make([]byte, step.Read*step.BlockSize),
		}
	case step.Write != 0:
		return &mmc.Data{
			Flags:     mmc.DataWrite,
			Blocks:    step.Write,
			BlockSize: step.BlockSize,
			Buf:       bytes.Repeat([]byte{step.Fill}, int(step.Write*step.BlockSize)),
		}
	}
	return nil
}

type RunCmd struct {
	Scripts []string `arg:"" help:"Script files." type:"existingfile"`
}

func (c *RunCmd) Run(cli *CLI) error {
	cfg, err := cli.hostConfig()
	if err != nil {
		return err
	}

	out := make([]bytes.Buffer, len(c.Scripts))
	var g errgroup.Group
	for i, name := range c.Scripts {
		g.Go(func() error {
			f, err := os.Open(name)
			if err != nil {
				return err
			}
			defer f.Close()

			s, err := LoadScript(f)
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			if err := s.Run(&out[i], cfg); err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			return nil
		})
	}
	err = g.Wait()

	for i, name := range c.Scripts {
		fmt.Printf("== %s\n", name)
		os.Stdout.Write(out[i].Bytes())
	}
	return err
}
