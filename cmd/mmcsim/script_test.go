package main

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/Sirupsen/logrus.v0"

	"github.com/clktmr/pxammc/drivers/mmc/pxammc"
)

func testConfig() pxammc.Config {
	cfg := pxammc.DefaultConfig()
	cfg.Logger = logrus.New()
	cfg.Logger.Out = io.Discard
	return cfg
}

func TestScripts(t *testing.T) {
	names, err := filepath.Glob(filepath.Join("testdata", "*.toml"))
	if err != nil || len(names) == 0 {
		t.Fatal("missing testdata:", err)
	}
	for _, name := range names {
		t.Run(filepath.Base(name), func(t *testing.T) {
			f, err := os.Open(name)
			if err != nil {
				t.Fatal(err)
			}
			defer f.Close()

			s, err := LoadScript(f)
			if err != nil {
				t.Fatal(err)
			}
			var out bytes.Buffer
			if err := s.Run(&out, testConfig()); err != nil {
				t.Log(out.String())
				t.Fatal(err)
			}
		})
	}
}

func TestReadBack(t *testing.T) {
	f, err := os.Open(filepath.Join("testdata", "readwrite.toml"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	s, err := LoadScript(f)
	if err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	if err := s.Run(&out, testConfig()); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "5a 5a 5a 5a") {
		t.Fatalf("written data not read back:\n%s", out.String())
	}
	if !strings.Contains(out.String(), "rate 400000 Hz, CLKRT 5") {
		t.Fatalf("identification rate missing:\n%s", out.String())
	}
}

func TestLoadScriptErrors(t *testing.T) {
	tests := map[string]string{
		"UnknownResponse": "[[step]]\ncmd = 1\nresp = \"R9\"\n",
		"UnknownExpect":   "[[step]]\ncmd = 1\nexpect = \"maybe\"\n",
		"ReadAndWrite":    "[[step]]\ncmd = 1\nread = 1\nwrite = 1\n",
		"Syntax":          "[[step]\n",
	}
	for name, src := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := LoadScript(strings.NewReader(src)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestUnexpectedOutcome(t *testing.T) {
	s, err := LoadScript(strings.NewReader("[[step]]\ncmd = 60\nresp = \"R1\"\n"))
	if err != nil {
		t.Fatal(err)
	}
	err = s.Run(io.Discard, testConfig())
	if !errors.Is(err, errUnexpected) {
		t.Fatalf("expected %v, got %v", errUnexpected, err)
	}
}

func TestHostConfig(t *testing.T) {
	cli := CLI{LogLevel: "error", CPU: "pxa3xx", Config: filepath.Join("testdata", "config", "pxa25x.toml")}
	cfg, err := cli.hostConfig()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Name != "PXA25x MMC" || cfg.FMax != 20_000_000 || cfg.Caps != 0 || !cfg.StrictCRC {
		t.Fatalf("config not applied: %+v", cfg)
	}
	if cfg.FastRate != 0 {
		t.Fatal("fast rate not disabled")
	}
	if cfg.FastDivider != pxammc.PXA3xxConfig().FastDivider {
		t.Fatal("unset key overwrote default")
	}
	if cfg.Logger.Level != logrus.ErrorLevel {
		t.Fatalf("expected level %v, got %v", logrus.ErrorLevel, cfg.Logger.Level)
	}
}
