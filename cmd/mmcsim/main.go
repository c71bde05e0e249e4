// mmcsim runs the PXA MMC driver against a simulated controller and SD card.
//
// Scripts are TOML files listing commands, see testdata/ for examples. Each
// script gets its own controller and card; several scripts run concurrently.
package main

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/alecthomas/kong"
	"gopkg.in/Sirupsen/logrus.v0"

	"github.com/clktmr/pxammc/drivers/mmc/pxammc"
)

func must[T any](ret T, err error) T {
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	return ret
}

type CLI struct {
	LogLevel string `name:"log-level" help:"Driver log level." default:"warning" enum:"debug,info,warning,error"`
	CPU      string `name:"cpu" help:"Controller the configuration starts from." default:"pxa27x" enum:"pxa27x,pxa3xx"`
	Config   string `name:"config" help:"Host configuration (TOML) applied on top of --cpu." type:"existingfile" placeholder:"FILE"`

	Run     RunCmd     `cmd:"" help:"Execute command scripts."`
	MkImage MkImageCmd `cmd:"" name:"mkimage" help:"Create a FAT32 card image."`
}

func (cli *CLI) logger() *logrus.Logger {
	logger := logrus.New()
	logger.Out = os.Stderr
	logger.Level = must(logrus.ParseLevel(cli.LogLevel))
	return logger
}

func (cli *CLI) hostConfig() (pxammc.Config, error) {
	cfg := pxammc.DefaultConfig()
	if cli.CPU == "pxa3xx" {
		cfg = pxammc.PXA3xxConfig()
	}
	if cli.Config != "" {
		if _, err := toml.DecodeFile(cli.Config, &cfg); err != nil {
			return cfg, fmt.Errorf("host config: %w", err)
		}
	}
	cfg.Logger = cli.logger()
	return cfg, nil
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("mmcsim"),
		kong.Description("Run the PXA MMC host driver against a simulated SD card."),
		kong.UsageOnError(),
	)
	ctx.FatalIfErrorf(ctx.Run(&cli))
}
