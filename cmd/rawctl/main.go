package main

import (
	"fmt"
	"os"

	"rawsite/internal/cli"
	"rawsite/internal/config"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
)

var version = "dev"

func main() {
	zlog.Logger = zlog.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.WarnLevel)

	if err := cli.Run(version, config.Load()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
