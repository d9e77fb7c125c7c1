package config

import (
	"flag"
	"os"
	"time"

	"github.com/mpetrovs/tabchat/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags:
//
//	-p string   backend project id
//	-k string   auth API key
//	-d string   local database file
//	-i int      online check interval in seconds
//
// The function filters os.Args to only include the flags it knows about,
// using flagx.FilterArgs, to avoid interference with other components.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-p", "-k", "-d", "-i"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ProjectID, "p", cfg.ProjectID, "backend project id")
	fs.StringVar(&cfg.AuthAPIKey, "k", cfg.AuthAPIKey, "auth API key")
	fs.StringVar(&cfg.DatabaseFile, "d", cfg.DatabaseFile, "local database file")
	onlineCheckInterval := fs.Int("i", int(cfg.OnlineCheckInterval.Seconds()), "online check interval (in seconds)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.OnlineCheckInterval = time.Duration(*onlineCheckInterval) * time.Second
}
