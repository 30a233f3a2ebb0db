package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

// Populated by ldflags
var (
	version            string
	buildUnixTimestamp string
	commitHash         string
)

func parseFlags(args []string) (Flags, bool, error) {
	var flags Flags

	fset := flag.NewFlagSet("grove", flag.ContinueOnError)
	versionFlag := fset.Bool("version", false, "Print version")
	fset.StringVar(&flags.ConfigPath, "config", "", "Path to config file (default "+DefaultConfigPath+")")
	fset.StringVar(&flags.InputPath, "input", "", "Puzzle input to decrypt, one number per line")
	fset.BoolVar(&flags.Serve, "serve", false, "Start the HTTP server")
	fset.StringVar(&flags.Host, "host", "", "Listen host, overrides HOST")
	fset.StringVar(&flags.Port, "port", "", "Listen port, overrides PORT")
	fset.BoolVar(&flags.Verbose, "v", false, "Debug logging")

	if err := fset.Parse(args); err != nil {
		return flags, false, err
	}
	return flags, *versionFlag, nil
}

// Solve prints the single mix and full decryption answers for the input.
func Solve(ctx context.Context, w io.Writer, fsys afero.Fs, config *Config, solver *Solver) error {
	path := config.Flags().InputPath
	values, err := ReadValues(fsys, path)
	if err != nil {
		return fmt.Errorf("reading %q: %w", path, err)
	}

	part1, err := solver.Solve(ctx, values, config.MixOptions())
	if err != nil {
		return fmt.Errorf("part 1: %w", err)
	}
	fmt.Fprintf(w, "Part1: %d\n", part1.Sum)

	part2, err := solver.Solve(ctx, values, config.DecryptOptions())
	if err != nil {
		return fmt.Errorf("part 2: %w", err)
	}
	fmt.Fprintf(w, "Part2: %d\n", part2.Sum)

	return nil
}

func main() {
	flags, showVersion, err := parseFlags(os.Args[1:])
	if err != nil {
		os.Exit(2)
	}

	if showVersion {
		ts, _ := strconv.ParseInt(buildUnixTimestamp, 10, 64)
		fmt.Println("Grove version:", version)
		fmt.Println("Built on:", time.Unix(ts, 0))
		fmt.Println("Commit hash:", commitHash)
		return
	}

	InitializeLogger(flags.Verbose)

	fsys := afero.NewOsFs()
	config, err := NewConfig(fsys, flags, os.Getenv)
	if err != nil {
		log.Fatal().Err(err).Msg("Config initialization failed")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	solver := NewSolver(config.HistorySize())

	if flags.InputPath != "" {
		if err := Solve(ctx, os.Stdout, fsys, config, solver); err != nil {
			log.Fatal().Err(err).Msg("Solve failed")
		}
	}

	if !flags.Serve {
		if flags.InputPath == "" {
			log.Warn().Msg("Nothing to do, pass -input and/or -serve")
		}
		return
	}

	log.Info().
		Str("version", version).
		Str("commit_hash", commitHash).
		Msg("Initializing Grove")

	if err := StartServer(ctx, config, solver); err != nil {
		log.Err(err).Msg("Server closed with error")
	}
}
