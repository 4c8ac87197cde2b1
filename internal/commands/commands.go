package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"runtime"
	"runtime/pprof"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"
	"go.uber.org/automaxprocs/maxprocs"
	"go.uber.org/zap"

	"github.com/drewfead/showtimes/internal/boxoffice"
	"github.com/drewfead/showtimes/internal/config"
	"github.com/drewfead/showtimes/internal/core"
	"github.com/drewfead/showtimes/internal/discovery"
)

var (
	profileFlag = &cli.BoolFlag{
		Name:  "profile",
		Usage: "Enable pprof profiling for this run",
		Value: false,
	}

	verbosityFlag = &cli.StringFlag{
		Name:  "verbosity",
		Usage: "Set the verbosity of the logger",
		Value: "info",
	}

	outputFormatFlag = &cli.StringFlag{
		Name:    "output",
		Aliases: []string{"o"},
		Usage:   "Set the output format (json or text)",
		Value:   "json",
	}

	envFileFlag = &cli.StringFlag{
		Name:  "env-file",
		Usage: "Read theater configuration from this dotenv file (default .env, optional)",
	}

	strictProbingFlag = &cli.BoolFlag{
		Name:  "strict-probing",
		Usage: "Abort the catalog search on the first endpoint that fails to respond",
		Value: false,
	}
)

var commonFlags = []cli.Flag{
	verbosityFlag,
	profileFlag,
	outputFormatFlag,
	envFileFlag,
}

func setup(ctx *cli.Context) []func() {
	zapCfg := zap.NewDevelopmentConfig()
	level, err := zap.ParseAtomicLevel(ctx.String(verbosityFlag.Name))
	if err != nil {
		log.Fatalf("failed to parse log level: %v", err)
	}
	zapCfg.Level = level
	logger, err := zapCfg.Build()
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	zap.ReplaceGlobals(logger.With(zap.String("run", uuid.NewString())))
	maxprocs.Set(maxprocs.Logger(func(format string, args ...interface{}) {
		zap.L().Debug(fmt.Sprintf(format, args...))
	}))

	out := []func(){
		func() { _ = zap.L().Sync() },
	}

	if ctx.Bool(profileFlag.Name) {
		cpuProfile, err := os.Create("/tmp/cpu_profile.prof")
		if err != nil {
			log.Fatal(err)
		}

		if err := pprof.StartCPUProfile(cpuProfile); err != nil {
			log.Fatal(err)
		}

		out = append(out, func() {
			pprof.StopCPUProfile()
		})

		memProfile, err := os.Create("/tmp/memory_profile.prof")
		if err != nil {
			log.Fatal(err)
		}

		out = append(out, func() {
			defer memProfile.Close()
			runtime.GC()
			if err := pprof.WriteHeapProfile(memProfile); err != nil {
				zap.L().Error("Failed to write heap profile", zap.Error(err))
			}
		})
	}

	return out
}

func cleanup(ctx *cli.Context, steps ...func()) {
	// Sync is registered first, so run in reverse.
	for i := len(steps) - 1; i >= 0; i-- {
		steps[i]()
	}
}

func scraper(c *cli.Context) (*boxoffice.Scraper, error) {
	cfg, err := config.Load(c.String(envFileFlag.Name))
	if err != nil {
		return nil, err
	}

	policy := boxoffice.SkipFailedProbes
	if c.Bool(strictProbingFlag.Name) {
		policy = boxoffice.FailOnProbeError
	}

	return &boxoffice.Scraper{
		Theater:    cfg.Theater,
		Discoverer: &discovery.Browser{ChromePath: cfg.ChromePath},
		Client:     &boxoffice.Client{ProbePolicy: policy},
	}, nil
}

func encodeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

func unsupportedFormat(c *cli.Context) error {
	return fmt.Errorf("unsupported output format %s", c.String(outputFormatFlag.Name))
}

func writeSchedule(c *cli.Context, w io.Writer, result *core.Result) error {
	switch c.String(outputFormatFlag.Name) {
	case "json":
		return encodeJSON(w, result.Schedule)
	case "text":
		for _, showing := range result.Schedule {
			if _, err := fmt.Fprintln(w, string(showing)); err != nil {
				return err
			}
		}
		return nil
	default:
		return unsupportedFormat(c)
	}
}

func writeMovies(c *cli.Context, w io.Writer, movies []core.MovieNode) error {
	switch c.String(outputFormatFlag.Name) {
	case "json":
		return encodeJSON(w, movies)
	case "text":
		for _, movie := range movies {
			if _, err := fmt.Fprintln(w, movie.Title); err != nil {
				return err
			}
		}
		return nil
	default:
		return unsupportedFormat(c)
	}
}

func writeEndpoints(c *cli.Context, w io.Writer, endpoints []string) error {
	switch c.String(outputFormatFlag.Name) {
	case "json":
		return encodeJSON(w, endpoints)
	case "text":
		for _, e := range endpoints {
			if _, err := fmt.Fprintln(w, e); err != nil {
				return err
			}
		}
		return nil
	default:
		return unsupportedFormat(c)
	}
}

var Scrapers = []*cli.Command{
	{
		Name:     "showtimes",
		Usage:    "Fetch the live showtime schedule for the configured theater",
		Category: "theatrical",
		Flags:    append(commonFlags, strictProbingFlag),
		Action: func(c *cli.Context) error {
			cleanupSteps := setup(c)
			defer cleanup(c, cleanupSteps...)

			s, err := scraper(c)
			if err != nil {
				return err
			}

			result, err := s.Showtimes(c.Context)
			if err != nil {
				return err
			}

			return writeSchedule(c, c.App.Writer, result)
		},
	},
	{
		Name:     "movies",
		Usage:    "List the movies in the configured theater's catalog",
		Category: "theatrical",
		Flags:    append(commonFlags, strictProbingFlag),
		Action: func(c *cli.Context) error {
			cleanupSteps := setup(c)
			defer cleanup(c, cleanupSteps...)

			s, err := scraper(c)
			if err != nil {
				return err
			}

			match, err := s.Movies(c.Context)
			if err != nil {
				return err
			}

			return writeMovies(c, c.App.Writer, match.Movies())
		},
	},
	{
		Name:     "endpoints",
		Usage:    "List the JSON requests the configured showtimes page makes while loading",
		Category: "discovery",
		Flags:    commonFlags,
		Action: func(c *cli.Context) error {
			cleanupSteps := setup(c)
			defer cleanup(c, cleanupSteps...)

			s, err := scraper(c)
			if err != nil {
				return err
			}

			endpoints := s.Discoverer.Discover(c.Context, s.Theater.ShowtimesURL)
			return writeEndpoints(c, c.App.Writer, endpoints)
		},
	},
}
