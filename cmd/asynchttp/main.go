// Command asynchttp sends a single request through an asynchttp client and
// prints the response.
package main

import (
	"os"

	"github.com/alecthomas/kong"
	"github.com/rs/zerolog"

	"github.com/lexfrei/go-asynchttp/config"
	"github.com/lexfrei/go-asynchttp/observability"
)

var version = "dev"

type globalOptions struct {
	Config   string `help:"YAML config file." type:"existingfile" placeholder:"PATH"`
	EnvFile  string `help:"Dotenv file loaded before the environment is read." type:"existingfile" placeholder:"PATH"`
	LogLevel string `help:"Override the configured log level (debug, info, warn, error)."`
}

// load returns the configuration and a logger built from it.
func (g *globalOptions) load() (config.Config, observability.Logger, error) {
	var opts []config.LoaderOption
	if g.Config != "" {
		opts = append(opts, config.WithConfigFile(g.Config))
	}
	if g.EnvFile != "" {
		opts = append(opts, config.WithEnvFile(g.EnvFile))
	}

	cfg, err := config.Load(opts...)
	if err != nil {
		return config.Config{}, nil, err
	}
	if g.LogLevel != "" {
		cfg.Log.Level = g.LogLevel
	}
	if cfg.Log.Service == "" {
		cfg.Log.Service = "asynchttp"
	}

	logger, err := observability.NewLogger(cfg.Log, os.Stderr)
	if err != nil {
		return config.Config{}, nil, err
	}

	return cfg, logger, nil
}

type cli struct {
	globalOptions `embed:""`

	Request requestCmd       `cmd:"" default:"withargs" help:"Send a request and print the response."`
	Version kong.VersionFlag `help:"Print the version and exit."`
}

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	var c cli
	ctx := kong.Parse(&c,
		kong.Name("asynchttp"),
		kong.Description("Send HTTP requests through an interceptor chain."),
		kong.UsageOnError(),
		kong.Vars{"version": version},
	)

	err := ctx.Run(&c.globalOptions)
	ctx.FatalIfErrorf(err)
}
