package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	asynchttp "github.com/lexfrei/go-asynchttp"
	"github.com/lexfrei/go-asynchttp/message"
	"github.com/lexfrei/go-asynchttp/observability"
)

type requestCmd struct {
	URL string `arg:"" help:"Target URL."`

	Method      string        `short:"X" default:"GET" enum:"GET,HEAD,POST,PUT,PATCH,DELETE,OPTIONS" help:"Request method."`
	Header      []string      `short:"H" placeholder:"NAME:VALUE" help:"Extra request header, may be repeated."`
	Data        string        `short:"d" help:"Request body. Prefix with @ to read a file."`
	ContentType string        `default:"application/json" help:"Content type of the body."`
	Include     bool          `short:"i" help:"Print the status line and response headers."`
	Timeout     time.Duration `default:"30s" help:"Give up after this long."`
	Retries     int           `default:"-1" help:"Override the configured number of retries."`
	Metrics     bool          `help:"Print Prometheus metrics to stderr after the call."`
}

func (cmd *requestCmd) Run(g *globalOptions) error {
	cfg, logger, err := g.load()
	if err != nil {
		return err
	}
	if cmd.Retries >= 0 {
		cfg.Client.MaxRetries = cmd.Retries
	}

	registry := prometheus.NewRegistry()
	opts := []asynchttp.Option{
		asynchttp.FromConfig(cfg),
		asynchttp.WithLogger(logger),
	}
	if cmd.Metrics {
		opts = append(opts, asynchttp.WithMetrics(
			observability.NewPrometheusRecorder(registry, cfg.Client.MetricsNamespace)))
	}

	client, err := asynchttp.New(opts...)
	if err != nil {
		return err
	}
	defer client.CloseIdleConnections()

	req, err := cmd.build()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, cmd.Timeout)
	defer cancel()

	resp, err := client.Do(ctx, req.WithContext(ctx))
	if err != nil {
		return errors.Wrapf(err, "%s %s", cmd.Method, cmd.URL)
	}

	if err := printResponse(os.Stdout, resp, cmd.Include); err != nil {
		return err
	}

	if cmd.Metrics {
		return printMetrics(os.Stderr, registry)
	}
	return nil
}

func (cmd *requestCmd) build() (*message.Request, error) {
	method := message.Method(cmd.Method)

	var body *message.RequestBody
	if cmd.Data != "" {
		if !method.PermitsBody() {
			return nil, errors.Newf("%s requests do not take a body, pick another method with -X", method)
		}
		data := []byte(cmd.Data)
		if path, ok := strings.CutPrefix(cmd.Data, "@"); ok {
			raw, err := os.ReadFile(path)
			if err != nil {
				return nil, errors.Wrapf(err, "read body file %s", path)
			}
			data = raw
		}
		body = message.BytesBody(data, cmd.ContentType)
	}

	req, err := message.NewRequest(method, cmd.URL, body)
	if err != nil {
		return nil, err
	}

	for _, h := range cmd.Header {
		name, value, err := parseHeader(h)
		if err != nil {
			return nil, err
		}
		req = req.WithAddedHeader(name, value)
	}

	return req, nil
}

func parseHeader(raw string) (string, string, error) {
	name, value, ok := strings.Cut(raw, ":")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return "", "", errors.Newf("invalid header %q, want NAME:VALUE", raw)
	}
	return name, strings.TrimSpace(value), nil
}

func printResponse(w io.Writer, resp *message.Response, include bool) error {
	defer resp.Close()

	if include {
		fmt.Fprintf(w, "HTTP %d\n", resp.StatusCode())
		for name, values := range resp.Headers().All() {
			for _, v := range values {
				fmt.Fprintf(w, "%s: %s\n", name, v)
			}
		}
		fmt.Fprintln(w)
	}

	for chunk, err := range resp.Chunks(32 * 1024) {
		if err != nil {
			return errors.Wrap(err, "read response body")
		}
		if _, err := w.Write(chunk); err != nil {
			return errors.Wrap(err, "write response body")
		}
	}
	return nil
}

func printMetrics(w io.Writer, registry *prometheus.Registry) error {
	families, err := registry.Gather()
	if err != nil {
		return errors.Wrap(err, "gather metrics")
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return errors.Wrap(err, "write metrics")
		}
	}
	return nil
}
