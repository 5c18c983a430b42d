package harvest

import (
	"context"
	"io"
	"log/slog"

	"github.com/hazyhaar/vidharvest/harvest/internal/sink"
	"github.com/hazyhaar/vidharvest/harvest/outcome"
)

// Sink is the output interface for run outcomes.
type Sink = sink.Sink

// Output file names written in the configured output directory.
const (
	TextFileName = sink.TextName
	DocxFileName = sink.DocxName
)

// NewStdoutSink creates a stdout JSON-lines sink.
func NewStdoutSink(w io.Writer) Sink {
	return sink.NewStdout(w)
}

// NewWebhookSink creates a webhook POST sink with retry.
func NewWebhookSink(url string, logger *slog.Logger) Sink {
	return sink.NewWebhook(url, sink.WithWebhookLogger(logger))
}

// NewTextFileSink writes youtube_links.txt in dir after each run.
func NewTextFileSink(dir string) Sink {
	return sink.NewTextFile(dir)
}

// NewDocxSink writes youtube_links.docx in dir after each run.
func NewDocxSink(dir string) Sink {
	return sink.NewDocxFile(dir)
}

// NewCallbackSink creates an in-process sink calling fn for each run.
func NewCallbackSink(fn func(ctx context.Context, run outcome.RunOutcome) error) Sink {
	return sink.NewCallback(fn)
}

// SinksFromConfig builds the output files and the extra sinks listed in cfg.
// stdout receives the JSON lines of "stdout" sinks; nil means os.Stdout.
func SinksFromConfig(cfg *Config, stdout io.Writer, logger *slog.Logger) []Sink {
	if logger == nil {
		logger = slog.Default()
	}
	var out []Sink
	if cfg.Output.Text {
		out = append(out, sink.NewTextFile(cfg.Output.Dir))
	}
	if cfg.Output.Docx {
		out = append(out, sink.NewDocxFile(cfg.Output.Dir))
	}
	for _, sc := range cfg.Sinks {
		switch sc.Type {
		case "stdout":
			out = append(out, sink.NewStdout(stdout))
		case "webhook":
			out = append(out, sink.NewWebhook(sc.URL,
				sink.WithWebhookRetries(sc.Retries),
				sink.WithWebhookTimeout(sc.Timeout),
				sink.WithWebhookLogger(logger),
			))
		}
	}
	return out
}
