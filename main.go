package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/goccy/go-graphviz"
	"github.com/jessevdk/go-flags"

	"github.com/pgpipeviz/pgpipeviz/option"
	"github.com/pgpipeviz/pgpipeviz/pgexec"
	"github.com/pgpipeviz/pgpipeviz/pipeline"
	"github.com/pgpipeviz/pgpipeviz/plantree"
	"github.com/pgpipeviz/pgpipeviz/queryplan"
	"github.com/pgpipeviz/pgpipeviz/sqlparse"
	"github.com/pgpipeviz/pgpipeviz/visualize"
)

func main() {
	if err := run(context.Background()); err != nil {
		log.Fatalln(err)
	}
}

func run(ctx context.Context) error {
	var opts option.Options
	p := flags.NewParser(&opts, flags.Default)
	args, err := p.Parse()
	if err != nil {
		return err
	}

	if len(args) > 0 {
		p.WriteHelp(os.Stderr)
		os.Exit(1)
	}

	rawSQL, err := loadSQL(opts)
	if err != nil {
		return err
	}

	query, err := sqlparse.Parse(rawSQL)
	if err != nil {
		return err
	}

	planBytes, err := loadPlan(ctx, opts, p, rawSQL)
	if err != nil {
		return err
	}

	result, err := queryplan.Extract(planBytes)
	if err != nil {
		return err
	}

	var writer io.WriteCloser
	if opts.Filename == "" {
		writer = os.Stdout
	} else if file, err := os.Create(opts.Filename); err != nil {
		return err
	} else {
		writer = file
	}
	defer func() { _ = writer.Close() }()

	err = produceOutput(ctx, writer, result, query, opts)
	if err != nil && opts.Filename != "" {
		if innerErr := os.Remove(opts.Filename); innerErr != nil {
			return errors.Join(err, innerErr)
		}
	}
	return err
}

func produceOutput(ctx context.Context, writer io.Writer, result *queryplan.ExplainResult, query *sqlparse.Query, opts option.Options) error {
	if opts.TypeFlag == "tree" {
		text, err := plantree.Render(result.Plan)
		if err != nil {
			return err
		}
		_, err = io.WriteString(writer, text)
		return err
	}

	renderer := &pipeline.Renderer{PipeToken: opts.PipeToken}
	transformed, err := pipeline.TransformWithRenderer(result.Plan, query, renderer)
	if err != nil {
		return err
	}

	switch opts.TypeFlag {
	case "pipe":
		if _, err := fmt.Fprintln(writer, transformed.Text); err != nil {
			return err
		}
		if opts.ShowTiming {
			if s := result.Stats.String(); s != "" {
				if _, err := fmt.Fprintln(writer, s); err != nil {
					return err
				}
			}
		}
		return nil
	case "mermaid":
		return visualize.RenderMermaid(transformed.Stages, writer)
	case "dot":
		return visualize.RenderImage(ctx, transformed.Stages, query.Raw(), graphviz.XDOT, writer, opts)
	case "svg":
		return visualize.RenderImage(ctx, transformed.Stages, query.Raw(), graphviz.SVG, writer, opts)
	case "png":
		return visualize.RenderImage(ctx, transformed.Stages, query.Raw(), graphviz.PNG, writer, opts)
	default:
		return fmt.Errorf("unknown output type: %s", opts.TypeFlag)
	}
}

func loadSQL(opts option.Options) (string, error) {
	switch {
	case opts.SQL != "" && opts.SQLFile != "":
		return "", errors.New("--sql and --sql-file are mutually exclusive")
	case opts.SQL != "":
		return opts.SQL, nil
	case opts.SQLFile != "":
		b, err := os.ReadFile(opts.SQLFile)
		if err != nil {
			return "", err
		}
		return string(b), nil
	default:
		return "", errors.New("query text is required: pass --sql or --sql-file")
	}
}

func loadPlan(ctx context.Context, opts option.Options, p *flags.Parser, rawSQL string) ([]byte, error) {
	if opts.DSN != "" {
		client, err := pgexec.Connect(ctx, pgexec.Config{
			DSN:              opts.DSN,
			StatementTimeout: time.Duration(opts.StatementTimeout) * time.Millisecond,
		})
		if err != nil {
			return nil, err
		}
		defer func() { _ = client.Close(ctx) }()
		return client.Explain(ctx, rawSQL)
	}

	var input io.ReadCloser
	if opts.Positional.Input != "" {
		file, err := os.Open(opts.Positional.Input)
		if err != nil {
			return nil, err
		}
		input = file
	} else {
		stat, _ := os.Stdin.Stat()
		if (stat.Mode() & os.ModeCharDevice) != 0 {
			p.WriteHelp(os.Stderr)
			os.Exit(1)
		}
		input = os.Stdin
	}
	defer func() {
		_ = input.Close()
	}()

	return io.ReadAll(input)
}
