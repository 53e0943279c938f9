// Command rendertree reads an EXPLAIN (ANALYZE, FORMAT JSON) document
// from stdin and prints the transformed stage sequence as a table.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"text/template"

	"github.com/goccy/go-yaml"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/pgpipeviz/pgpipeviz/internal/lox"
	"github.com/pgpipeviz/pgpipeviz/pipeline"
	"github.com/pgpipeviz/pgpipeviz/queryplan"
	"github.com/pgpipeviz/pgpipeviz/sqlparse"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

type tableRenderDef struct {
	Columns []columnRenderDef
}

func (tdef tableRenderDef) ColumnNames() []string {
	return lox.MapWithoutIndex(tdef.Columns, func(c columnRenderDef) string { return c.Name })
}

func (tdef tableRenderDef) ColumnAlignments() []tw.Align {
	return lox.MapWithoutIndex(tdef.Columns, func(c columnRenderDef) tw.Align { return c.Alignment })
}

func (tdef tableRenderDef) ColumnMapFunc(row stageRow) ([]string, error) {
	var columns []string
	for _, c := range tdef.Columns {
		v, err := c.MapFunc(row)
		if err != nil {
			return nil, err
		}
		columns = append(columns, v)
	}
	return columns, nil
}

// stageRow is what column templates execute against: the stage plus
// its position in the final sequence.
type stageRow struct {
	ID    int
	Stage *pipeline.Stage
}

func (r stageRow) Label() string     { return r.Stage.Label() }
func (r stageRow) Details() string   { return r.Stage.Details() }
func (r stageRow) TotalTime() string { return r.Stage.TotalTime() }

func (r stageRow) Attr(name string) string {
	return r.Stage.Attr(name)
}

func parseAlignment(s string) (tw.Align, error) {
	switch strings.TrimPrefix(s, "ALIGN_") {
	case "RIGHT":
		return tw.AlignRight, nil
	case "LEFT":
		return tw.AlignLeft, nil
	case "CENTER":
		return tw.AlignCenter, nil
	case "DEFAULT":
		return tw.AlignDefault, nil
	case "NONE":
		return tw.AlignNone, nil
	default:
		return tw.AlignNone, fmt.Errorf("unknown Alignment: %s", s)
	}
}

type plainColumnRenderDef struct {
	Template  string   `json:"template"`
	Name      string   `json:"name"`
	Alignment tw.Align `json:"alignment"`
}

type columnRenderDef struct {
	MapFunc   func(row stageRow) (string, error)
	Name      string
	Alignment tw.Align
}

func templateMapFunc(tmplName, tmplText string) (func(row stageRow) (string, error), error) {
	tmpl, err := template.New(tmplName).Parse(tmplText)
	if err != nil {
		return nil, err
	}

	return func(row stageRow) (string, error) {
		var sb strings.Builder
		if err := tmpl.Execute(&sb, row); err != nil {
			return "", err
		}
		return sb.String(), nil
	}, nil
}

var defaultRenderDef = tableRenderDef{
	Columns: []columnRenderDef{
		{
			Name:      "ID",
			Alignment: tw.AlignRight,
			MapFunc: func(row stageRow) (string, error) {
				return fmt.Sprint(row.ID), nil
			},
		},
		{
			Name:      "Stage",
			Alignment: tw.AlignLeft,
			MapFunc: func(row stageRow) (string, error) {
				return row.Label(), nil
			},
		},
		{
			Name:      "Details",
			Alignment: tw.AlignLeft,
			MapFunc: func(row stageRow) (string, error) {
				return row.Details(), nil
			},
		},
		{
			Name:      "Total Time",
			Alignment: tw.AlignRight,
			MapFunc: func(row stageRow) (string, error) {
				return row.TotalTime(), nil
			},
		},
	},
}

type stringList []string

func (s *stringList) String() string {
	return fmt.Sprint([]string(*s))
}

func (s *stringList) Set(s2 string) error {
	*s = append(*s, strings.Split(s2, ",")...)
	return nil
}

const jsonSnippetLen = 140

func run() error {
	sql := flag.String("sql", "", "query text the plan was produced from (required)")
	customFile := flag.String("custom-file", "", "yaml file of column definitions")
	var custom stringList
	flag.Var(&custom, "custom", `column definition "<name>:<template>[:<alignment>]"`)
	flag.Parse()

	if *sql == "" {
		flag.Usage()
		os.Exit(1)
	}

	query, err := sqlparse.Parse(*sql)
	if err != nil {
		return err
	}

	b, err := io.ReadAll(os.Stdin)
	if err != nil {
		return err
	}

	result, err := queryplan.Extract(b)
	if err != nil {
		var collapsedStr string
		if len(b) > jsonSnippetLen {
			collapsedStr = "(collapsed)"
		}
		return fmt.Errorf("invalid input:\nerror: %w\ninput: %.*s%s", err, jsonSnippetLen, strings.TrimSpace(string(b)), collapsedStr)
	}

	transformed, err := pipeline.Transform(result.Plan, query)
	if err != nil {
		return err
	}

	var renderDef tableRenderDef
	switch {
	case len(custom) > 0:
		renderDef, err = customListToTableRenderDef(custom)
	case *customFile != "":
		var defsBytes []byte
		defsBytes, err = os.ReadFile(*customFile)
		if err != nil {
			return err
		}
		renderDef, err = customFileToTableRenderDef(defsBytes)
	default:
		renderDef = defaultRenderDef
	}
	if err != nil {
		return err
	}

	s, err := printResult(renderDef, transformed.Stages)
	if err != nil {
		return err
	}

	_, err = os.Stdout.WriteString(s)
	return err
}

func unmarshalAlign(t *tw.Align, bytes []byte) error {
	var s string
	if err := yaml.Unmarshal(bytes, &s); err != nil {
		return err
	}

	align, err := parseAlignment(s)
	if err != nil {
		return err
	}

	*t = align
	return nil
}

func customFileToTableRenderDef(b []byte) (tableRenderDef, error) {
	decodeOpts := []yaml.DecodeOption{yaml.CustomUnmarshaler(unmarshalAlign)}

	var defs []plainColumnRenderDef
	if err := yaml.UnmarshalWithOptions(b, &defs, decodeOpts...); err != nil {
		return tableRenderDef{}, err
	}

	var tdef tableRenderDef
	for _, def := range defs {
		mapFunc, err := templateMapFunc(def.Name, def.Template)
		if err != nil {
			return tableRenderDef{}, err
		}
		tdef.Columns = append(tdef.Columns, columnRenderDef{
			MapFunc:   mapFunc,
			Name:      def.Name,
			Alignment: def.Alignment,
		})
	}
	return tdef, nil
}

func customListToTableRenderDef(custom []string) (tableRenderDef, error) {
	var columns []columnRenderDef
	for _, s := range custom {
		split := strings.SplitN(s, ":", 3)

		var align tw.Align
		switch len(split) {
		case 2:
			align = tw.AlignNone
		case 3:
			var err error
			align, err = parseAlignment(split[2])
			if err != nil {
				return tableRenderDef{}, fmt.Errorf("failed to parseAlignment(): %w", err)
			}
		default:
			return tableRenderDef{}, fmt.Errorf(`invalid format: must be "<name>:<template>[:<alignment>]", but: %v`, s)
		}

		name, templateStr := split[0], split[1]
		mapFunc, err := templateMapFunc(name, templateStr)
		if err != nil {
			return tableRenderDef{}, err
		}

		columns = append(columns, columnRenderDef{
			MapFunc:   mapFunc,
			Name:      name,
			Alignment: align,
		})
	}
	return tableRenderDef{Columns: columns}, nil
}

func printResult(renderDef tableRenderDef, stages pipeline.StageSequence) (string, error) {
	var b strings.Builder
	table := tablewriter.NewTable(&b,
		tablewriter.WithRenderer(
			renderer.NewBlueprint(tw.Rendition{Symbols: tw.NewSymbols(tw.StyleASCII)})),
		tablewriter.WithHeaderAlignment(tw.AlignLeft),
		tablewriter.WithTrimSpace(tw.Off),
	)

	// Some config can't be correctly configured by tablewriter.Option.
	table.Configure(func(config *tablewriter.Config) {
		config.Row.ColumnAligns = renderDef.ColumnAlignments()
		config.Row.Formatting.AutoWrap = tw.WrapNone
		config.Header.Formatting.AutoFormat = tw.Off
	})

	table.Header(renderDef.ColumnNames())

	for i, stage := range stages {
		values, err := renderDef.ColumnMapFunc(stageRow{ID: i, Stage: stage})
		if err != nil {
			return "", err
		}
		if err = table.Append(values); err != nil {
			return "", err
		}
	}

	if len(stages) > 0 {
		if err := table.Render(); err != nil {
			return "", err
		}
	}

	return b.String(), nil
}
