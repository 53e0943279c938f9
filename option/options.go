package option

type Options struct {
	Positional struct {
		Input string
	} `positional-args:"yes"`
	TypeFlag         string `long:"type" description:"output type" default:"pipe" choice:"pipe" choice:"tree" choice:"dot" choice:"svg" choice:"png" choice:"mermaid"`
	Filename         string `long:"output"`
	SQL              string `long:"sql" description:"query text the plan was produced from"`
	SQLFile          string `long:"sql-file" description:"file containing the query text"`
	DSN              string `long:"dsn" description:"fetch the plan live via EXPLAIN ANALYZE instead of reading it from input"`
	StatementTimeout int    `long:"statement-timeout" default:"5000" description:"server-side timeout in milliseconds for the EXPLAIN execution"`
	PipeToken        string `long:"pipe-token" default:"▸" description:"token prefixed to each pipe-syntax block"`
	ShowQuery        bool   `long:"show-query"`
	ShowTiming       bool   `long:"show-timing" description:"append statement-level planning/execution times"`
}
