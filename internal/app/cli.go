package app

import "github.com/spf13/pflag"

// RegisterFlags registers the server flags and the storage flags on the given FlagSet
func RegisterFlags(flags *pflag.FlagSet) {
	flags.StringP("transport", "t", "", "Transport type: stdio or sse")
	flags.StringP("host", "H", "", "Host for SSE transport")
	flags.IntP("port", "p", 0, "Port for SSE transport")
	flags.StringP("auth-type", "a", "", "Authentication type: none, basic, or apikey")
	flags.StringP("auth-basic-username", "u", "", "Basic auth username")
	flags.StringP("auth-basic-password", "P", "", "Basic auth password")
	flags.StringSliceP("auth-api-keys", "k", nil, "API keys (comma-separated)")
	RegisterStorageFlags(flags)
}

// RegisterStorageFlags registers the index, source and logging flags shared by every command
func RegisterStorageFlags(flags *pflag.FlagSet) {
	flags.StringP("index-base-dir", "d", "", "Directory holding the search indexes and sweep journal")
	flags.Int("index-batch-size", 0, "Documents buffered per bulk write")
	flags.Int("index-page-size", 0, "Records fetched per page in a type sweep")
	flags.Int64("index-max-attachment-size", 0, "Largest attachment, in bytes, whose text is indexed")
	flags.Duration("index-lock-wait", 0, "How long a sweep waits for a running sweep of the same scope (0 fails fast)")
	flags.StringP("source-driver", "s", "", "Source of record: sqlite or memory")
	flags.String("source-path", "", "SQLite database path, or a YAML fixture file for the memory driver")
	flags.StringP("log-level", "l", "", "Log level: debug, info, warn or error")
	flags.String("log-file", "", "Also write JSON logs to this file")
}
