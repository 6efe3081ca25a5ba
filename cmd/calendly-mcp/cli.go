package main

import (
	"flag"
	"fmt"
	"os"
)

func init() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Calendly MCP Server v%s\n", Version)
		fmt.Fprintf(os.Stderr, "Model Context Protocol tools for the Calendly API\n\n")
		fmt.Fprintf(os.Stderr, "Usage: calendly-mcp [options]\n\n")
		fmt.Fprintf(os.Stderr, "Transport Modes:\n")
		fmt.Fprintf(os.Stderr, "  --transport <mode>          Transport mode: stdio, http (default: stdio)\n")
		fmt.Fprintf(os.Stderr, "  --listen <addr>             HTTP listen address (default: localhost:8080)\n")
		fmt.Fprintf(os.Stderr, "  --config <path>             config.yaml path (optional)\n\n")
		fmt.Fprintf(os.Stderr, "Logging:\n")
		fmt.Fprintf(os.Stderr, "  --log-format <format>       Log output format: text, json (default: text)\n")
		fmt.Fprintf(os.Stderr, "  --log-level <level>         Log level: debug, info, warn, error (default: info)\n\n")
		fmt.Fprintf(os.Stderr, "Other:\n")
		fmt.Fprintf(os.Stderr, "  --env-file <path>           Optional env file to load before startup\n")
		fmt.Fprintf(os.Stderr, "  --version, -v               Show version information\n")
		fmt.Fprintf(os.Stderr, "  --help, -h                  Show this help message\n\n")
		fmt.Fprintf(os.Stderr, "Environment:\n")
		fmt.Fprintf(os.Stderr, "  CALENDLY_API_KEY            Personal access token used when api_key is not set\n\n")
		fmt.Fprintf(os.Stderr, "HTTP Endpoints:\n")
		fmt.Fprintf(os.Stderr, "  POST /mcp                   Streamable MCP\n")
		fmt.Fprintf(os.Stderr, "  GET  /sse, POST /message    MCP over server-sent events\n")
		fmt.Fprintf(os.Stderr, "  POST /tools/{name}          Plain request/response tool call\n")
		fmt.Fprintf(os.Stderr, "  GET  /openapi.json          OpenAPI document of /tools\n")
		fmt.Fprintf(os.Stderr, "  GET  /metrics               Prometheus metrics\n\n")
		fmt.Fprintf(os.Stderr, "Examples:\n")
		fmt.Fprintf(os.Stderr, "  # Start in STDIO mode (for desktop MCP clients)\n")
		fmt.Fprintf(os.Stderr, "  CALENDLY_API_KEY=... calendly-mcp\n\n")
		fmt.Fprintf(os.Stderr, "  # Start the HTTP server with an audit log\n")
		fmt.Fprintf(os.Stderr, "  calendly-mcp --transport http --config config.yaml --env-file .env\n")
	}
}
