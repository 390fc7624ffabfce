package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli"
)

const version = "0.3.0"

func Execute(args []string) error {
	app := cli.App{
		Name:      "recuerdito",
		HelpName:  "recuerdito",
		Usage:     "reminders with durable, self-healing notifications",
		Version:   version,
		UsageText: "recuerdito [--config FILE] <command> [arguments...]",
		Flags: []cli.Flag{
			cli.StringFlag{
				Name:   "config, c",
				Usage:  "YAML config file",
				EnvVar: "RECUERDITO_CONFIG",
			},
		},
		Commands: []cli.Command{
			{
				Name:   "serve",
				Usage:  "run the HTTP API, the job worker and the periodic reconcile",
				Action: serve,
			},
			{
				Name:   "migrate",
				Usage:  "create or update the database schema",
				Action: migrate,
			},
			{
				Name:   "reconcile",
				Usage:  "re-derive the jobs of every active reminder",
				Action: reconcile,
				Flags: []cli.Flag{
					cli.BoolFlag{Name: "async", Usage: "enqueue a debounced reconcile for the worker instead"},
				},
			},
			{
				Name:    "list",
				Aliases: []string{"l"},
				Usage:   "show reminders by priority",
				Action:  list,
				Flags: []cli.Flag{
					cli.Uint64Flag{Name: "user, u", Usage: "owner id (default: MCP_USER_ID)"},
					cli.StringFlag{Name: "status, s", Value: "active", Usage: "active, completed or cancelled"},
					cli.StringFlag{Name: "category", Usage: "only this category"},
					cli.BoolFlag{Name: "jobs, j", Usage: "also show pending delivery jobs"},
				},
			},
			{
				Name:      "import",
				Usage:     "create reminders from a YAML file",
				ArgsUsage: "<file.yaml>",
				Action:    importFile,
				Flags: []cli.Flag{
					cli.Uint64Flag{Name: "user, u", Usage: "owner id (default: MCP_USER_ID)"},
				},
			},
			{
				Name:   "mcp",
				Usage:  "serve reminder tools over MCP stdio",
				Action: serveMCP,
			},
		},
	}
	return app.Run(args)
}

func main() {
	if err := Execute(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "recuerdito: %s\n", err.Error())
		os.Exit(1)
	}
}
