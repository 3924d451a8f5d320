package flags

import (
	"gopkg.in/urfave/cli.v1"
)

// CommonFlags returns the logging and monitoring flags shared across commands.

func CommonFlags() []cli.Flag {
	return []cli.Flag{
		cli.StringFlag{
			Name:  "log.format",
			Usage: "Log output format (text|json)",
			Value: "text",
		},
		cli.IntFlag{
			Name:  "log.verbosity",
			Usage: "Logging verbosity (0=fatal,1=error,2=warn,3=info,4=debug,5=trace)",
			Value: 3,
		},
		cli.BoolFlag{
			Name:  "log.color",
			Usage: "Enable colored log output",
		},
		cli.StringFlag{
			Name:  "sentry.dsn",
			Usage: "Sentry DSN; error, fatal and panic log entries are reported there when set",
		},
		cli.StringFlag{
			Name:  "http.addr",
			Usage: "Serve rules, header validation and metrics over HTTP on this address (e.g. 127.0.0.1:8080)",
		},
		cli.BoolFlag{
			Name:  "metrics",
			Usage: "Log ruleset cache and validation counters before exiting",
		},
	}
}
