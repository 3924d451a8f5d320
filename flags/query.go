package flags

import (
	"gopkg.in/urfave/cli.v1"
)

// QueryFlags choose what the launcher reports once the schedule is built.
func QueryFlags() []cli.Flag {
	return []cli.Flag{
		cli.StringFlag{
			Name:  "height",
			Usage: "Comma-separated block heights to print the header rules for",
		},
		cli.StringFlag{
			Name:  "contract.validators",
			Usage: "Comma-separated validator addresses reported by every validator contract (enables contract eras)",
		},
	}
}
