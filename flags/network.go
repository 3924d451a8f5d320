package flags

import (
	"gopkg.in/urfave/cli.v1"
)

// NetworkFlags selects the chain whose fork schedule is loaded. At most one of
// them may be given; without either the dev preset is used.
func NetworkFlags() []cli.Flag {
	return []cli.Flag{
		cli.StringFlag{
			Name:  "genesis",
			Usage: "Path to a genesis JSON file with a qbft or ibft2 config section",
		},
		cli.StringFlag{
			Name:  "preset",
			Usage: "Built-in network preset (dev|test|switch)",
		},
	}
}
