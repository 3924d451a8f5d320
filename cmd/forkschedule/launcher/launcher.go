package launcher

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"gopkg.in/urfave/cli.v1"

	"github.com/rony4d/go-opera-forks/api"
	"github.com/rony4d/go-opera-forks/bft"
	"github.com/rony4d/go-opera-forks/flags"
	"github.com/rony4d/go-opera-forks/protocol"
)

// Launch parses args, builds the protocol schedule of the selected chain and
// prints the header rules at the requested heights. With --http.addr it then
// keeps serving the schedule until interrupted. Any configuration error
// is returned, so the process exits non-zero before reporting anything.
func Launch(args []string) error {
	return newApp(os.Stdout, os.Stderr).Run(args)
}

func newApp(out, logOut io.Writer) *cli.App {
	app := flags.NewApp(out)
	app.Action = func(ctx *cli.Context) error {
		return run(ctx, out, logOut)
	}
	return app
}

func run(ctx *cli.Context, out, logOut io.Writer) error {
	cfg, err := MakeAllConfigs(ctx)
	if err != nil {
		return err
	}
	log, err := newLogger(cfg.Logging, logOut)
	if err != nil {
		return err
	}

	source := cfg.Network.GenesisPath
	if source == "" {
		source = "preset:" + cfg.Network.Preset
	}

	schedule, err := cfg.Network.Genesis.Schedule()
	if err != nil {
		log.WithError(err).Error("Invalid fork schedule")
		return err
	}
	validators, err := cfg.Network.Genesis.Validators()
	if err != nil {
		log.WithError(err).Error("Invalid genesis extra data")
		return err
	}
	log.WithFields(logrus.Fields{
		"source":     source,
		"forks":      schedule.Len(),
		"distinct":   len(schedule.Distinct()),
		"validators": len(validators),
	}).Info("Loaded fork schedule")

	reg := prometheus.NewRegistry()
	deps := bft.Dependencies{}
	if len(cfg.Query.ContractValidators) > 0 {
		deps.ContractReaders = staticContractReaders(cfg.Query.ContractValidators)
	}
	ps := bft.NewProtocolSchedule(schedule, deps,
		protocol.WithLogger(log),
		protocol.WithMetrics(protocol.NewMetrics(reg)),
	)

	if err := ps.Prebuild(); err != nil {
		log.WithError(err).Error("Fork schedule rejected")
		return err
	}

	heights := cfg.Query.Heights
	if len(heights) == 0 {
		for _, e := range schedule.Entries() {
			heights = append(heights, e.Block)
		}
	}
	for _, h := range heights {
		set, err := ps.RulesetFor(h)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%d\t%s\t%s\n", h, ps.OptionsAt(h), strings.Join(set.Names(), ","))
	}

	if cfg.Metrics.Enabled {
		if err := logMetrics(log, reg); err != nil {
			return err
		}
	}

	if cfg.HTTP.Addr == "" {
		return nil
	}
	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return api.NewServer(ps, reg, log).Serve(sigCtx, cfg.HTTP.Addr)
}

// staticContractReaders answers every contract read with the same validator
// list. The launcher has no chain state to execute contract calls against.
func staticContractReaders(validators []common.Address) bft.ContractReaderFactory {
	return func(common.Address) bft.ContractValidatorReader {
		return bft.ContractValidatorReaderFunc(func(common.Hash) ([]common.Address, error) {
			return validators, nil
		})
	}
}

func logMetrics(log logrus.FieldLogger, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			fields := logrus.Fields{
				"name":  mf.GetName(),
				"value": m.GetCounter().GetValue(),
			}
			for _, l := range m.GetLabel() {
				fields[l.GetName()] = l.GetValue()
			}
			log.WithFields(fields).Info("Metric")
		}
	}
	return nil
}
