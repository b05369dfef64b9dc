package main

import (
	"github.com/urfave/cli/v2"

	"github.com/ridership3d/internal/common/maintenance"
)

func pruneCommand() *cli.Command {
	return &cli.Command{
		Name:  "prune",
		Usage: "delete load history older than HISTORY_RETENTION",
		Flags: []cli.Flag{
			&cli.DurationFlag{Name: "retention", Usage: "override HISTORY_RETENTION"},
		},
		Action: func(c *cli.Context) error {
			e, err := setup(c.Context, false)
			if err != nil {
				return err
			}
			defer e.Close()

			if e.history == nil {
				return cli.Exit("load history is disabled; set HISTORY_DRIVER", 2)
			}

			retention := e.cfg.History.Retention
			if c.IsSet("retention") {
				retention = c.Duration("retention")
			}

			result, err := maintenance.New(e.history, e.log).PruneLoadHistory(c.Context, retention)
			if err != nil {
				return err
			}
			e.log.Info("Prune finished", "records_deleted", result.RecordsDeleted, "cutoff", result.Cutoff)
			return nil
		},
	}
}
