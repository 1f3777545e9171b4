package main

import (
	"context"
	"io"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/MasterGowen/open-discussions/infrastructure/logger"
	"github.com/MasterGowen/open-discussions/internal/config"
	"github.com/MasterGowen/open-discussions/internal/indexing"
	"github.com/MasterGowen/open-discussions/internal/tasks"
)

func statusCommand() *cobra.Command {
	var withQueue bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the alias state, backing indices and queue depths",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := loadRuntime()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()
			return runStatus(cmd.Context(), cmd.OutOrStdout(), cfg, log, withQueue)
		},
	}
	cmd.Flags().BoolVar(&withQueue, "queue", true, "include task queue depths")
	return cmd
}

func runStatus(ctx context.Context, out io.Writer, cfg *config.Config, log logger.Logger, withQueue bool) error {
	c := newComponents(log)
	defer c.close()

	if err := c.openSearch(ctx, cfg); err != nil {
		return err
	}
	status, err := c.indexer.Status(ctx)
	if err != nil {
		return err
	}

	counts := make(map[string]int, 2)
	for _, alias := range []string{status.DefaultAlias, status.ReindexAlias} {
		if count, countErr := c.indexer.CountDocuments(ctx, alias); countErr == nil {
			counts[alias] = count
		}
	}

	var depths map[tasks.Priority]int64
	if withQueue {
		if err = c.openQueue(ctx, cfg); err != nil {
			log.Warn("Task queue unavailable", logger.Error(err))
		} else if depths, err = c.producer.QueueDepths(ctx); err != nil {
			log.Warn("Failed to read queue depths", logger.Error(err))
		}
	}

	renderStatus(out, status, counts, depths)
	return nil
}

func renderStatus(out io.Writer, status *indexing.Status, counts map[string]int, depths map[tasks.Priority]int64) {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleLight)
	t.SetTitle("State: " + string(status.State))
	t.AppendHeader(table.Row{"Alias", "Backing indices", "Documents"})
	t.AppendRow(aliasRow(status.DefaultAlias, status.DefaultIndices, counts))
	t.AppendRow(aliasRow(status.ReindexAlias, status.ReindexIndices, counts))
	t.Render()

	if len(depths) == 0 {
		return
	}

	q := table.NewWriter()
	q.SetOutputMirror(out)
	q.SetStyle(table.StyleLight)
	q.AppendHeader(table.Row{"Queue", "Depth"})
	for _, priority := range tasks.AllPriorities() {
		if depth, ok := depths[priority]; ok {
			q.AppendRow(table.Row{priority.String(), depth})
		}
	}
	q.Render()
}

func aliasRow(alias string, indices []string, counts map[string]int) table.Row {
	if len(indices) == 0 {
		return table.Row{alias, "-", "-"}
	}
	docs := "-"
	if count, ok := counts[alias]; ok {
		docs = strconv.Itoa(count)
	}
	return table.Row{alias, strings.Join(indices, ", "), docs}
}
