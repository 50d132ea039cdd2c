package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"

	"github.com/mipyme/backoffice/internal/platform/cache"
	"github.com/mipyme/backoffice/jobs"
)

// JobsCLI wraps manual management helpers for Asynq jobs.
type JobsCLI struct {
	client    *jobs.Client
	inspector *asynq.Inspector
}

// NewJobsCLI connects the enqueue client and the queue inspector.
func NewJobsCLI(redis cache.Options) (*JobsCLI, error) {
	opts := redis.Asynq()
	client, err := jobs.NewClient(opts)
	if err != nil {
		return nil, err
	}
	return &JobsCLI{client: client, inspector: asynq.NewInspector(opts)}, nil
}

// Close releases underlying resources.
func (c *JobsCLI) Close() error {
	var errs []error
	if c.inspector != nil {
		errs = append(errs, c.inspector.Close())
	}
	if c.client != nil {
		errs = append(errs, c.client.Close())
	}
	return errors.Join(errs...)
}

// Trigger enqueues a maintenance job by task name.
func (c *JobsCLI) Trigger(ctx context.Context, name string) (*asynq.TaskInfo, error) {
	if c == nil || c.client == nil {
		return nil, errors.New("jobs cli: client not configured")
	}
	task, err := jobs.TaskByName(name)
	if err != nil {
		return nil, err
	}
	return c.client.Enqueue(ctx, task, asynq.MaxRetry(3))
}

// Stats reports the queue metrics.
func (c *JobsCLI) Stats() ([]jobs.QueueStats, error) {
	if c == nil || c.inspector == nil {
		return nil, errors.New("jobs cli: inspector not configured")
	}
	return jobs.Stats(c.inspector)
}

func writeStats(w io.Writer, stats []jobs.QueueStats) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "QUEUE\tPENDING\tACTIVE\tSCHEDULED\tRETRY\tARCHIVED\tPROCESSED\tFAILED")
	for _, s := range stats {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\t%d\t%d\n", s.Queue, s.Pending, s.Active, s.Scheduled, s.Retry, s.Archived, s.Processed, s.Failed)
	}
	return tw.Flush()
}

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Trigger and inspect background jobs",
}

var jobsTriggerCmd = &cobra.Command{
	Use:   "trigger <task>",
	Short: "Enqueue a maintenance task now",
	Long:  "Enqueue a maintenance task now. Known tasks: " + strings.Join(jobs.ManualTaskNames(), ", "),
	Example: `  backofficectl jobs trigger invoices:refresh-status
  backofficectl jobs trigger quotes:expire`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cli, err := jobsCLIFor(cmd)
		if err != nil {
			return err
		}
		defer cli.Close()
		info, err := cli.Trigger(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "enqueued %s (id %s, queue %s)\n", info.Type, info.ID, info.Queue)
		return nil
	},
}

var jobsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show queue statistics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cli, err := jobsCLIFor(cmd)
		if err != nil {
			return err
		}
		defer cli.Close()
		stats, err := cli.Stats()
		if err != nil {
			return err
		}
		return writeStats(cmd.OutOrStdout(), stats)
	},
}

func jobsCLIFor(cmd *cobra.Command) (*JobsCLI, error) {
	addr, _ := cmd.Flags().GetString("redis-addr")
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}
	if addr == "" {
		addr = "127.0.0.1:6379"
	}
	db, _ := strconv.Atoi(os.Getenv("REDIS_DB"))
	return NewJobsCLI(cache.Options{Addr: addr, Password: os.Getenv("REDIS_PASSWORD"), DB: db})
}

func init() {
	jobsCmd.AddCommand(jobsTriggerCmd, jobsStatsCmd)
	rootCmd.AddCommand(jobsCmd)
}
