package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v2"

	"github.com/poiesic/lectern/core"
	"github.com/poiesic/lectern/generate"
	"github.com/poiesic/lectern/ingestion"
	"github.com/poiesic/lectern/registry"
	"github.com/poiesic/lectern/reprocess"
)

func workerCommand(c *cli.Context) error {
	engine, cfg, err := openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	opts := cfg.WorkerOptions()
	if n := c.Int("pool-size"); n > 0 {
		opts = append(opts, ingestion.WithPoolSize(n))
	}
	worker, err := engine.NewWorker(opts...)
	if err != nil {
		return fmt.Errorf("failed to create worker: %w", err)
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(c.App.ErrWriter, "Database: %s\n", cfg.DBPath)
	fmt.Fprintf(c.App.ErrWriter, "Generation: %s (%s)\n", cfg.Generation.Provider, cfg.GenerateConfig().Model)
	fmt.Fprintf(c.App.ErrWriter, "Max attempts: %d\n", cfg.Queue.MaxAttempts)
	fmt.Fprintln(c.App.ErrWriter)

	runErr := worker.Run(ctx)
	slog.Info("shutting down worker", "running", worker.Running())
	if err := worker.Release(c.Duration("drain-timeout")); err != nil {
		slog.Warn("jobs still running at shutdown; their leases will expire", "err", err)
	}
	return runErr
}

func ingestCommand(c *cli.Context) error {
	locator := c.Args().First()
	if locator == "" {
		return fmt.Errorf("locator is required")
	}
	metadata, err := parseMetadata(c.StringSlice("meta"))
	if err != nil {
		return err
	}
	title := c.String("title")
	if title == "" {
		title = locator
	}

	engine, _, err := openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	content, err := engine.Registry().Create(c.Context, registry.CreateRequest{
		OwnerID:    c.String("owner"),
		SourceType: c.String("type"),
		Locator:    locator,
		Title:      title,
		Metadata:   metadata,
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, content.ID)
	return nil
}

func statusCommand(c *cli.Context) error {
	id := c.Args().First()
	if id == "" {
		return fmt.Errorf("content id is required")
	}

	engine, _, err := openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	content, err := engine.Registry().Get(c.Context, id, c.String("owner"))
	if err != nil {
		return err
	}
	writeContent(c.App.Writer, content)
	return nil
}

func listCommand(c *cli.Context) error {
	engine, _, err := openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	page, err := engine.Registry().List(c.Context, c.String("owner"), c.Int("page"), c.Int("limit"))
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTYPE\tSTATUS\tTITLE\tUPDATED")
	for _, item := range page.Items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", item.ID, item.Source.Type, item.Status, item.Title, humanize.Time(item.UpdatedAt))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	pages := (page.Total + page.Limit - 1) / page.Limit
	fmt.Fprintf(c.App.Writer, "page %d of %d (%s total)\n", page.Page, max(pages, 1), humanize.Comma(int64(page.Total)))
	return nil
}

func resubmitCommand(c *cli.Context) error {
	id := c.Args().First()
	if id == "" {
		return fmt.Errorf("content id is required")
	}

	engine, _, err := openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	content, err := engine.Registry().Resubmit(c.Context, id, c.String("owner"))
	if err != nil {
		return err
	}
	writeContent(c.App.Writer, content)
	return nil
}

func deleteCommand(c *cli.Context) error {
	id := c.Args().First()
	if id == "" {
		return fmt.Errorf("content id is required")
	}

	engine, _, err := openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	return engine.Registry().Delete(c.Context, id, c.String("owner"))
}

func reprocessFailedCommand(c *cli.Context) error {
	rc := &reprocess.Config{
		BatchSize:      c.Int("batch-size"),
		ReportInterval: c.Int("report-interval"),
		MaxRetries:     c.Int("max-retries"),
		RetryDelay:     c.Duration("retry-delay"),
		CheckpointName: reprocess.DefaultCheckpointName,
		OwnerID:        c.String("owner"),
	}
	if rc.BatchSize <= 0 {
		return fmt.Errorf("batch-size must be greater than 0")
	}
	if rc.ReportInterval <= 0 {
		return fmt.Errorf("report-interval must be greater than 0")
	}
	if rc.MaxRetries <= 0 {
		return fmt.Errorf("max-retries must be greater than 0")
	}

	engine, cfg, err := openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	reprocessor, err := engine.NewReprocessor(rc, c.App.ErrWriter)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(c.App.ErrWriter, "Database: %s\n", cfg.DBPath)
	fmt.Fprintln(c.App.ErrWriter)

	if _, err := reprocessor.Run(ctx); err != nil {
		return fmt.Errorf("re-submission failed: %w", err)
	}
	return nil
}

func generateCommand(c *cli.Context) error {
	id := c.Args().First()
	if id == "" {
		return fmt.Errorf("content id is required")
	}
	task, err := generate.ParseTask(c.String("task"))
	if err != nil {
		return err
	}

	engine, _, err := openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	artifacts, err := engine.Generate(c.Context, id, c.String("owner"), generate.Request{
		Task:        task,
		Count:       c.Int("count"),
		SummaryKind: generate.SummaryKind(c.String("kind")),
	})
	if err != nil {
		return err
	}

	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(artifacts)
}

// parseMetadata turns key=value pairs into a map.
func parseMetadata(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid metadata %q: want key=value", pair)
		}
		out[key] = value
	}
	return out, nil
}

func writeContent(w io.Writer, content *core.Content) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "ID:\t%s\n", content.ID)
	fmt.Fprintf(tw, "Title:\t%s\n", content.Title)
	fmt.Fprintf(tw, "Source:\t%s %s\n", content.Source.Type, content.Source.Locator)
	fmt.Fprintf(tw, "Status:\t%s\n", content.Status)
	fmt.Fprintf(tw, "Generation:\t%d\n", content.Generation)
	if content.ErrorMessage != "" {
		fmt.Fprintf(tw, "Error:\t%s\n", content.ErrorMessage)
	}
	if content.Status == core.StatusCompleted {
		fmt.Fprintf(tw, "Text:\t%s characters\n", humanize.Comma(int64(len([]rune(content.ExtractedText)))))
	}
	fmt.Fprintf(tw, "Updated:\t%s\n", humanize.Time(content.UpdatedAt))
	tw.Flush()
}
