// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/poiesic/poliscope"
	"github.com/poiesic/poliscope/ai"
	"github.com/poiesic/poliscope/core"
	"github.com/poiesic/poliscope/pipeline"
	"github.com/poiesic/poliscope/query"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "poliscope",
		Usage: "Insurance policy ingestion and retrieval-augmented questions",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:      "process",
				Usage:     "Submit policy documents through the ingestion pipeline",
				ArgsUsage: "DOCUMENT...",
				Action:    processCommand,
				Flags: append(serviceFlags(),
					&cli.StringSliceFlag{
						Name:  "invoice",
						Usage: "Link a roofing invoice to a policy as POLICY=PATH (repeatable)",
					},
					&cli.IntFlag{
						Name:  "pool-size",
						Usage: "Number of concurrent pipeline workers",
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum retry attempts for transient stage failures",
						Value: pipeline.DefaultMaxAttempts,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
						Value: pipeline.DefaultBaseDelay,
					},
					&cli.DurationFlag{
						Name:  "poll-interval",
						Usage: "How often to poll task progress",
						Value: time.Second,
					},
				),
			},
			{
				Name:      "status",
				Usage:     "Show the current state of a task",
				ArgsUsage: "TASK_ID",
				Action:    statusCommand,
				Flags:     serviceFlags(),
			},
			{
				Name:      "step",
				Usage:     "Re-run one pipeline stage for selected policies",
				ArgsUsage: "POLICY...",
				Action:    stepCommand,
				Flags: append(serviceFlags(),
					&cli.StringFlag{
						Name:     "stage",
						Usage:    "Stage to re-run (extract, embed, store, context_update)",
						Required: true,
					},
					&cli.StringSliceFlag{
						Name:  "document",
						Usage: "Source document for an extract re-run as POLICY=PATH (repeatable)",
					},
					&cli.StringSliceFlag{
						Name:  "invoice",
						Usage: "Roofing invoice for a context_update re-run as POLICY=PATH (repeatable)",
					},
				),
			},
			{
				Name:      "query",
				Usage:     "Ask a question about an ingested policy",
				ArgsUsage: "QUESTION",
				Action:    queryCommand,
				Flags: append(serviceFlags(),
					&cli.StringFlag{
						Name:     "policy",
						Aliases:  []string{"p"},
						Usage:    "Policy number to query",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "top-k",
						Usage: "Number of chunks to retrieve as context",
					},
					&cli.BoolFlag{
						Name:  "sources",
						Usage: "Print the source chunks behind the answer",
					},
				),
			},
			{
				Name:   "health",
				Usage:  "Probe storage and AI collaborator reachability",
				Action: healthCommand,
				Flags:  serviceFlags(),
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func serviceFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "db",
			Aliases:  []string{"d"},
			Usage:    "Path to BadgerDB database directory",
			Required: true,
		},
		&cli.StringFlag{
			Name:  "host",
			Usage: "AI service host URL shared by all models",
			Value: "http://localhost:11434/v1",
		},
		&cli.StringFlag{
			Name:  "embedding-model",
			Usage: "Embedding model name",
			Value: "nomic-embed-text",
		},
		&cli.StringFlag{
			Name:  "extractor-model",
			Usage: "Extraction model name",
			Value: "qwen2.5:3b",
		},
		&cli.StringFlag{
			Name:  "generator-model",
			Usage: "Answer generation model name",
			Value: "qwen2.5:3b",
		},
	}
}

func openSystem(c *cli.Context) (*poliscope.System, error) {
	aiConfig := ai.NewConfig(
		ai.WithHost(c.String("host")),
		ai.WithEmbeddingModel(c.String("embedding-model")),
		ai.WithExtractorModel(c.String("extractor-model")),
		ai.WithGeneratorModel(c.String("generator-model")),
	)
	if err := aiConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid AI configuration: %w", err)
	}

	sys, err := poliscope.NewSystem(c.String("db"), poliscope.WithAIConfig(aiConfig))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return sys, nil
}

func processCommand(c *cli.Context) error {
	ctx := context.Background()

	if c.NArg() == 0 {
		return fmt.Errorf("at least one document path is required")
	}
	documents := make([]pipeline.Document, 0, c.NArg())
	for _, path := range c.Args().Slice() {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read document: %w", err)
		}
		documents = append(documents, pipeline.Document{
			Filename: filepath.Base(path),
			Data:     data,
		})
	}

	invoices, err := parseLinks(c.StringSlice("invoice"))
	if err != nil {
		return err
	}

	sys, err := openSystem(c)
	if err != nil {
		return err
	}
	defer sys.Close()

	opts := []pipeline.Option{
		pipeline.WithRetry(c.Int("max-retries"), c.Duration("retry-delay")),
	}
	if c.Int("pool-size") > 0 {
		opts = append(opts, pipeline.WithPoolSize(c.Int("pool-size")))
	}
	orch, err := sys.NewOrchestrator(opts...)
	if err != nil {
		return err
	}
	defer orch.Release()

	task, err := orch.SubmitBatch(ctx, documents, &pipeline.SubmitOptions{Invoices: invoices})
	if err != nil {
		return fmt.Errorf("submission failed: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Task: %s\n", task.Id)

	interval := c.Duration("poll-interval")
	for !task.Status.Terminal() {
		time.Sleep(interval)
		task, err = orch.GetStatus(ctx, task.Id)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "  %s %d%%\n", task.Status, task.Progress)
	}

	printTask(task)
	if task.Status == core.StatusFailed {
		return fmt.Errorf("batch failed: %s", task.Error)
	}
	return nil
}

func statusCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("exactly one task id is required")
	}

	sys, err := openSystem(c)
	if err != nil {
		return err
	}
	defer sys.Close()

	task, err := sys.TaskRepository().GetTask(context.Background(), core.TaskID(c.Args().First()))
	if err != nil {
		return fmt.Errorf("failed to load task: %w", err)
	}
	printTask(task)
	return nil
}

func stepCommand(c *cli.Context) error {
	stage, err := core.ParseStage(c.String("stage"))
	if err != nil {
		return err
	}
	if c.NArg() == 0 {
		return fmt.Errorf("at least one policy number is required")
	}

	documents, err := parseLinks(c.StringSlice("document"))
	if err != nil {
		return err
	}
	invoices, err := parseLinks(c.StringSlice("invoice"))
	if err != nil {
		return err
	}

	sys, err := openSystem(c)
	if err != nil {
		return err
	}
	defer sys.Close()

	orch, err := sys.NewOrchestrator()
	if err != nil {
		return err
	}
	defer orch.Release()

	results, err := orch.RunStep(context.Background(), stage, c.Args().Slice(), &pipeline.StepParams{
		Documents: documents,
		Invoices:  invoices,
	})
	if err != nil {
		return fmt.Errorf("step re-run failed: %w", err)
	}

	for _, result := range results {
		line := fmt.Sprintf("%s %s: %s", result.PolicyNumber, result.Stage, result.Outcome)
		if result.Detail != "" {
			line += " (" + result.Detail + ")"
		}
		fmt.Println(line)
	}
	return nil
}

func queryCommand(c *cli.Context) error {
	if c.NArg() == 0 {
		return fmt.Errorf("a question is required")
	}
	question := strings.Join(c.Args().Slice(), " ")

	sys, err := openSystem(c)
	if err != nil {
		return err
	}
	defer sys.Close()

	var opts []query.Option
	if c.Int("top-k") > 0 {
		opts = append(opts, query.WithTopK(c.Int("top-k")))
	}
	engine, err := sys.NewQueryEngine(opts...)
	if err != nil {
		return err
	}

	answer, err := engine.Answer(context.Background(), c.String("policy"), question)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	fmt.Println(answer.Text)
	fmt.Printf("\nConfidence: %.2f\n", answer.Confidence)
	if c.Bool("sources") {
		for _, source := range answer.Sources {
			fmt.Printf("\n[%s] score=%.3f (%s)\n%s\n",
				source.Chunk.SectionLabel, source.Score, source.Chunk.SourceFilename, source.Chunk.Text)
		}
	}
	return nil
}

func healthCommand(c *cli.Context) error {
	sys, err := openSystem(c)
	if err != nil {
		return err
	}
	defer sys.Close()

	h := sys.Health(context.Background())
	fmt.Printf("Status: %s\n", h.Status)
	fmt.Printf("Embedding store reachable: %v\n", h.EmbeddingStoreReachable)
	fmt.Printf("Extraction service reachable: %v\n", h.ExtractionServiceReachable)
	if h.Status != pipeline.HealthOK {
		return fmt.Errorf("system degraded")
	}
	return nil
}

func printTask(task *core.Task) {
	fmt.Printf("Task: %s\n", task.Id)
	fmt.Printf("Kind: %s\n", task.Kind)
	fmt.Printf("Status: %s (%d%%)\n", task.Status, task.Progress)
	if task.Error != "" {
		fmt.Printf("Error: %s\n", task.Error)
	}
	for _, step := range task.Steps {
		line := fmt.Sprintf("  %s %s: %s", step.PolicyNumber, step.Stage, step.Outcome)
		if step.Detail != "" {
			line += " (" + step.Detail + ")"
		}
		fmt.Println(line)
	}
}

// parseLinks turns repeated POLICY=PATH flag values into per-policy
// documents, reading each file once.
func parseLinks(values []string) (map[string]pipeline.Document, error) {
	if len(values) == 0 {
		return nil, nil
	}
	links := make(map[string]pipeline.Document, len(values))
	for _, value := range values {
		policyNumber, path, ok := strings.Cut(value, "=")
		if !ok || policyNumber == "" || path == "" {
			return nil, fmt.Errorf("malformed link %q: expected POLICY=PATH", value)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		links[policyNumber] = pipeline.Document{
			Filename: filepath.Base(path),
			Data:     data,
		}
	}
	return links, nil
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
	return nil
}
