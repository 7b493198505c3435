package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/evalops/botvet/internal/botclient"
	"github.com/evalops/botvet/internal/config"
	"github.com/evalops/botvet/internal/evaluation"
	"github.com/evalops/botvet/internal/judge"
	"github.com/evalops/botvet/internal/llm"
	"github.com/evalops/botvet/internal/persona"
	"github.com/evalops/botvet/internal/provision"
	"github.com/evalops/botvet/internal/report"
)

var (
	runSkills    []string
	runPersonas  []string
	runBatchSize int
	runsPerTask  int
	reportsDir   string
)

func newRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the evaluation matrix against the interview-bot service",
		Long: `Run every configured (skill, persona) evaluation task in concurrent
batches. Each task provisions its own assessment, drives the interview to
completion, waits for grading, and writes one report per successful run.

Configuration comes from .botvet.yaml (found by walking up from the current
directory); secrets come from the environment, optionally via a .env file.`,
		Args: cobra.NoArgs,
		RunE: runCommandE,
	}

	cmd.Flags().StringArrayVar(&runSkills, "skill", nil, "Skill id to evaluate (overrides config, can be repeated)")
	cmd.Flags().StringArrayVar(&runPersonas, "persona", nil, "Persona name to include (default: all)")
	cmd.Flags().IntVar(&runBatchSize, "batch-size", 0, "Concurrent tasks per batch (overrides config)")
	cmd.Flags().IntVar(&runsPerTask, "runs", 0, "Runs per (skill, persona) pair (overrides config)")
	cmd.Flags().StringVar(&reportsDir, "reports-dir", "", "Directory for report files (overrides config)")

	return cmd
}

func runCommandE(cmd *cobra.Command, args []string) error {
	// .env is optional; real deployments use ambient environment variables
	_ = godotenv.Load()

	cfg, err := config.Load(".")
	if err != nil {
		return err
	}
	applyRunFlags(cfg)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	token := os.Getenv(cfg.Service.TokenEnv)
	if token == "" {
		return fmt.Errorf("environment variable %s is not set", cfg.Service.TokenEnv)
	}

	log := slog.Default()

	client := botclient.New(botclient.Options{
		RestURL:      cfg.Service.BaseURL,
		GraphQLURL:   cfg.Service.GraphQLURL,
		WebsocketURL: cfg.Service.WSURL,
		Token:        token,
		CallTimeout:  cfg.ServiceTimeout(),
	})

	chatter := llm.NewClient(cfg.LLM.BaseURL, os.Getenv(cfg.LLM.APIKeyEnv))

	personas, err := buildPersonas(cfg, chatter)
	if err != nil {
		return err
	}

	provisioner := provision.New(client, log)
	provisioner.MaxAttempts = cfg.Poll.MaxAttempts
	provisioner.Interval = cfg.PollInterval()

	j, err := judge.New(chatter, cfg.LLM.JudgeModel, log)
	if err != nil {
		return err
	}

	writer, err := buildReportWriter(cfg, log)
	if err != nil {
		return err
	}

	supervisor := evaluation.NewSupervisor(client, provisioner, j, writer, log)
	supervisor.TestGroup = cfg.Run.TestGroup
	supervisor.ConversationTimeout = cfg.ConversationTimeout()
	supervisor.AttemptRetries = *cfg.Run.AttemptRetries
	supervisor.JudgeRetries = *cfg.Run.JudgeRetries

	scheduler := evaluation.NewScheduler(supervisor, log)
	scheduler.BatchSize = cfg.Run.BatchSize
	scheduler.RunsPerTask = cfg.Run.RunsPerTask

	skip := make([]evaluation.SkipEntry, 0, len(cfg.Run.Skip))
	for _, entry := range cfg.Run.Skip {
		skip = append(skip, evaluation.SkipEntry{Persona: entry.Persona, SkillID: entry.Skill})
	}

	tasks := scheduler.BuildTasks(cfg.Run.Skills, personas, skip)
	if len(tasks) == 0 {
		return fmt.Errorf("no tasks to run: every (skill, persona) pair is skipped")
	}

	log.Info("starting evaluation run",
		"tasks", len(tasks),
		"batchSize", scheduler.BatchSize,
		"skills", len(cfg.Run.Skills),
		"personas", len(personas))

	results := scheduler.Run(cmd.Context(), tasks)

	fmt.Fprint(cmd.OutOrStdout(), FormatSummary(results))

	if failed := countFailed(results); failed > 0 {
		return &TaskFailureError{
			Message: fmt.Sprintf("%d of %d evaluation tasks failed", failed, len(results)),
		}
	}
	return nil
}

// applyRunFlags overlays command-line flags onto the loaded configuration.
func applyRunFlags(cfg *config.Config) {
	if len(runSkills) > 0 {
		cfg.Run.Skills = runSkills
	}
	if runBatchSize > 0 {
		cfg.Run.BatchSize = runBatchSize
	}
	if runsPerTask > 0 {
		cfg.Run.RunsPerTask = runsPerTask
	}
	if reportsDir != "" {
		cfg.Reports.Dir = reportsDir
		cfg.Reports.Blob.Enabled = false
	}
}

// buildPersonas assembles the persona roster: every builtin archetype plus
// any custom archetypes from the config, optionally narrowed by --persona.
func buildPersonas(cfg *config.Config, chatter llm.Chatter) ([]persona.Builder, error) {
	archetypes := persona.BuiltinArchetypes()
	for _, raw := range cfg.Run.Personas {
		custom, err := persona.DecodeArchetype(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid persona in config: %w", err)
		}
		archetypes = append(archetypes, custom)
	}

	wanted := make(map[string]bool, len(runPersonas))
	for _, name := range runPersonas {
		wanted[name] = true
	}

	var builders []persona.Builder
	for _, a := range archetypes {
		if len(wanted) > 0 && !wanted[a.Name] {
			continue
		}
		builders = append(builders, &persona.ArchetypeBuilder{
			Archetype: a,
			Chatter:   chatter,
			Model:     cfg.LLM.PersonaModel,
		})
	}

	if len(builders) == 0 {
		return nil, fmt.Errorf("no personas selected")
	}
	return builders, nil
}

func buildReportWriter(cfg *config.Config, log *slog.Logger) (report.Writer, error) {
	if cfg.Reports.Blob.Enabled {
		return report.NewBlobWriter(cfg.Reports.Blob.ServiceURL, cfg.Reports.Blob.Container, cfg.Reports.Compress, log)
	}
	return report.NewFileWriter(cfg.Reports.Dir, cfg.Reports.Compress, log), nil
}

func countFailed(results []evaluation.Result) int {
	failed := 0
	for _, res := range results {
		if res.Err != nil {
			failed++
		}
	}
	return failed
}
