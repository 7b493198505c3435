package main

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/evalops/botvet/internal/config"
)

func newInitCommand() *cobra.Command {
	var interactive bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Create a .botvet.yaml configuration file",
		Long: `Create a .botvet.yaml configuration file with the service endpoints and
evaluation matrix settings.

Use --interactive to run a guided form that collects the endpoints and
skill ids. Without it, a commented template with defaults is written.

If no directory is specified, the current directory is used.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return initCommandE(cmd, args, interactive)
		},
	}

	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "Run the guided setup form")

	return cmd
}

func initCommandE(cmd *cobra.Command, args []string, interactive bool) error {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	path := filepath.Join(dir, ".botvet.yaml")
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}

	cfg := config.New()
	if interactive {
		if err := runSetupForm(cfg); err != nil {
			return fmt.Errorf("setup form failed: %w", err)
		}
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to serialize configuration: %w", err)
	}

	content := "# botvet configuration. The service token is read from the environment\n" +
		"# variable named by service.token_env, never from this file.\n" + string(data)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", path)
	return nil
}

// runSetupForm collects the minimum viable configuration interactively.
func runSetupForm(cfg *config.Config) error {
	var skillsRaw string

	validateURL := func(s string) error {
		if strings.TrimSpace(s) == "" {
			return errors.New("required")
		}
		if _, err := url.ParseRequestURI(strings.TrimSpace(s)); err != nil {
			return errors.New("must be a valid URL")
		}
		return nil
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Interview-bot REST base URL").
				Placeholder("https://bot.example.com/api").
				Value(&cfg.Service.BaseURL).
				Validate(validateURL),
			huh.NewInput().
				Title("GraphQL endpoint").
				Placeholder("https://bot.example.com/graphql").
				Value(&cfg.Service.GraphQLURL).
				Validate(validateURL),
			huh.NewInput().
				Title("Subscription websocket endpoint").
				Placeholder("wss://bot.example.com/graphql").
				Value(&cfg.Service.WSURL).
				Validate(validateURL),
			huh.NewInput().
				Title("LLM base URL").
				Description("OpenAI-compatible endpoint for personas and the judge").
				Placeholder("https://llm.example.com/v1").
				Value(&cfg.LLM.BaseURL).
				Validate(validateURL),
			huh.NewInput().
				Title("Skill ids").
				Description("Comma-separated list of skill/test ids to evaluate").
				Placeholder("S1, S2").
				Value(&skillsRaw).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return errors.New("at least one skill id is required")
					}
					return nil
				}),
		),
	)

	if err := form.Run(); err != nil {
		return err
	}

	for _, skill := range strings.Split(skillsRaw, ",") {
		if skill = strings.TrimSpace(skill); skill != "" {
			cfg.Run.Skills = append(cfg.Run.Skills, skill)
		}
	}
	return nil
}
