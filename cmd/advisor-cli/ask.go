package main

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"budgetadvisor/internal/advisor"
	"budgetadvisor/internal/answer"
	"budgetadvisor/internal/backend"
	"budgetadvisor/internal/cli"
	"budgetadvisor/internal/config"
	applog "budgetadvisor/internal/log"
)

func newAskCmd() *cobra.Command {
	var flags budgetFlags

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer a financial question with the configured strategy",
		Long: "Answer a free-text question using ANSWER_STRATEGY and the backend settings from the\n" +
			"environment or a .env file. Budget flags, when given, print the evaluation first.",
		Example: `  advisor-cli ask "How can I reduce my credit card debt?"`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.TrimSpace(strings.Join(args, " "))
			if query == "" {
				return answer.ErrEmptyQuery
			}
			if n := utf8.RuneCountInString(query); n > answer.MaxQueryLength {
				return fmt.Errorf("question is %d characters, at most %d are allowed", n, answer.MaxQueryLength)
			}

			if flags.set() {
				record, err := flags.record()
				if err != nil {
					return err
				}
				printResult(cmd.OutOrStdout(), advisor.Evaluate(record))
				fmt.Fprintln(cmd.OutOrStdout())
			}

			cli.LoadEnvFile()
			cfg := config.Load()
			logger := cli.SetupLogger(cfg, applog.ComponentCLI)
			if err := cfg.Validate(); err != nil {
				return err
			}

			backendCfg, err := backend.FromAppConfig(cfg)
			if err != nil {
				return err
			}
			res, err := backend.NewFactory(logger.WithComponent(applog.ComponentBackend).Logger).CreateAnswerer(backendCfg)
			if err != nil {
				return err
			}
			if res.Cleanup != nil {
				defer func() {
					if err := res.Cleanup(); err != nil {
						logger.Warn("Backend cleanup failed", applog.FieldError, err)
					}
				}()
			}

			ctx, cancel := cli.ShutdownSignals(cmd.Context(), logger)
			defer cancel()

			text, err := res.Answerer.Answer(ctx, query)
			if errors.Is(err, answer.ErrDisabled) {
				return fmt.Errorf("%w: set ANSWER_STRATEGY to retrieval or direct", err)
			}
			if err != nil {
				return fmt.Errorf("answer unavailable: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "AI answer: %s\n", text)
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}
