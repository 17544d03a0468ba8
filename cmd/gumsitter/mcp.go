package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/gumsitter/pkg/mcp"
	"github.com/Sumatoshi-tech/gumsitter/pkg/observability"
)

func mcpCmd(state *appState) *cobra.Command {
	var rulesPath string

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start an MCP server for AI agent integration",
		Long: `Start a Model Context Protocol (MCP) server on stdio.

Tools:
  - gumtree_normalize: parse source code into a normalized GumTree tree
  - gumtree_rules: show the rewrite rules of a language
  - gumtree_languages: list the bundled grammars`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rules, err := state.ruleset(rulesPath)
			if err != nil {
				return err
			}

			red, err := observability.NewREDMetrics(state.providers.Meter)
			if err != nil {
				return fmt.Errorf("create RED metrics: %w", err)
			}

			translationMetrics, err := observability.NewTranslationMetrics(state.providers.Meter)
			if err != nil {
				return fmt.Errorf("create translation metrics: %w", err)
			}

			srv := mcp.NewServer(mcp.ServerDeps{
				Translator: state.translator(rules, translationMetrics),
				Logger:     state.logger(),
				Metrics:    red,
				Tracer:     state.providers.Tracer,
			})

			return srv.Run(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&rulesPath, "rules", "", "rules document replacing the embedded rules")

	return cmd
}
