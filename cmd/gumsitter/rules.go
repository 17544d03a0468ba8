package main

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/gumsitter/pkg/rewrite"
)

func rulesCmd(state *appState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Inspect rewrite rules",
	}

	cmd.AddCommand(rulesValidateCmd())
	cmd.AddCommand(rulesShowCmd(state))
	cmd.AddCommand(rulesSchemaCmd())

	return cmd
}

func rulesValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate FILE",
		Short: "Check a rules document against the schema and selector syntax",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rules, err := loadRulesFile(args[0])
			if err != nil {
				return err
			}

			total := 0
			for _, langRules := range rules {
				for _, category := range rewrite.Categories() {
					total += langRules.Count(category)
				}
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "ok: %d languages, %d rules\n", len(rules), total)

			return err
		},
	}
}

func rulesShowCmd(state *appState) *cobra.Command {
	var rulesPath string

	cmd := &cobra.Command{
		Use:   "show LANGUAGE",
		Short: "Print the rules applied to a language in evaluation order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rules, err := state.ruleset(rulesPath)
			if err != nil {
				return err
			}

			return writeRules(cmd.OutOrStdout(), rules.Lookup(args[0]))
		},
	}

	cmd.Flags().StringVar(&rulesPath, "rules", "", "rules document replacing the embedded rules")

	return cmd
}

func rulesSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON schema of the rules document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := cmd.OutOrStdout().Write(rewrite.Schema())

			return err
		},
	}
}

func writeRules(w io.Writer, rules *rewrite.Rules) error {
	tbl := newTable()
	tbl.AppendHeader(table.Row{"CATEGORY", "SELECTOR", "TYPE"})

	for _, sel := range rules.Flattened {
		tbl.AppendRow(table.Row{rewrite.CategoryFlattened, sel.String(), ""})
	}

	for _, alias := range rules.Aliased {
		tbl.AppendRow(table.Row{rewrite.CategoryAliased, alias.Selector.String(), alias.Type})
	}

	for _, sel := range rules.Ignored {
		tbl.AppendRow(table.Row{rewrite.CategoryIgnored, sel.String(), ""})
	}

	for _, sel := range rules.LabelIgnored {
		tbl.AppendRow(table.Row{rewrite.CategoryLabelIgnored, sel.String(), ""})
	}

	_, err := fmt.Fprintln(w, tbl.Render())
	if err != nil {
		return fmt.Errorf("write rules: %w", err)
	}

	return nil
}
