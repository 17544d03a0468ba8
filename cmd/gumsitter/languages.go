package main

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/gumsitter/pkg/rewrite"
	"github.com/Sumatoshi-tech/gumsitter/pkg/sitter"
)

func languagesCmd(state *appState) *cobra.Command {
	var rulesPath string

	cmd := &cobra.Command{
		Use:   "languages",
		Short: "List the bundled grammars and their rule counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rules, err := state.ruleset(rulesPath)
			if err != nil {
				return err
			}

			return writeLanguages(cmd.OutOrStdout(), sitter.Languages(), rules)
		},
	}

	cmd.Flags().StringVar(&rulesPath, "rules", "", "rules document replacing the embedded rules")

	return cmd
}

func writeLanguages(w io.Writer, langs []string, rules rewrite.Ruleset) error {
	tbl := newTable()
	tbl.AppendHeader(table.Row{"LANGUAGE", "FLATTENED", "ALIASED", "IGNORED", "LABEL_IGNORED"})

	for _, lang := range langs {
		langRules := rules.Lookup(lang)

		tbl.AppendRow(table.Row{
			lang,
			langRules.Count(rewrite.CategoryFlattened),
			langRules.Count(rewrite.CategoryAliased),
			langRules.Count(rewrite.CategoryIgnored),
			langRules.Count(rewrite.CategoryLabelIgnored),
		})
	}

	_, err := fmt.Fprintln(w, tbl.Render())
	if err != nil {
		return fmt.Errorf("write languages: %w", err)
	}

	return nil
}

func newTable() table.Writer {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.SeparateRows = false
	tbl.Style().Options.SeparateColumns = false
	tbl.Style().Options.DrawBorder = false
	tbl.Style().Options.SeparateHeader = false

	return tbl
}
