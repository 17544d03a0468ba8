package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/gumsitter/pkg/translate"
	"github.com/Sumatoshi-tech/gumsitter/pkg/tree"
)

// stdinPath reads the source from standard input.
const stdinPath = "-"

// ErrStdinLanguage is returned when stdin is parsed without a language.
var ErrStdinLanguage = errors.New("a language is required when reading from stdin")

type parseOptions struct {
	raw    bool
	pretty bool
	color  bool
	format string
	output string
	rules  string
}

func parseCmd(state *appState) *cobra.Command {
	var opts parseOptions

	cmd := &cobra.Command{
		Use:   "parse FILE [LANGUAGE]",
		Short: "Parse a source file into a GumTree tree",
		Long: `Parse a source file with its tree-sitter grammar and print the normalized
tree. The language is detected from the file name and content unless given.

Examples:
  gumsitter parse main.go                  # XML tree on stdout
  gumsitter parse --pretty main.go         # indented text tree
  gumsitter parse script go                # force the Go grammar
  cat Main.java | gumsitter parse - java   # read stdin
  gumsitter parse --raw -f json App.kt     # no rewrite rules, JSON output`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			lang := ""
			if len(args) > 1 {
				lang = args[1]
			}

			opts.applyConfig(cmd, state)

			return runParse(cmd, state, args[0], lang, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.raw, "raw", false, "disable the rewrite rules")
	cmd.Flags().BoolVar(&opts.pretty, "pretty", false, "shorthand for --format pretty")
	cmd.Flags().BoolVar(&opts.color, "color", false, "colorize the pretty format")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "", "output format (xml, pretty, json, msgpack, msgpack-lz4)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (default: stdout)")
	cmd.Flags().StringVar(&opts.rules, "rules", "", "rules document replacing the embedded rules")

	return cmd
}

// applyConfig fills the options the user did not set on the command line.
func (o *parseOptions) applyConfig(cmd *cobra.Command, state *appState) {
	if state.cfg == nil {
		return
	}

	if !cmd.Flags().Changed("raw") {
		o.raw = state.cfg.Rules.Raw
	}

	if !cmd.Flags().Changed("color") {
		o.color = state.cfg.Output.Color
	}

	if o.format == "" && !o.pretty {
		o.format = state.cfg.Output.Format
	}
}

func (o *parseOptions) resolveFormat() (tree.Format, error) {
	if o.pretty {
		return tree.FormatPretty, nil
	}

	return tree.ParseFormat(o.format)
}

func runParse(cmd *cobra.Command, state *appState, path, lang string, opts parseOptions) error {
	format, err := opts.resolveFormat()
	if err != nil {
		return err
	}

	source, filename, err := readSource(cmd.InOrStdin(), path, lang)
	if err != nil {
		return err
	}

	rules, err := state.ruleset(opts.rules)
	if err != nil {
		return err
	}

	result, err := state.translator(rules, nil).Translate(cmd.Context(), translate.Request{
		Language: lang,
		Filename: filename,
		Source:   source,
		Raw:      opts.raw,
	})
	if err != nil {
		return fmt.Errorf("parse %s: %w", filename, err)
	}

	state.logger().Debug("parsed",
		"file", filename,
		"language", result.Language,
		"nodes", result.Tree.Size(),
		"duration", result.Duration,
	)

	return writeTree(cmd.OutOrStdout(), opts.output, result.Tree, format, renderOptions(state, opts))
}

func renderOptions(state *appState, opts parseOptions) tree.RenderOptions {
	render := tree.RenderOptions{Color: opts.color}

	if state.cfg != nil {
		render.Indent = state.cfg.Output.JSONIndent
	}

	return render
}

func readSource(stdin io.Reader, path, lang string) (source []byte, filename string, err error) {
	if path == stdinPath {
		if lang == "" {
			return nil, "", ErrStdinLanguage
		}

		source, err = io.ReadAll(stdin)
		if err != nil {
			return nil, "", fmt.Errorf("read stdin: %w", err)
		}

		return source, "<stdin>", nil
	}

	source, resolved, err := safeReadFile(path)
	if err != nil {
		return nil, "", err
	}

	return source, resolved, nil
}

func writeTree(stdout io.Writer, output string, root *tree.Node, format tree.Format, opts tree.RenderOptions) (err error) {
	out := stdout

	if output != "" {
		file, createErr := os.Create(output) //nolint:gosec // output path is chosen by the CLI user.
		if createErr != nil {
			return fmt.Errorf("create output %s: %w", output, createErr)
		}

		defer func() {
			closeErr := file.Close()
			if err == nil && closeErr != nil {
				err = fmt.Errorf("close output %s: %w", output, closeErr)
			}
		}()

		out = file
		opts.Color = false
	}

	buffered := bufio.NewWriter(out)

	err = tree.Write(buffered, root, format, opts)
	if err != nil {
		return fmt.Errorf("render tree: %w", err)
	}

	err = buffered.Flush()
	if err != nil {
		return fmt.Errorf("flush output: %w", err)
	}

	return nil
}
