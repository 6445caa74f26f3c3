package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Comcast/rxfsm/core"
	"github.com/Comcast/rxfsm/tools"

	"github.com/spf13/cobra"
)

func newGraphCmd(root *rootOpts) *cobra.Command {
	var (
		format   string
		from, to string
	)
	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Write a Mermaid or Graphviz graph of a machine",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := root.load()
			if err != nil {
				return err
			}
			switch format {
			case "mermaid":
				return tools.Mermaid(s, cmd.OutOrStdout(), nil)
			case "dot":
				return tools.Dot(s, cmd.OutOrStdout(), &tools.DotOpts{From: from, To: to})
			default:
				return fmt.Errorf("unknown format %q", format)
			}
		},
	}
	cmd.Flags().StringVar(&format, "format", "mermaid", "mermaid or dot")
	cmd.Flags().StringVar(&from, "from", "", "highlight a step from this state (dot)")
	cmd.Flags().StringVar(&to, "to", "", "highlight a step to this state (dot)")
	return cmd
}

func newHTMLCmd(root *rootOpts) *cobra.Command {
	var (
		css   []string
		graph bool
	)
	cmd := &cobra.Command{
		Use:   "html",
		Short: "Write an HTML page documenting a machine",
		RunE: func(cmd *cobra.Command, args []string) error {
			if root.filename == "" {
				return errors.New("need a machine definition (-f)")
			}
			return tools.ReadAndRenderPage(root.filename, css, cmd.OutOrStdout(), graph)
		},
	}
	cmd.Flags().StringSliceVar(&css, "css", nil, "stylesheet URLs")
	cmd.Flags().BoolVar(&graph, "graph", true, "include a graph")
	return cmd
}

func newAnalyzeCmd(root *rootOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "analyze",
		Short: "Report statistics and problems for a machine",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := root.load()
			if err != nil {
				return err
			}
			a := tools.Analyze(s)

			// Compilation finds problems in patterns and scripts.
			if _, err := s.Compile(nil); err != nil {
				var im *core.InvalidMachine
				if !errors.As(err, &im) {
					return err
				}
				a.Errors = append(a.Errors, im.Problems...)
			}

			js, err := json.MarshalIndent(a, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n", js)
			if 0 < len(a.Errors) {
				return fmt.Errorf("%d problems", len(a.Errors))
			}
			return nil
		},
	}
}
