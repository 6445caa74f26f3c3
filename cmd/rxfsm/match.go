package main

import (
	"encoding/json"
	"fmt"

	"github.com/Comcast/rxfsm/match"

	"github.com/spf13/cobra"
)

// newMatchCmd invokes the pattern matcher, which is handy for working
// out event patterns and guards.
//
//	rxfsm match -p '{"likes":"?liked"}' -m '{"likes":"tacos"}'
func newMatchCmd() *cobra.Command {
	var patternJS, messageJS, bindingsJS string
	cmd := &cobra.Command{
		Use:   "match",
		Short: "Match a JSON message against a pattern",
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				pattern, message interface{}
				bs               match.Bindings
			)
			if err := json.Unmarshal([]byte(patternJS), &pattern); err != nil {
				return fmt.Errorf("pattern: %w", err)
			}
			if err := json.Unmarshal([]byte(messageJS), &message); err != nil {
				return fmt.Errorf("message: %w", err)
			}
			if err := json.Unmarshal([]byte(bindingsJS), &bs); err != nil {
				return fmt.Errorf("bindings: %w", err)
			}
			bss, err := match.Match(pattern, message, bs)
			if err != nil {
				return err
			}
			if bss == nil {
				bss = []match.Bindings{}
			}
			js, err := json.Marshal(bss)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n", js)
			return nil
		},
	}
	cmd.Flags().StringVarP(&patternJS, "pattern", "p", "null", "pattern in JSON")
	cmd.Flags().StringVarP(&messageJS, "message", "m", "null", "message in JSON")
	cmd.Flags().StringVarP(&bindingsJS, "bindings", "b", "{}", "initial bindings in JSON")
	return cmd
}
