package main

import (
	"errors"
	"fmt"

	"github.com/Comcast/rxfsm/core"
	"github.com/Comcast/rxfsm/tools"

	"github.com/spf13/cobra"
)

func newExpectCmd(root *rootOpts) *cobra.Command {
	var session string
	cmd := &cobra.Command{
		Use:   "expect",
		Short: "Check a machine against a session of inputs and expected outputs",
		RunE: func(cmd *cobra.Command, args []string) error {
			if session == "" {
				return errors.New("need a session (-s)")
			}
			log := root.logger()
			ss, err := tools.LoadSession(session)
			if err != nil {
				return err
			}
			ss.Logger = log

			s, err := root.load()
			if err != nil {
				return err
			}
			m, err := s.Compile(nil)
			if err != nil {
				return err
			}
			c, err := m.Make(core.WithLogger(log))
			if err != nil {
				return err
			}
			if err = ss.Run(cmd.Context(), c, nil); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d ios passed\n", len(ss.IOs))
			return nil
		},
	}
	cmd.Flags().StringVarP(&session, "session", "s", "", "session file (YAML)")
	return cmd
}
