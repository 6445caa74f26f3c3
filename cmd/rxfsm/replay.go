package main

import (
	"encoding/json"
	"fmt"

	"github.com/Comcast/rxfsm/core"
	"github.com/Comcast/rxfsm/journal"

	"github.com/spf13/cobra"
)

func newReplayCmd(root *rootOpts) *cobra.Command {
	var (
		filename string
		machine  string
	)
	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay a journaled machine",
		Long: `Replay steps a machine through the inputs recorded in a journal and
writes each step as a JSON line.  Without --machine, replay lists the
journaled machines.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if filename == "" {
				return fmt.Errorf("need a journal (--journal)")
			}
			j, err := journal.Open(filename)
			if err != nil {
				return err
			}
			defer j.Close()

			if machine == "" {
				ms, err := j.Machines()
				if err != nil {
					return err
				}
				for _, m := range ms {
					fmt.Fprintln(out, m)
				}
				return nil
			}

			s, err := root.load()
			if err != nil {
				return err
			}
			m, err := s.Compile(nil)
			if err != nil {
				return err
			}
			table, err := m.Table()
			if err != nil {
				return err
			}
			inputs, err := j.Inputs(machine)
			if err != nil {
				return fmt.Errorf("machine %s: %w", machine, err)
			}

			strides, st, err := core.Replay(table, m.Settings, inputs)
			enc := json.NewEncoder(out)
			for _, stride := range strides {
				if err := enc.Encode(stride); err != nil {
					return err
				}
			}
			if err != nil {
				return err
			}
			return enc.Encode(st)
		},
	}
	cmd.Flags().StringVar(&filename, "journal", "", "journal file")
	cmd.Flags().StringVar(&machine, "machine", "", "machine id")
	return cmd
}
