/* Copyright 2019 Comcast Cable Communications Management, LLC
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 * http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Command rxfsm runs machine definitions and generates documentation
// for them.
//
//	rxfsm run -f turnstile.yaml --io std
//	rxfsm graph -f turnstile.yaml --format dot | dot -Tpng > g.png
//	rxfsm replay -f turnstile.yaml --journal j.db --machine ID
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/Comcast/rxfsm/spec"
	"github.com/Comcast/rxfsm/util"

	"github.com/spf13/cobra"
)

type rootOpts struct {
	logLevel string
	filename string
}

func (o *rootOpts) logger() *slog.Logger {
	return util.NewLogger(util.ParseLevel(o.logLevel))
}

func (o *rootOpts) load() (*spec.Spec, error) {
	if o.filename == "" {
		return nil, fmt.Errorf("need a machine definition (-f)")
	}
	return spec.Load(o.filename)
}

func newRootCmd() *cobra.Command {
	o := &rootOpts{}
	root := &cobra.Command{
		Use:           "rxfsm",
		Short:         "rxfsm runs reactive state machines",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&o.logLevel, "log-level", "info", "debug, info, warn or error")
	root.PersistentFlags().StringVarP(&o.filename, "file", "f", "", "machine definition (YAML)")

	root.AddCommand(
		newRunCmd(o),
		newGraphCmd(o),
		newHTMLCmd(o),
		newAnalyzeCmd(o),
		newReplayCmd(o),
		newExpectCmd(o),
		newMatchCmd(),
	)
	return root
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
