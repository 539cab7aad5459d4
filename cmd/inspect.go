// Copyright 2021 Artificial Intelligence Redefined <dev+cogment@ai-r.com>
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cmd

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ryanuber/columnize"
	"github.com/spf13/cobra"

	"github.com/cogment/cogment-pack/api"
	"github.com/cogment/cogment-pack/pipeline"
	"github.com/cogment/cogment-pack/project"
)

var inspectMode string

// inspectCmd represents the inspect command
var inspectCmd = &cobra.Command{
	Use:   "inspect [PATH...]",
	Short: "Show how the modules of the project are classified and chunked",
	Long: `Show how the modules of the project are classified and chunked.

Without arguments every module reachable from the entries is listed in link order, the given
paths are otherwise looked up in the module graph and classified when they aren't part of it.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := project.Load(appFs, ProjectDir, inspectMode)
		if err != nil {
			return err
		}
		orchestrator, err := newOrchestrator(p, nil)
		if err != nil {
			return err
		}
		build, err := orchestrator.Build(cmd.Context())
		if err != nil {
			return err
		}
		return printInspection(cmd.OutOrStdout(), build, orchestrator.Rules, args)
	},
}

func printInspection(w io.Writer, build *pipeline.Build, rules pipeline.RuleSet, paths []string) error {
	if len(paths) == 0 {
		paths = build.Order
	}

	output := []string{"MODULE|RULE|KIND|CHUNK|ID"}
	for _, modulePath := range paths {
		modulePath = api.NormalizePath(modulePath)
		if module, found := build.Modules[modulePath]; found {
			row := []string{module.Path, module.Rule, module.Output.Kind.String(), module.Chunk, module.ID}
			output = append(output, strings.Join(row, "|"))
			continue
		}

		rule, err := rules.Classify(modulePath)
		var unclassified *pipeline.UnclassifiedAssetError
		switch {
		case errors.As(err, &unclassified):
			output = append(output, strings.Join([]string{modulePath, "unclassified", "-", "-", "-"}, "|"))
		case err != nil:
			return err
		default:
			output = append(output, strings.Join([]string{modulePath, rule.Name, "-", "-", "-"}, "|"))
		}
	}
	fmt.Fprintln(w, columnize.SimpleFormat(output))
	return nil
}

func init() {
	inspectCmd.Flags().StringVar(&inspectMode, "mode", "", "build mode, production or development")
	rootCmd.AddCommand(inspectCmd)
}
