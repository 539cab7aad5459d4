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
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/ryanuber/columnize"

	"github.com/cogment/cogment-pack/pipeline"
)

var colorize = []func(format string, a ...interface{}) string{
	color.GreenString,
	color.CyanString,
	color.YellowString,
	color.MagentaString,
	color.BlueString,
	color.RedString,
}

// chunkColors assigns a stable color to each chunk of a build, in chunk order.
func chunkColors(build *pipeline.Build) map[string]func(format string, a ...interface{}) string {
	colors := map[string]func(format string, a ...interface{}) string{}
	for idx, chunk := range build.Chunks {
		colors[chunk.Name] = colorize[idx%len(colorize)]
	}
	return colors
}

func printReport(w io.Writer, build *pipeline.Build) {
	colors := chunkColors(build)

	var output []string
	row := []string{"ASSET", "CHUNK", "KIND", "SIZE"}
	output = append(output, strings.Join(row, "|"))

	var total uint64
	for _, artifact := range build.Artifacts {
		chunk := artifact.Chunk
		if colorFn, found := colors[chunk]; found {
			chunk = colorFn("%s", chunk)
		}
		if chunk == "" {
			chunk = "-"
		}
		size := uint64(len(artifact.Content))
		total += size
		row := []string{artifact.Path, chunk, artifact.Kind.String(), humanize.Bytes(size)}
		output = append(output, strings.Join(row, "|"))
	}
	fmt.Fprintln(w, columnize.SimpleFormat(output))
	fmt.Fprintf(w, "\n%s %d artifacts, %s, built in %s\n",
		color.New(color.BgGreen, color.FgBlack).Sprint(" DONE "),
		len(build.Artifacts),
		humanize.Bytes(total),
		build.Duration.Round(time.Millisecond),
	)
}

// printError reports a build failure, the way front-end tool chains do it.
func printError(w io.Writer, err error) {
	badge := color.New(color.BgRed, color.FgWhite).Sprint(" ERROR ")

	var unclassified *pipeline.UnclassifiedAssetError
	var transformErr *pipeline.TransformError
	var conflict *pipeline.OutputConflictError
	var unresolved *pipeline.UnresolvedImportError
	switch {
	case errors.As(err, &transformErr):
		fmt.Fprintf(w, "%s Failed to compile %s\n\n", badge, color.New(color.Bold).Sprint(transformErr.Path))
		fmt.Fprintf(w, "Stage %q (#%d) of rule %q failed:\n", transformErr.Stage, transformErr.Index, transformErr.Rule)
		fmt.Fprintln(w, transformErr.Cause)
	case errors.As(err, &unclassified):
		fmt.Fprintf(w, "%s No rule matches %s\n", badge, color.New(color.Bold).Sprint(unclassified.Path))
		if unclassified.Importer != "" {
			fmt.Fprintf(w, "\nImported by %s, add a rule handling this kind of file to pack.yaml.\n", unclassified.Importer)
		}
	case errors.As(err, &unresolved):
		fmt.Fprintf(w, "%s Module not found: can't resolve %q in %s\n", badge, unresolved.Specifier, unresolved.Importer)
		if unresolved.Cause != nil {
			fmt.Fprintf(w, "\n%v\n", unresolved.Cause)
		}
	case errors.As(err, &conflict):
		fmt.Fprintf(w, "%s Conflicting outputs at %s\n\n", badge, color.New(color.Bold).Sprint(conflict.Path))
		fmt.Fprintf(w, "Produced with different contents by %s, add a [hash] to the naming pattern.\n", strings.Join(conflict.Sources, " and "))
	default:
		fmt.Fprintf(w, "%s %v\n", badge, err)
	}
}
