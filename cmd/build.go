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
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	fsBackend "github.com/cogment/cogment-pack/backend/fs"
	"github.com/cogment/cogment-pack/deployment"
	"github.com/cogment/cogment-pack/pipeline"
	"github.com/cogment/cogment-pack/project"
)

type buildOptions struct {
	// OutputDir overrides the configured output directory.
	OutputDir string
	Mode      string
}

var buildCmdOptions buildOptions

// buildCmd represents the build command
var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build the project into its output directory",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		build, outputDir, err := runBuildCmd(cmd.Context(), appFs, ProjectDir, buildCmdOptions)
		if err != nil {
			return err
		}
		printReport(cmd.OutOrStdout(), build)
		fmt.Fprintf(cmd.OutOrStdout(), "\nThe %q directory is ready to be deployed.\n", outputDir)
		return nil
	},
}

// lockOutputDir makes sure a single build writes in the output directory.
func lockOutputDir(fs afero.Fs, outputDir string) (func(), error) {
	lockFilename := path.Clean(outputDir) + ".lock"
	if err := fs.MkdirAll(path.Dir(lockFilename), 0755); err != nil {
		return nil, err
	}
	lockFile, err := fs.OpenFile(lockFilename, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("another build is writing to %q, remove %q if it isn't the case", outputDir, lockFilename)
	}
	if err != nil {
		return nil, err
	}
	_ = lockFile.Close()
	return func() {
		if err := fs.Remove(lockFilename); err != nil {
			logger.Warnf("unable to remove %q: %v", lockFilename, err)
		}
	}, nil
}

// replaceOutputDir swaps the staged directory in place of the output directory, the previous
// output is only removed once the staged one is in place.
func replaceOutputDir(fs afero.Fs, stagingDir string, outputDir string) error {
	previousDir := outputDir + ".previous"
	if err := fs.RemoveAll(previousDir); err != nil {
		return err
	}
	_, err := fs.Stat(outputDir)
	hasPrevious := err == nil
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	if hasPrevious {
		if err := fs.Rename(outputDir, previousDir); err != nil {
			return fmt.Errorf("unable to replace %q: %w", outputDir, err)
		}
	}
	if err := fs.Rename(stagingDir, outputDir); err != nil {
		if hasPrevious {
			if restoreErr := fs.Rename(previousDir, outputDir); restoreErr != nil {
				logger.Errorf("unable to restore %q: %v", outputDir, restoreErr)
			}
		}
		return fmt.Errorf("unable to replace %q: %w", outputDir, err)
	}
	if hasPrevious {
		if err := fs.RemoveAll(previousDir); err != nil {
			logger.Warnf("unable to remove %q: %v", previousDir, err)
		}
	}
	return nil
}

// runBuildCmd builds the project then replaces the output directory. The artifacts are written
// to a sibling staging directory first, nothing changes in the output directory when the build
// or one of the writes fails.
func runBuildCmd(ctx context.Context, fs afero.Fs, root string, options buildOptions) (*pipeline.Build, string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	p, err := project.Load(fs, root, options.Mode)
	if err != nil {
		return nil, "", err
	}
	outputDir := p.OutputDir()
	if options.OutputDir != "" {
		outputDir = path.Clean(filepath.ToSlash(options.OutputDir))
	}
	if err := p.CheckOutputDir(outputDir); err != nil {
		return nil, "", err
	}

	orchestrator, err := newOrchestrator(p, nil)
	if err != nil {
		return nil, "", err
	}
	build, err := orchestrator.Build(ctx)
	if err != nil {
		return nil, "", err
	}

	unlock, err := lockOutputDir(fs, outputDir)
	if err != nil {
		return nil, "", err
	}
	defer unlock()

	stagingDir := outputDir + ".staging"
	if err := fs.RemoveAll(stagingDir); err != nil {
		return nil, "", err
	}
	store, err := fsBackend.CreateBackend(fs, stagingDir)
	if err != nil {
		return nil, "", err
	}
	defer store.Destroy()
	if err := deployment.Upload(ctx, store, build.Artifacts, p.Config.Concurrency); err != nil {
		if removeErr := fs.RemoveAll(stagingDir); removeErr != nil {
			logger.Warnf("unable to remove %q: %v", stagingDir, removeErr)
		}
		return nil, "", err
	}
	if err := replaceOutputDir(fs, stagingDir, outputDir); err != nil {
		return nil, "", err
	}
	return build, outputDir, nil
}

func init() {
	buildCmd.Flags().StringVarP(&buildCmdOptions.OutputDir, "out", "o", "", "output directory, overrides the configured one")
	buildCmd.Flags().StringVar(&buildCmdOptions.Mode, "mode", "", "build mode, production or development")
	rootCmd.AddCommand(buildCmd)
}
