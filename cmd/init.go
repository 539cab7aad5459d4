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
	"os"
	"path"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/cogment/cogment-pack/templates"
	"github.com/cogment/cogment-pack/version"
)

const projectTemplatesDir = "/templates/project"

// Files that can't be stored under their final name in the templates directory.
var renamedTemplateFiles = map[string]string{
	"gitignore": ".gitignore",
	"env":       ".env",
}

type initTemplateData struct {
	ProjectName string
	CliVersion  string
}

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init DESTINATION",
	Short: "Scaffold a new project in the destination directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dst := args[0]
		if err := runInitCmd(appFs, dst); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Project created in %s\n\n", color.CyanString(dst))
		fmt.Fprintf(cmd.OutOrStdout(), "  cd %s\n  npm install\n  cogment-pack serve\n", dst)
		return nil
	},
}

func runInitCmd(fs afero.Fs, dst string) error {
	if _, err := fs.Stat(dst); err == nil {
		return fmt.Errorf("destination %q already exists", dst)
	} else if !errors.Is(err, os.ErrNotExist) {
		return err
	}

	absDst, err := filepath.Abs(dst)
	if err != nil {
		return err
	}
	config := initTemplateData{
		ProjectName: path.Base(filepath.ToSlash(absDst)),
		CliVersion:  version.CliVersion,
	}
	logger.Debugf("generating %q in %q", config.ProjectName, dst)
	if err := templates.RecursivelyGenerateFromTemplates(fs, projectTemplatesDir, nil, config, dst); err != nil {
		return err
	}

	for from, to := range renamedTemplateFiles {
		if err := fs.Rename(filepath.Join(dst, from), filepath.Join(dst, to)); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	return nil
}

func init() {
	rootCmd.AddCommand(initCmd)
}
