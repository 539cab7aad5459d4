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
	"fmt"
	"os"
	"path"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/cogment/cogment-pack/helper"
	"github.com/cogment/cogment-pack/pipeline"
	"github.com/cogment/cogment-pack/project"
)

var Verbose bool

// ProjectDir is the root of the project the commands work on.
var ProjectDir string

// appFs is the filesystem projects are read from and built into.
var appFs = afero.NewOsFs()

// newOrchestrator creates the orchestrator building a loaded project.
var newOrchestrator = func(p *project.Project, cache *pipeline.TransformCache) (*pipeline.Orchestrator, error) {
	return p.NewOrchestrator(cache)
}

var logger = helper.GetSugarLogger([]string{"cmd"})

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:           "cogment-pack",
	Short:         "Build front-end projects into browser deployable artifacts",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		helper.SetVerbose(Verbose)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		printError(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&helper.CfgFile, "config", "", "config file (default is $HOME/.cogment-pack.yaml)")

	rootCmd.PersistentFlags().BoolVarP(&Verbose, "verbose", "v", false, "verbose output")

	rootCmd.PersistentFlags().StringVarP(&ProjectDir, "project", "p", ".", "project root directory")

	rootCmd.PersistentFlags().String("remote", "", "publish remote, as defined in the config file")
	helper.CheckError(viper.BindPFlag("remote", rootCmd.PersistentFlags().Lookup("remote")))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	configName := ".cogment-pack"

	if helper.CfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(helper.CfgFile)
	} else {
		// Find home directory.
		home, err := homedir.Dir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}

		// Search config in home directory with name ".cogment-pack" (without extension).
		viper.AddConfigPath(home)
		viper.SetConfigName(configName)
		viper.SetConfigType("yaml")

		helper.CfgFile = path.Join(home, configName+".yaml")
	}

	viper.SetEnvPrefix("pack")
	viper.AutomaticEnv() // read in environment variables that match

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err != nil {
		logger.Debugf("no config file loaded: %v", err)
		return
	}
	logger.Debugf("using config file %q", viper.ConfigFileUsed())
}
