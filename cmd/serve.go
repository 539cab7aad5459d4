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
	"net"
	"net/http"
	"os"
	"os/signal"
	"path"
	"strconv"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/cogment/cogment-pack/api"
	"github.com/cogment/cogment-pack/devserver"
	"github.com/cogment/cogment-pack/pipeline"
	"github.com/cogment/cogment-pack/project"
)

const (
	serveCacheSize       = 512
	serveShutdownTimeout = 5 * time.Second
	serveMode            = "development"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the project in development mode, rebuilding it when sources change",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		p, err := project.Load(appFs, ProjectDir, serveMode)
		if err != nil {
			return err
		}
		cache, err := pipeline.NewTransformCache(serveCacheSize)
		if err != nil {
			return err
		}
		orchestrator, err := newOrchestrator(p, cache)
		if err != nil {
			return err
		}

		options := createServeOptions(cmd.Flags(), p.Config.DevServer)
		server, err := devserver.New(orchestrator, options)
		if err != nil {
			return err
		}
		defer server.Destroy()
		server.SetReloader(func() (*pipeline.Orchestrator, error) {
			p, err := project.Load(appFs, ProjectDir, serveMode)
			if err != nil {
				return nil, err
			}
			return newOrchestrator(p, cache)
		}, api.DefaultConfigFilename, p.Config.Env.File, p.Config.Env.File+"."+serveMode)

		if build, err := server.Rebuild(ctx); err != nil {
			printError(cmd.ErrOrStderr(), err)
		} else {
			printReport(cmd.OutOrStdout(), build)
		}

		watcher, err := devserver.NewWatcher(server, ProjectDir, []string{"node_modules", path.Base(p.Config.Output.Path)})
		if err != nil {
			return err
		}
		go func() {
			if err := watcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Errorf("watcher stopped: %v", err)
			}
		}()

		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), serveShutdownTimeout)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				logger.Warnf("unable to shutdown the dev server: %v", err)
			}
		}()

		displayHost := options.Host
		if displayHost == "" || displayHost == "0.0.0.0" {
			displayHost = "localhost"
		}
		address := net.JoinHostPort(displayHost, strconv.Itoa(options.Port))
		fmt.Fprintf(cmd.OutOrStdout(), "\nApp running at %s\n", color.CyanString("http://%s", address))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	},
}

// createServeOptions applies the command line flags over the configured dev server options.
func createServeOptions(flags *pflag.FlagSet, config api.DevServerConfig) devserver.Options {
	options := devserver.Options{
		Host:            config.Host,
		Port:            config.Port,
		HistoryFallback: config.HistoryFallback(),
	}
	if host, err := flags.GetString("host"); err == nil && flags.Changed("host") {
		options.Host = host
	}
	if port, err := flags.GetInt("port"); err == nil && flags.Changed("port") {
		options.Port = port
	}
	return options
}

func init() {
	serveCmd.Flags().String("host", "", "host the dev server listens on, overrides the configured one")
	serveCmd.Flags().Int("port", 0, "port the dev server listens on, overrides the configured one")
	rootCmd.AddCommand(serveCmd)
}
