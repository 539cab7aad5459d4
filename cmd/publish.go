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
	"strconv"

	"github.com/go-resty/resty/v2"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/cogment/cogment-pack/api"
	"github.com/cogment/cogment-pack/backend"
	"github.com/cogment/cogment-pack/backend/remote"
	"github.com/cogment/cogment-pack/backend/s3"
	"github.com/cogment/cogment-pack/deployment"
	"github.com/cogment/cogment-pack/helper"
	"github.com/cogment/cogment-pack/pipeline"
	"github.com/cogment/cogment-pack/project"
)

const defaultVersionLength = 12

type publishOptions struct {
	App     string
	Version string
	Mode    string
}

var publishCmdOptions publishOptions

// publishCmd represents the publish command
var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Build the project and upload its artifacts to the current remote",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		options := publishCmdOptions
		if options.App == "" {
			options.App = helper.CurrentConfig("app")
		}

		var store backend.Backend
		var client *resty.Client
		var err error
		switch helper.CurrentConfig("type") {
		case "s3":
			store, err = s3.CreateBackend(s3ConfigFromRemote())
		default:
			if options.App == "" {
				return errors.New("no application to publish to, use --app or add an `app` to the current remote")
			}
			client, err = deployment.PlatformClient(Verbose)
			if err != nil {
				return err
			}
			store, err = remote.CreateBackend(client, options.App)
		}
		if err != nil {
			return err
		}
		defer store.Destroy()

		release, build, err := runPublishCmd(cmd.Context(), appFs, ProjectDir, options, store, client)
		if err != nil {
			return err
		}
		printReport(cmd.OutOrStdout(), build)
		fmt.Fprintf(cmd.OutOrStdout(), "\nPublished version %q of %q\n", release.Version, release.Application)
		return nil
	},
}

func s3ConfigFromRemote() s3.Config {
	useSSL, err := strconv.ParseBool(helper.CurrentConfig("use_ssl"))
	if err != nil {
		useSSL = true
	}
	return s3.Config{
		Endpoint:  helper.CurrentConfig("endpoint"),
		Region:    helper.CurrentConfig("region"),
		AccessKey: helper.CurrentConfig("access_key"),
		SecretKey: helper.CurrentConfig("secret_key"),
		Bucket:    helper.CurrentConfig("bucket"),
		Prefix:    helper.CurrentConfig("prefix"),
		UseSSL:    useSSL,
	}
}

// defaultVersion derives a version from the html document, which references every hashed script.
func defaultVersion(build *pipeline.Build) string {
	for _, artifact := range build.Artifacts {
		if artifact.Kind == pipeline.ArtifactDocument {
			return pipeline.ContentHash(artifact.Content)[:defaultVersionLength]
		}
	}
	return ""
}

// runPublishCmd builds the project and uploads its artifacts to the store, the release is posted
// through the client once every artifact is uploaded. The store isn't cleaned so that clients of
// the previous release keep finding their hashed artifacts.
func runPublishCmd(ctx context.Context, fs afero.Fs, root string, options publishOptions, store backend.Backend, client *resty.Client) (*api.Release, *pipeline.Build, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	p, err := project.Load(fs, root, options.Mode)
	if err != nil {
		return nil, nil, err
	}
	orchestrator, err := newOrchestrator(p, nil)
	if err != nil {
		return nil, nil, err
	}
	build, err := orchestrator.Build(ctx)
	if err != nil {
		return nil, nil, err
	}

	version := options.Version
	if version == "" {
		version = defaultVersion(build)
	}
	release := deployment.CreateReleaseFromBuild(options.App, version, build)

	logger.Debugf("uploading %d artifacts", len(build.Artifacts))
	if err := deployment.Upload(ctx, store, build.Artifacts, p.Config.Concurrency); err != nil {
		return nil, nil, err
	}
	if client == nil {
		return release, build, nil
	}
	posted, err := deployment.PostRelease(client, release)
	if err != nil {
		return nil, nil, fmt.Errorf("artifacts uploaded but the release couldn't be registered: %w", err)
	}
	return posted, build, nil
}

func init() {
	publishCmd.Flags().StringVar(&publishCmdOptions.App, "app", "", "application to publish to, defaults to the `app` of the current remote")
	publishCmd.Flags().StringVar(&publishCmdOptions.Version, "version", "", "version of the release, defaults to a hash of the html document")
	publishCmd.Flags().StringVar(&publishCmdOptions.Mode, "mode", "", "build mode, production or development")
	rootCmd.AddCommand(publishCmd)
}
