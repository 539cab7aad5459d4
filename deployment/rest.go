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

package deployment

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"

	"github.com/cogment/cogment-pack/api"
	"github.com/cogment/cogment-pack/helper"
)

// PlatformClient creates a client for the platform of the current remote.
func PlatformClient(verbose bool) (*resty.Client, error) {
	baseURL := helper.CurrentConfig("url")
	token := helper.CurrentConfig("token")

	if baseURL == "" {
		return nil, errors.New("API URL is not defined, add a `url` to the current remote in the configuration file")
	}

	client := resty.New()
	client.SetBaseURL(baseURL)
	client.SetHeader("Authorization", "Token "+token)
	client.SetDebug(verbose)

	return client, nil
}

// PostRelease registers a release once its artifacts are uploaded.
func PostRelease(client *resty.Client, release *api.Release) (*api.Release, error) {
	resp, err := client.R().
		SetBody(release).
		SetResult(&api.Release{}).
		Post(fmt.Sprintf("/applications/%s/releases", release.Application))
	if err != nil {
		return nil, err
	}

	if http.StatusNotFound == resp.StatusCode() {
		return nil, fmt.Errorf("%s", "Application not found")
	}

	if resp.IsSuccess() {
		return resp.Result().(*api.Release), nil
	}

	return nil, fmt.Errorf("%s", resp.Body())
}
