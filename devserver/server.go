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

// Package devserver serves in-memory builds of a project, rebuilding them as its sources change.
package devserver

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/cogment/cogment-pack/backend"
	fsBackend "github.com/cogment/cogment-pack/backend/fs"
	"github.com/cogment/cogment-pack/deployment"
	"github.com/cogment/cogment-pack/helper"
	"github.com/cogment/cogment-pack/pipeline"
	"github.com/cogment/cogment-pack/templates"
	"github.com/cogment/cogment-pack/utils"
)

// LiveReloadPath is the websocket route the live reload client connects to.
const LiveReloadPath = "/__pack/ws"

const (
	EventRebuilt = "rebuilt"
	EventError   = "error"
)

// BuildEvent is pushed to the live reload clients after each build.
type BuildEvent struct {
	Type      string `json:"type"`
	Error     string `json:"error,omitempty"`
	Artifacts int    `json:"artifacts,omitempty"`
	Duration  int64  `json:"durationMs,omitempty"`
}

type Options struct {
	Host string
	Port int
	// HistoryFallback serves the document for unknown routes requested by a browser.
	HistoryFallback bool
}

// Reloader loads the project configuration again and returns the orchestrator building it.
type Reloader func() (*pipeline.Orchestrator, error)

type Server struct {
	http.Server
	orchestrator *pipeline.Orchestrator
	store        backend.Backend
	newStore     func() (backend.Backend, error)
	reloader     Reloader
	configFiles  map[string]bool
	events       utils.ObservableList[BuildEvent]
	options      Options
	document     string
	gin          *gin.Engine
	logger       *zap.SugaredLogger

	buildLock sync.Mutex
	lock      sync.RWMutex
	current   *pipeline.Build
}

// New creates a dev server building with the orchestrator, the live reload client is added to
// the orchestrator's document.
func New(orchestrator *pipeline.Orchestrator, options Options) (*Server, error) {
	if err := addLiveReload(orchestrator); err != nil {
		return nil, err
	}

	store, err := createStore()
	if err != nil {
		return nil, err
	}

	gin.SetMode(gin.ReleaseMode)
	ginEngine := gin.New()

	server := &Server{
		Server: http.Server{
			Addr:    fmt.Sprintf("%s:%d", options.Host, options.Port),
			Handler: ginEngine,
		},
		orchestrator: orchestrator,
		store:        store,
		newStore:     createStore,
		events:       utils.CreateObservableList[BuildEvent](),
		options:      options,
		document:     documentFilename(orchestrator),
		gin:          ginEngine,
		logger:       helper.GetSugarLogger([]string{"devserver"}),
	}

	// Allows all origins
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	ginEngine.Use(cors.New(corsConfig))
	ginEngine.Use(server.loggerMiddleware)
	ginEngine.Use(gin.Recovery())

	ginEngine.GET(LiveReloadPath, server.liveReload)
	ginEngine.NoRoute(server.serveArtifact)

	return server, nil
}

func createStore() (backend.Backend, error) {
	return fsBackend.CreateBackend(afero.NewMemMapFs(), "/serve")
}

func addLiveReload(orchestrator *pipeline.Orchestrator) error {
	liveReload, err := templates.LiveReloadScript(LiveReloadPath)
	if err != nil {
		return err
	}
	orchestrator.Html.InlineScripts = append(orchestrator.Html.InlineScripts, liveReload)
	return nil
}

func documentFilename(orchestrator *pipeline.Orchestrator) string {
	if orchestrator.Html.Filename == "" {
		return "index.html"
	}
	return orchestrator.Html.Filename
}

// SetReloader makes the changes of the given project relative config files reload the project
// before rebuilding it.
func (s *Server) SetReloader(reloader Reloader, configFiles ...string) {
	s.buildLock.Lock()
	defer s.buildLock.Unlock()
	s.reloader = reloader
	s.configFiles = map[string]bool{}
	for _, configFile := range configFiles {
		if configFile != "" {
			s.configFiles[path.Clean(configFile)] = true
		}
	}
}

func (s *Server) isConfigFile(changedPath string) bool {
	s.buildLock.Lock()
	defer s.buildLock.Unlock()
	return s.reloader != nil && s.configFiles[path.Clean(changedPath)]
}

// Reload replaces the orchestrator with a freshly loaded one, the current one is kept on failure.
func (s *Server) Reload() error {
	s.buildLock.Lock()
	defer s.buildLock.Unlock()
	if s.reloader == nil {
		return nil
	}

	orchestrator, err := s.reloader()
	if err != nil {
		s.logger.Errorf("unable to reload the project: %v", err)
		s.events.Append(BuildEvent{Type: EventError, Error: err.Error()}, false)
		return err
	}
	if err := addLiveReload(orchestrator); err != nil {
		return err
	}
	orchestrator.Cache.Purge()

	s.lock.Lock()
	defer s.lock.Unlock()
	s.orchestrator = orchestrator
	s.document = documentFilename(orchestrator)
	s.logger.Info("project configuration reloaded")
	return nil
}

// Orchestrator returns the orchestrator the server currently builds with.
func (s *Server) Orchestrator() *pipeline.Orchestrator {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.orchestrator
}

// Rebuild runs a build and, when it succeeds, swaps the served artifacts. A failed build keeps
// serving the previous artifacts.
func (s *Server) Rebuild(ctx context.Context) (*pipeline.Build, error) {
	s.buildLock.Lock()
	defer s.buildLock.Unlock()

	build, err := s.Orchestrator().Build(ctx)
	if err == nil {
		err = s.publish(ctx, build)
	}
	if err != nil {
		s.logger.Errorf("build failed: %v", err)
		s.events.Append(BuildEvent{Type: EventError, Error: err.Error()}, false)
		return nil, err
	}

	s.logger.Infof("built %d artifacts in %s", len(build.Artifacts), build.Duration.Round(time.Millisecond))
	s.events.Append(BuildEvent{Type: EventRebuilt, Artifacts: len(build.Artifacts), Duration: build.Duration.Milliseconds()}, false)
	return build, nil
}

// publish uploads the build to a new store, the served one is only replaced once the upload
// succeeded.
func (s *Server) publish(ctx context.Context, build *pipeline.Build) error {
	store, err := s.newStore()
	if err != nil {
		return err
	}
	if err := deployment.Upload(ctx, store, build.Artifacts, 0); err != nil {
		store.Destroy()
		return err
	}

	s.lock.Lock()
	previous := s.store
	s.store = store
	s.current = build
	s.lock.Unlock()

	previous.Destroy()
	return nil
}

// Current returns the last successful build.
func (s *Server) Current() *pipeline.Build {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.current
}

// Events lists the build events since the server started.
func (s *Server) Events() utils.ObservableList[BuildEvent] {
	return s.events
}

func (s *Server) Destroy() {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.store.Destroy()
}

func acceptsHTML(request *http.Request) bool {
	return strings.Contains(request.Header.Get("Accept"), "text/html")
}

func (s *Server) serveArtifact(c *gin.Context) {
	if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
		c.AbortWithStatus(http.StatusMethodNotAllowed)
		return
	}

	s.lock.RLock()
	defer s.lock.RUnlock()

	artifactPath := strings.TrimPrefix(c.Request.URL.Path, s.orchestrator.PublicPath)
	if artifactPath == "" || strings.HasSuffix(artifactPath, "/") {
		artifactPath += s.document
	}
	artifact, err := s.store.Get(c.Request.Context(), artifactPath)
	var unknown *backend.UnknownArtifactError
	var invalid *backend.InvalidArtifactPathError
	switch {
	case err == nil:
	case errors.As(err, &unknown) || errors.As(err, &invalid):
		if !s.options.HistoryFallback || !acceptsHTML(c.Request) {
			c.AbortWithStatus(http.StatusNotFound)
			return
		}
		if artifact, err = s.store.Get(c.Request.Context(), s.document); err != nil {
			c.AbortWithStatus(http.StatusNotFound)
			return
		}
	default:
		_ = c.AbortWithError(http.StatusInternalServerError, err)
		return
	}

	c.Header("Cache-Control", backend.RevalidateCacheControl)
	c.Data(http.StatusOK, artifact.ContentType, artifact.Content)
}

func (s *Server) loggerMiddleware(c *gin.Context) {
	method := c.Request.Method
	path := c.Request.URL.Path

	start := time.Now()
	c.Next()
	stop := time.Since(start)

	statusCode := c.Writer.Status()
	logger := s.logger.With(
		"statusCode", statusCode,
		"latency", int(math.Ceil(float64(stop.Nanoseconds())/1000000.0)),
	)

	for _, err := range c.Errors {
		logger.Errorf("[%s] [%s] - %s", method, path, err)
	}
	if statusCode >= http.StatusBadRequest {
		logger.Debugf("[%s] [%s] - %d", method, path, statusCode)
	}
}
