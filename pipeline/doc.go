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

// Package pipeline implements the asset pipeline orchestration policy.
//
// A build starts from the configured entries and walks the module graph. Every reachable module
// is classified by the first matching rule, its transform chain is run stage by stage, and its
// dependencies are resolved and scheduled. Once every module task has completed, modules are
// assigned to chunk groups and linked into content-hashed output artifacts.
package pipeline
