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

package runtime

// RUNTIME_JS bootstraps the module registry shared by every chunk of a page.
const RUNTIME_JS = `(function (global) {
  "use strict";
  var definitions = {};
  var cache = {};

  function load(id) {
    var cached = cache[id];
    if (cached) {
      return cached.exports;
    }
    var definition = definitions[id];
    if (!definition) {
      throw new Error("{{.Name}}: module " + id + " is not defined, check the chunks loading order");
    }
    var module = (cache[id] = { id: id, exports: {} });
    definition.factory.call(module.exports, module, module.exports, function (specifier) {
      var dependency = definition.deps[specifier];
      if (dependency === undefined) {
        throw new Error("{{.Name}}: cannot find module '" + specifier + "' from " + id);
      }
      return load(dependency);
    });
    return module.exports;
  }

  global.{{.DefineFn}} = function (id, deps, factory) {
    if (!definitions[id]) {
      definitions[id] = { deps: deps, factory: factory };
    }
  };
  global.{{.StartFn}} = function (id) {
    return load(id);
  };
})(typeof self !== "undefined" ? self : this);
`
