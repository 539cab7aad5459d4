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

// STYLE_INJECT_JS adds a stylesheet to the document head when the module is evaluated.
const STYLE_INJECT_JS = `var css = {{.CSS}};
if (typeof document !== "undefined") {
  var style = document.createElement("style");
  style.setAttribute("data-module", {{.Path}});
  style.appendChild(document.createTextNode(css));
  document.head.appendChild(style);
}
module.exports = css;
`
