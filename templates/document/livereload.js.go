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

package document

// LIVERELOAD_JS reloads the page when the dev server reports a successful rebuild.
const LIVERELOAD_JS = `(function () {
  var protocol = location.protocol === "https:" ? "wss:" : "ws:";
  function connect() {
    var socket = new WebSocket(protocol + "//" + location.host + "{{.Path}}");
    socket.onmessage = function (event) {
      var message = JSON.parse(event.data);
      if (message.type === "rebuilt") {
        location.reload();
      } else if (message.type === "error") {
        console.error("[{{.Name}}] " + message.error);
      }
    };
    socket.onclose = function () {
      setTimeout(connect, 1000);
    };
  }
  connect();
})();
`
