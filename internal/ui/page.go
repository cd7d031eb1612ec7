// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ui

import "html/template"

const pageTemplateName = "index.html"

// pageTemplate renders a FormSchema. The script posts the action inputs as
// JSON and writes the result back into the output field.
var pageTemplate = template.Must(template.New(pageTemplateName).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{ .Title }}</title>
<style>
 body { font-family: sans-serif; max-width: 1100px; margin: 2em auto; }
 h1, .subtitle { text-align: center; }
 .columns { display: flex; gap: 2em; }
 .columns > div { flex: 1; }
 label { display: block; margin-top: 1em; font-weight: bold; }
 textarea, input[type=text], select { width: 100%; }
 .error { color: #b00020; }
</style>
</head>
<body>
<h1>{{ .Title }}</h1>
<div class="subtitle">{{ .Subtitle }}</div>
<div class="columns">
<div>
{{ range .Basic }}{{ template "field" . }}{{ end }}
<details><summary>Advanced Options</summary>
{{ range .Advanced }}{{ template "field" . }}{{ end }}
</details>
{{ range .Actions }}<button data-action="{{ .Name }}" data-path="{{ .Path }}" data-output="{{ .Output }}" data-inputs="{{ range $i, $n := .Inputs }}{{ if $i }},{{ end }}{{ $n }}{{ end }}">{{ .Label }}</button>
{{ end }}
<div id="error" class="error"></div>
</div>
<div>
<label for="result_gallery">Generated Video</label>
<video id="result_gallery" controls width="100%"></video>
</div>
</div>
<script>
const numeric = new Set(["sd_steps", "guide_scale", "shift_scale", "seed"]);
function value(name) {
  const checked = document.querySelector('input[name="' + name + '"]:checked');
  const el = checked || document.getElementById(name);
  return numeric.has(name) ? Number(el.value) : el.value;
}
document.querySelectorAll("button[data-action]").forEach(function (b) {
  b.addEventListener("click", async function () {
    const body = {};
    b.dataset.inputs.split(",").forEach(function (n) { body[n] = value(n); });
    document.getElementById("error").textContent = "";
    b.disabled = true;
    try {
      const resp = await fetch(b.dataset.path, {method: "POST", headers: {"Content-Type": "application/json"}, body: JSON.stringify(body)});
      const out = await resp.json();
      if (!resp.ok) { throw new Error(out.error || resp.statusText); }
      if (b.dataset.output === "result_gallery") {
        document.getElementById("result_gallery").src = out.url;
      } else {
        document.getElementById(b.dataset.output).value = out.prompt;
      }
    } catch (e) {
      document.getElementById("error").textContent = e.message;
    } finally {
      b.disabled = false;
    }
  });
});
</script>
</body>
</html>
{{ define "field" }}
<label for="{{ .Name }}">{{ .Label }}</label>
{{ if eq .Kind "textarea" }}<textarea id="{{ .Name }}" rows="3" placeholder="{{ .Placeholder }}"></textarea>
{{ else if eq .Kind "text" }}<input type="text" id="{{ .Name }}" placeholder="{{ .Placeholder }}">
{{ else if eq .Kind "radio" }}{{ $f := . }}{{ range .Choices }}<input type="radio" name="{{ $f.Name }}" value="{{ . }}"{{ if eq . $f.Default }} checked{{ end }}> {{ . }} {{ end }}
{{ else if eq .Kind "dropdown" }}<select id="{{ .Name }}">{{ $f := . }}{{ range .Choices }}<option{{ if eq . $f.Default }} selected{{ end }}>{{ . }}</option>{{ end }}</select>
{{ else if eq .Kind "slider" }}<input type="number" id="{{ .Name }}" min="{{ .Min }}" max="{{ .Max }}" step="{{ .Step }}" value="{{ .Default }}">
{{ end }}{{ end }}`))
