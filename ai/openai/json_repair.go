// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package openai

import "strings"

// repairJSON attempts to fix common JSON formatting issues from LLM responses:
// text around the object, keys missing their opening quote, and trailing commas.
func repairJSON(s string) string {
	s = extractObject(s)
	s = quoteKeys(s)
	return dropTrailingCommas(s)
}

// extractObject keeps the text from the first '{' to the last '}'.
func extractObject(s string) string {
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end < start {
		return s
	}
	return s[start : end+1]
}

// quoteKeys adds the missing opening quote in keys like `, priority":`.
func quoteKeys(s string) string {
	in := []rune(s)
	out := make([]rune, 0, len(in)+16)

	for i := 0; i < len(in); {
		ch := in[i]
		out = append(out, ch)
		i++
		if ch != '{' && ch != ',' {
			continue
		}

		for i < len(in) && (in[i] == ' ' || in[i] == '\n' || in[i] == '\t' || in[i] == '\r') {
			out = append(out, in[i])
			i++
		}
		if i >= len(in) || !isLetter(in[i]) {
			continue
		}

		keyEnd := i
		for keyEnd < len(in) && (isLetter(in[keyEnd]) || in[keyEnd] == '_') {
			keyEnd++
		}
		if keyEnd+1 < len(in) && in[keyEnd] == '"' && in[keyEnd+1] == ':' {
			out = append(out, '"')
		}
		out = append(out, in[i:keyEnd]...)
		i = keyEnd
	}

	return string(out)
}

// dropTrailingCommas removes commas directly before a closing brace or bracket,
// ignoring commas inside strings.
func dropTrailingCommas(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inString, escaped := false, false

	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case escaped:
			escaped = false
		case ch == '\\' && inString:
			escaped = true
		case ch == '"':
			inString = !inString
		case ch == ',' && !inString:
			j := i + 1
			for j < len(s) && (s[j] == ' ' || s[j] == '\n' || s[j] == '\t' || s[j] == '\r') {
				j++
			}
			if j < len(s) && (s[j] == '}' || s[j] == ']') {
				continue
			}
		}
		b.WriteByte(ch)
	}
	return b.String()
}
