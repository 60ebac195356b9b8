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

// Package ai provides abstractions for the AI services used by equiptrack.
//
// Three services are defined:
//
//   - Embedder: generates vector embeddings for the similarity index
//   - Classifier: analyses a problem and suggests categories and a priority
//   - DesignAdvisor: turns a design query and similar past problems into advice
//
// AIProvider bundles the three so they share configuration.
//
// # Implementation Packages
//
//   - ai/openai: OpenAI-compatible services through langchaingo
//   - ai/mock: deterministic services for tests and offline use
//
// Production constructors return interface types. Mock constructors return
// concrete types so tests can inject behaviour and inspect call counts.
//
// # Categories
//
// ProblemCategories and SolutionCategories are the fixed classification
// tables. ExtractCategories maps any free analysis text onto them by keyword,
// and is the fallback whenever a service answers in an unexpected shape.
//
// # Usage Example
//
//	cfg := ai.NewConfig(ai.WithHost("http://localhost:11434"))
//	provider, err := openai.NewProvider(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	result, err := provider.Classifier().Classify(ctx, ai.ClassificationRequest{
//	    Title:       "Bearing overheats",
//	    Description: "Temperature exceeds 90C after two hours",
//	})
package ai
