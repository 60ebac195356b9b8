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

// Package search retrieves historically similar problems and turns them into
// design advice.
//
// FindSimilar runs a semantic query against the similarity index, hydrates
// the hits from the relational store and ranks them by similarity plus a
// boost for problems containing every query word verbatim. SuggestDesign
// hands the closest problems to a DesignAdvisor and falls back to a fixed
// checklist when the advisor is unavailable.
package search
