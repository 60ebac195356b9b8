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

// Package server exposes the ingestion pipeline, import history, problems and
// similarity search as a JSON HTTP API.
//
// Uploaded files are written below the upload directory in a directory named
// by a random UUID and removed once the request finishes. Every request gets
// its own ingestion.Importer rooted at the upload directory.
//
// Errors are reported as {"code": <http status>, "message": ..., "details": ...}.
package server
