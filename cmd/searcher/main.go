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

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/poiesic/equiptrack"
	"github.com/poiesic/equiptrack/config"
	"github.com/poiesic/equiptrack/core"
)

func init() {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	slog.SetDefault(slog.New(handler))
}

func main() {
	cfg, err := config.Load(os.Getenv(config.EnvPrefix + "_CONFIG"))
	if err != nil {
		panic(err)
	}
	app, err := equiptrack.NewApp(cfg)
	if err != nil {
		panic(err)
	}
	defer app.Close()
	searcher, err := app.NewSearcher()
	if err != nil {
		panic(err)
	}

	ctx := context.Background()
	var results []*core.ProblemMatch
	if len(os.Args) > 1 {
		results, err = searcher.FindSimilar(ctx, strings.Join(os.Args[1:], " "), 5)
	} else {
		results, err = searcher.FindSimilar(ctx, "pump overheating", 5)
	}
	if err != nil {
		panic(err)
	}

	fmt.Printf("Found %d hits\n", len(results))
	for i, hit := range results {
		fmt.Printf("%d: '%s' (%d)[%0.3f] %s\n", i, hit.Problem.Title, hit.Problem.Id, hit.Score, hit.EquipmentTypeName)
	}
}
