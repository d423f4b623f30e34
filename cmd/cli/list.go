// Copyright 2025 Agentic World, LLC (Sherin Thomas)
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
	"flag"
	"fmt"

	"github.com/agentberlin/waymirror/internal/store"
)

func runList(args []string) error {
	if len(args) < 1 {
		printListUsage()
		return fmt.Errorf("list requires a subcommand: runs or resources")
	}

	switch args[0] {
	case "runs":
		return listRuns()
	case "resources":
		return listResources(args[1:])
	default:
		printListUsage()
		return fmt.Errorf("unknown list subcommand: %s", args[0])
	}
}

func listRuns() error {
	st, err := store.NewStore()
	if err != nil {
		return fmt.Errorf("failed to open manifest database: %v", err)
	}
	defer st.Close()

	runs, err := st.GetAllRuns()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No runs recorded yet.")
		return nil
	}

	fmt.Printf("%-5s %-30s %-16s %-8s %-8s %-8s %s\n",
		"ID", "SITE", "SNAPSHOT", "PAGES", "ASSETS", "FAILED", "OUTPUT")
	for _, r := range runs {
		fmt.Printf("%-5d %-30s %-16s %-8d %-8d %-8d %s\n",
			r.ID, truncate(r.SiteHost, 30), r.SnapshotTimestamp, r.Pages, r.Assets, r.Failed, r.OutputDir)
	}
	return nil
}

func listResources(args []string) error {
	fs := flag.NewFlagSet("list resources", flag.ExitOnError)
	runID := fs.Uint("run-id", 0, "Run ID to list resources for")
	failedOnly := fs.Bool("failed", false, "Show only failed resources")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *runID == 0 {
		return fmt.Errorf("--run-id is required")
	}

	st, err := store.NewStore()
	if err != nil {
		return fmt.Errorf("failed to open manifest database: %v", err)
	}
	defer st.Close()

	resources, err := st.GetRunResources(uint(*runID))
	if err != nil {
		return err
	}

	shown := 0
	for _, r := range resources {
		if *failedOnly && r.State != "failed" {
			continue
		}
		shown++
		if r.State == "failed" {
			marker := ""
			if r.Corrupted {
				marker = " [corrupted]"
			}
			fmt.Printf("FAIL%s  %s  (%s)\n", marker, r.FetchURL, r.Error)
			continue
		}
		fmt.Printf("%-12s %-9d %s -> %s\n", r.Kind, r.SizeBytes, truncate(r.FetchURL, 60), r.LocalPath)
	}
	if shown == 0 {
		fmt.Println("Nothing to show.")
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

func printListUsage() {
	fmt.Println(`Usage:
  waymirror list runs
  waymirror list resources --run-id <id> [--failed]`)
}
