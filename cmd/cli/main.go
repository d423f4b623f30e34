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

// Waymirror CLI
//
// Command-line interface for reconstructing a browsable local mirror of a
// website from a Wayback Machine snapshot URL.
//
// Usage:
//
//	waymirror <command> [flags]
//
// Commands:
//
//	mirror    Mirror a site from a snapshot wrapper URL
//	list      List past runs or a run's resources
//	version   Show version information
package main

import (
	"fmt"
	"os"

	"github.com/agentberlin/waymirror/internal/version"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "mirror":
		if err := runMirror(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "list":
		if err := runList(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "version", "-v", "--version":
		fmt.Printf("waymirror %s\n", version.CurrentVersion)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`waymirror - rebuild a browsable site from a Wayback Machine snapshot

Usage:
  waymirror <command> [flags]

Commands:
  mirror    Mirror a site from a snapshot wrapper URL
  list      List past runs or a run's resources
  version   Show version information
  help      Show this help message

Examples:
  # Mirror a snapshot into ./output
  waymirror mirror https://web.archive.org/web/20080101000000/http://example.com/

  # Mirror with an output directory and a document cap
  waymirror mirror https://web.archive.org/web/20080101000000/http://example.com/ \
    -o ./example-mirror --max-documents 200

  # Configure through a .env file instead of flags
  waymirror mirror --env-file ./.env

  # List everything mirrored so far
  waymirror list runs

  # Inspect one run
  waymirror list resources --run-id 3

Use "waymirror <command> --help" for more information about a command.`)
}
