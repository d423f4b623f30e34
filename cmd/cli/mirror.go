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
	"context"
	"flag"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/agentberlin/waymirror"
	"github.com/agentberlin/waymirror/internal/config"
	"github.com/agentberlin/waymirror/internal/store"
)

// mirrorFlags holds all the flags for the mirror command
type mirrorFlags struct {
	output       string
	envFile      string
	maxDocuments int
	userAgent    string

	respectRobots   bool
	discoverSitemap bool
	optimizeImages  bool
	minifyCSS       bool
	minifyJS        bool

	quiet   bool
	verbose bool
}

func runMirror(args []string) error {
	fs := flag.NewFlagSet("mirror", flag.ExitOnError)

	var flags mirrorFlags

	fs.StringVar(&flags.output, "output", "", "Output directory for the mirror (overrides OUTPUT_DIR)")
	fs.StringVar(&flags.output, "o", "", "Output directory (shorthand)")
	fs.StringVar(&flags.envFile, "env-file", ".env", "Path to a .env configuration file")
	fs.IntVar(&flags.maxDocuments, "max-documents", -1, "Maximum documents to mirror (0 = unlimited)")
	fs.StringVar(&flags.userAgent, "user-agent", "", "Custom User-Agent string")
	fs.StringVar(&flags.userAgent, "A", "", "Custom User-Agent string (shorthand)")
	fs.BoolVar(&flags.respectRobots, "respect-robots", false, "Honor the site's archived robots.txt")
	fs.BoolVar(&flags.discoverSitemap, "sitemap", false, "Seed the crawl from the archived sitemap.xml")
	fs.BoolVar(&flags.optimizeImages, "optimize-images", false, "Re-encode JPEG/PNG payloads when it saves space")
	fs.BoolVar(&flags.minifyCSS, "minify-css", false, "Minify stylesheets")
	fs.BoolVar(&flags.minifyJS, "minify-js", false, "Strip comment lines from scripts")
	fs.BoolVar(&flags.quiet, "quiet", false, "Suppress progress output")
	fs.BoolVar(&flags.quiet, "q", false, "Suppress progress output (shorthand)")
	fs.BoolVar(&flags.verbose, "verbose", false, "Log every mirrored resource")

	fs.Usage = func() {
		fmt.Println(`Usage: waymirror mirror <wrapper-url> [flags]

Mirror a site from a Wayback Machine snapshot URL. The URL argument may be
omitted when WAYBACK_URL is set in the environment or the .env file.

Flags:`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	settings, err := config.Load(flags.envFile)
	if err != nil {
		return err
	}
	policy := settings.Policy

	wrapperURL := settings.WaybackURL
	if fs.NArg() > 0 {
		wrapperURL = fs.Arg(0)
	}
	if wrapperURL == "" {
		fs.Usage()
		return fmt.Errorf("a wrapper URL argument (or WAYBACK_URL) is required")
	}

	// Flag overrides on top of the environment
	if flags.output != "" {
		policy.OutputDir = flags.output
	}
	if flags.maxDocuments >= 0 {
		policy.MaxDocuments = flags.maxDocuments
	}
	if flags.userAgent != "" {
		policy.UserAgent = flags.userAgent
	}
	if flags.respectRobots {
		policy.RespectRobots = true
	}
	if flags.discoverSitemap {
		policy.DiscoverSitemap = true
	}
	if flags.optimizeImages {
		policy.OptimizeImages = true
	}
	if flags.minifyCSS {
		policy.MinifyCSS = true
	}
	if flags.minifyJS {
		policy.MinifyJS = true
	}

	logger := zap.NewNop()
	if !flags.quiet {
		cfg := zap.NewDevelopmentConfig()
		if !flags.verbose {
			cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
		}
		logger, err = cfg.Build()
		if err != nil {
			return fmt.Errorf("failed to build logger: %v", err)
		}
		defer logger.Sync()
	}

	crawler, err := waymirror.NewCrawler(wrapperURL, policy, waymirror.WithLogger(logger))
	if err != nil {
		return err
	}

	st, err := store.NewStore()
	if err != nil {
		return fmt.Errorf("failed to initialize manifest database: %v", err)
	}
	defer st.Close()

	seed, err := waymirror.DecodeWrapper(wrapperURL)
	if err != nil {
		return err
	}
	siteHost := seed.OriginalURL
	if u, err := url.Parse(seed.OriginalURL); err == nil && u.Host != "" {
		siteHost = u.Host
	}
	run, err := st.CreateRun(wrapperURL, siteHost, seed.Timestamp.Format(waymirror.TimestampLayout), policy.OutputDir)
	if err != nil {
		return err
	}

	crawler.SetOnResourceMirrored(func(r *waymirror.ArchivedResource) {
		rec := &store.MirroredResource{
			CanonicalURL:      r.Canonical,
			FetchURL:          r.Fetch,
			State:             string(r.State),
			Kind:              string(r.Kind),
			LocalPath:         r.LocalPath,
			SizeBytes:         r.Size,
			Error:             r.Error,
			Corrupted:         r.Corrupted,
			SnapshotTimestamp: r.Snapshot.Format(waymirror.TimestampLayout),
		}
		if err := st.SaveResource(run.ID, rec); err != nil {
			logger.Warn("manifest write failed", zap.Error(err))
		}
		if !flags.quiet && r.State == waymirror.StateMaterialized {
			fmt.Printf("  %s -> %s\n", r.Fetch, r.LocalPath)
		}
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if !flags.quiet {
		fmt.Printf("Mirroring %s into %s...\n", wrapperURL, policy.OutputDir)
	}

	summary, runErr := crawler.Run(ctx)

	if err := st.CompleteRun(run.ID, summary.Duration.Milliseconds(),
		summary.Pages, summary.Assets, summary.Failed, summary.Cancelled); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to record run stats: %v\n", err)
	}

	if !flags.quiet {
		fmt.Printf("\nMirror complete!\n")
		fmt.Printf("  Pages:               %d\n", summary.Pages)
		fmt.Printf("  Assets:              %d\n", summary.Assets)
		fmt.Printf("  Failed:              %d\n", summary.Failed)
		fmt.Printf("  Duplicate refs:      %d\n", summary.SkippedDuplicates)
		fmt.Printf("  Corrupted suppressed:%d\n", summary.SuppressedCorrupted)
		fmt.Printf("  Duration:            %s\n", summary.Duration.Round(time.Millisecond))
		if summary.Cancelled {
			fmt.Println("  (run was interrupted; the mirror is partial)")
		}
	}

	return runErr
}
