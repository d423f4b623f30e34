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

package store

// Run represents one mirror run from a single snapshot wrapper URL.
type Run struct {
	ID uint `gorm:"primaryKey"`
	// SeedURL is the wrapper URL the run started from
	SeedURL string `gorm:"not null"`
	// SiteHost is the mirrored site's canonical host
	SiteHost string `gorm:"index;not null"`
	// SnapshotTimestamp is the 14-digit primary timestamp
	SnapshotTimestamp string `gorm:"not null"`
	// OutputDir is where the mirror was materialized
	OutputDir string `gorm:"not null"`
	// DurationMs is the run's wall-clock duration in milliseconds
	DurationMs int64
	Pages      int
	Assets     int
	Failed     int
	// Cancelled records whether the run was interrupted
	Cancelled bool
	CreatedAt int64 `gorm:"autoCreateTime"`
	UpdatedAt int64 `gorm:"autoUpdateTime"`
}

// MirroredResource is one resource outcome within a run.
type MirroredResource struct {
	ID    uint `gorm:"primaryKey"`
	RunID uint `gorm:"index;not null"`
	// CanonicalURL is the deduplication identity
	CanonicalURL string `gorm:"column:canonical_url;not null"`
	// FetchURL is the URL the snapshot was requested for
	FetchURL string
	// State is the terminal lifecycle state ("materialized" or "failed")
	State string
	// Kind is the classified media kind
	Kind string
	// LocalPath is the mirror-relative output path
	LocalPath string
	// SnapshotTimestamp is the capture the payload came from
	SnapshotTimestamp string
	// SizeBytes is the materialized payload size
	SizeBytes int
	// Error holds the failure reason for failed resources
	Error string
	// Corrupted marks payloads that did not match their expected kind
	Corrupted bool
	Run       *Run  `gorm:"foreignKey:RunID;constraint:OnDelete:CASCADE"`
	CreatedAt int64 `gorm:"autoCreateTime"`
}
