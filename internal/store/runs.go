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

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// CreateRun records the start of a mirror run.
func (s *Store) CreateRun(seedURL, siteHost, snapshotTimestamp, outputDir string) (*Run, error) {
	run := Run{
		SeedURL:           seedURL,
		SiteHost:          siteHost,
		SnapshotTimestamp: snapshotTimestamp,
		OutputDir:         outputDir,
	}

	if err := s.db.Create(&run).Error; err != nil {
		return nil, fmt.Errorf("failed to create run: %v", err)
	}

	return &run, nil
}

// CompleteRun stores the final statistics of a run.
func (s *Store) CompleteRun(runID uint, durationMs int64, pages, assets, failed int, cancelled bool) error {
	return s.db.Model(&Run{}).Where("id = ?", runID).Updates(map[string]interface{}{
		"duration_ms": durationMs,
		"pages":       pages,
		"assets":      assets,
		"failed":      failed,
		"cancelled":   cancelled,
	}).Error
}

// GetRunByID gets a run by ID.
func (s *Store) GetRunByID(id uint) (*Run, error) {
	var run Run
	if result := s.db.First(&run, id); result.Error != nil {
		return nil, fmt.Errorf("failed to get run: %v", result.Error)
	}
	return &run, nil
}

// GetAllRuns returns every recorded run, newest first.
func (s *Store) GetAllRuns() ([]Run, error) {
	var runs []Run
	if result := s.db.Order("created_at DESC").Find(&runs); result.Error != nil {
		return nil, fmt.Errorf("failed to get runs: %v", result.Error)
	}
	return runs, nil
}

// GetLatestRun returns the most recent run for a site host, or nil if the
// host was never mirrored.
func (s *Store) GetLatestRun(siteHost string) (*Run, error) {
	var run Run
	result := s.db.Where("site_host = ?", siteHost).Order("created_at DESC").First(&run)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest run: %v", result.Error)
	}
	return &run, nil
}

// SaveResource upserts one resource outcome for a run.
func (s *Store) SaveResource(runID uint, r *MirroredResource) error {
	r.RunID = runID
	err := s.db.Where("run_id = ? AND canonical_url = ?", runID, r.CanonicalURL).
		Assign(map[string]interface{}{
			"fetch_url":          r.FetchURL,
			"state":              r.State,
			"kind":               r.Kind,
			"local_path":         r.LocalPath,
			"snapshot_timestamp": r.SnapshotTimestamp,
			"size_bytes":         r.SizeBytes,
			"error":              r.Error,
			"corrupted":          r.Corrupted,
		}).
		FirstOrCreate(&MirroredResource{}, MirroredResource{RunID: runID, CanonicalURL: r.CanonicalURL}).Error
	if err != nil {
		return fmt.Errorf("failed to save resource: %v", err)
	}
	return nil
}

// GetRunResources returns a run's resources in insertion order.
func (s *Store) GetRunResources(runID uint) ([]MirroredResource, error) {
	var resources []MirroredResource
	if result := s.db.Where("run_id = ?", runID).Order("id ASC").Find(&resources); result.Error != nil {
		return nil, fmt.Errorf("failed to get run resources: %v", result.Error)
	}
	return resources, nil
}

// DeleteRun removes a run and its resources.
func (s *Store) DeleteRun(runID uint) error {
	if err := s.db.Where("run_id = ?", runID).Delete(&MirroredResource{}).Error; err != nil {
		return fmt.Errorf("failed to delete run resources: %v", err)
	}
	return s.db.Delete(&Run{}, runID).Error
}
