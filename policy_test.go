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

package waymirror

import "testing"

func TestDefaultPolicyValidates(t *testing.T) {
	if err := DefaultPolicy().Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestPolicyValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Policy)
		wantErr bool
	}{
		{
			name:   "empty modes are allowed",
			mutate: func(p *Policy) { p.ExternalLinks = ""; p.WWW = "" },
		},
		{
			name:    "invalid external-link mode",
			mutate:  func(p *Policy) { p.ExternalLinks = "obliterate" },
			wantErr: true,
		},
		{
			name:    "invalid www mode",
			mutate:  func(p *Policy) { p.WWW = "maybe" },
			wantErr: true,
		},
		{
			name:    "negative document budget",
			mutate:  func(p *Policy) { p.MaxDocuments = -1 },
			wantErr: true,
		},
		{
			name:    "missing output dir",
			mutate:  func(p *Policy) { p.OutputDir = "" },
			wantErr: true,
		},
		{
			name:   "zero budget means unlimited",
			mutate: func(p *Policy) { p.MaxDocuments = 0 },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultPolicy()
			tt.mutate(p)
			err := p.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
