// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package dispatch

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/jontk/distsched/internal/task"
	distschederrors "github.com/jontk/distsched/pkg/errors"
)

// catalogEntry mirrors one profile definition in a --profile-catalog YAML
// file: the encode parameters a dispatcher's --mix flag selects by name.
type catalogEntry struct {
	Name       string            `yaml:"name"`
	Scale      string            `yaml:"scale"`
	Codec      string            `yaml:"codec"`
	Preset     string            `yaml:"preset"`
	Quality    int               `yaml:"quality"`
	ThreadCaps int               `yaml:"thread_caps"`
	Extras     map[string]string `yaml:"extras"`
}

// LoadCatalog reads a YAML profile catalog from path, keyed by profile name.
func LoadCatalog(path string) (map[string]task.Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, distschederrors.NewWithCause(distschederrors.ErrorCodeUnknown, "reading profile catalog", err)
	}

	var entries []catalogEntry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, distschederrors.NewWithCause(distschederrors.ErrorCodeUnknown, "parsing profile catalog", err)
	}

	out := make(map[string]task.Profile, len(entries))
	for _, e := range entries {
		out[e.Name] = task.Profile{
			Name:       e.Name,
			Scale:      e.Scale,
			Codec:      e.Codec,
			Preset:     e.Preset,
			Quality:    e.Quality,
			ThreadCaps: e.ThreadCaps,
			Extras:     e.Extras,
		}
	}
	return out, nil
}
