// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package config

import (
	"runtime/debug"
	"strings"
)

// BuildVersion is the latest tagged release of markerscan.
const BuildVersion string = "v0.1.0"

type buildInfo struct {
	VcsRevision string
	VcsTime     string
	VcsModified bool
}

// Revision formats the VCS state the binary was built from.
func (b *buildInfo) Revision() string {
	if len(b.VcsRevision) < 8 {
		return "unknown"
	}

	s := strings.Split(b.VcsTime, "T")[0] + "-" + b.VcsRevision[:8]
	if b.VcsModified {
		s += "+dirty"
	}

	return s
}

func (b *buildInfo) load() {
	if buildInfo, ok := debug.ReadBuildInfo(); ok {
		b.VcsRevision = getBuildSetting(buildInfo.Settings, "vcs.revision")
		b.VcsTime = getBuildSetting(buildInfo.Settings, "vcs.time")
		b.VcsModified = getBuildSetting(buildInfo.Settings, "vcs.modified") == "true"
	}
}

func getBuildSetting(settings []debug.BuildSetting, key string) string {
	for _, kv := range settings {
		if key == kv.Key {
			return kv.Value
		}
	}

	return ""
}

// Version describes the running binary, e.g. "v0.1.0 (2025-01-02-abcdef12)".
func Version() string {
	var b buildInfo
	b.load()

	return BuildVersion + " (" + b.Revision() + ")"
}
