// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package profile

import (
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"

	"github.com/patchbay-dev/patchbay/lib/schema"
)

// catalogFile is the on-disk layout.
type catalogFile struct {
	Project    string  `json:"project"`
	Author     string  `json:"Author"`
	Version    float64 `json:"Version"`
	BasePublic struct {
		BridgeFile string `json:"bridgeFile"`
	} `json:"basePublicConfig"`
	AppList []appEntry `json:"AppList"`
}

type appEntry struct {
	PackageName      schema.MultiString     `json:"packageName"`
	AppBaseLocate    string                 `json:"appBaseLocate"`
	BridgeFile       string                 `json:"bridgeFile"`
	InjectFile       string                 `json:"injectFile"`
	NeedCopyToAppDir bool                   `json:"needCopyToAppDir"`
	NoSignTarget     bool                   `json:"noSignTarget"`
	AutoHandleHelper bool                   `json:"autoHandleHelper"`
	HelperFile       schema.MultiString     `json:"helperFile"`
	Tccutil          schema.PrivacyServices `json:"tccutil"`
	OnlyScript       bool                   `json:"onlysh"`
	ExtraShell       string                 `json:"extraShell"`
	ComponentApp     []string               `json:"componentApp"`
	DeepSignApp      bool                   `json:"deepSignApp"`
	NoDeep           bool                   `json:"noDeep"`
	Entitlements     string                 `json:"entitlements"`
	UseOptool        bool                   `json:"useOptool"`
	AutoHandleSetapp bool                   `json:"autoHandleSetapp"`
	Keygen           bool                   `json:"keygen"`
	Caveat           string                 `json:"caveat"`
}

// Catalog is a parsed profile file. It is immutable.
type Catalog struct {
	Project string
	Author  string
	Version float64

	profiles []schema.TargetProfile
	byID     map[string]int
}

// Parse decodes a catalog.
func Parse(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := json.Unmarshal(jsonc.ToJSON(data), &file); err != nil {
		return nil, fmt.Errorf("parsing profile catalog: %w", err)
	}

	catalog := &Catalog{
		Project: file.Project,
		Author:  file.Author,
		Version: file.Version,
		byID:    make(map[string]int),
	}
	for index, entry := range file.AppList {
		identifiers := entry.PackageName.Values()
		if len(identifiers) == 0 {
			return nil, fmt.Errorf("AppList[%d]: packageName is empty", index)
		}
		for _, identifier := range identifiers {
			if _, duplicate := catalog.byID[identifier]; duplicate {
				continue
			}
			catalog.byID[identifier] = len(catalog.profiles)
			catalog.profiles = append(catalog.profiles, entry.profile(identifier, file.BasePublic.BridgeFile))
		}
	}
	return catalog, nil
}

// ReadFile reads and parses the catalog at path.
func ReadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	catalog, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return catalog, nil
}

// profile converts one entry for one identifier.
func (e appEntry) profile(identifier, defaultBridge string) schema.TargetProfile {
	bridge := e.BridgeFile
	if bridge == "" {
		bridge = defaultBridge
	}
	profile := schema.TargetProfile{
		Identifier:        identifier,
		BundleLocation:    filepath.Clean(e.AppBaseLocate),
		BridgePath:        strings.Trim(bridge, "/"),
		Components:        e.ComponentApp,
		NeedsCopyToAppDir: e.NeedCopyToAppDir,
		NoSignTarget:      e.NoSignTarget,
		DeepSignApp:       e.DeepSignApp,
		NoDeep:            e.NoDeep,
		AutoHandleSetapp:  e.AutoHandleSetapp,
		KeygenRequired:    e.Keygen,
		UseOptool:         e.UseOptool,
		ScriptOnly:        e.OnlyScript,
		Entitlements:      e.Entitlements,
		ExtraScript:       e.ExtraShell,
		PrivacyServices:   e.Tccutil,
		Caveat:            e.Caveat,
	}
	if e.AppBaseLocate == "" {
		profile.BundleLocation = ""
	}
	if e.AutoHandleHelper {
		profile.HelperDaemons = e.HelperFile
	}
	// injectFile names a file inside the bridge directory unless it is
	// already a bundle-relative path.
	if e.InjectFile != "" {
		inject := strings.TrimLeft(e.InjectFile, "/")
		if strings.HasPrefix(inject, "Contents/") || profile.BridgePath == "" {
			profile.ExecutablePath = inject
		} else {
			profile.ExecutablePath = path.Join(profile.BridgePath, inject)
		}
	}
	return profile
}

// Profiles returns every profile in file order.
func (c *Catalog) Profiles() []schema.TargetProfile {
	return append([]schema.TargetProfile(nil), c.profiles...)
}

// Profile returns the profile for a bundle identifier.
func (c *Catalog) Profile(identifier string) (schema.TargetProfile, bool) {
	index, ok := c.byID[identifier]
	if !ok {
		return schema.TargetProfile{}, false
	}
	return c.profiles[index], true
}

// IsSupported reports whether identifier has a profile.
func (c *Catalog) IsSupported(identifier string) bool {
	_, ok := c.byID[identifier]
	return ok
}

// Resolve returns the profile for target, matching by identifier
// first and then by bundle location. A location match is returned with
// the target's identifier.
func (c *Catalog) Resolve(target schema.Target) (schema.TargetProfile, bool) {
	if profile, ok := c.Profile(target.Identifier); ok {
		return profile, true
	}
	bundle := filepath.Clean(target.BundlePath)
	for _, profile := range c.profiles {
		if profile.BundleLocation != "" && profile.BundleLocation == bundle {
			profile.Identifier = target.Identifier
			return profile, true
		}
	}
	return schema.TargetProfile{}, false
}

// BundleLocations returns the distinct declared bundle locations, for
// discovering bundles outside the scanned roots.
func (c *Catalog) BundleLocations() []string {
	seen := make(map[string]bool)
	var locations []string
	for _, profile := range c.profiles {
		if profile.BundleLocation == "" || seen[profile.BundleLocation] {
			continue
		}
		seen[profile.BundleLocation] = true
		locations = append(locations, profile.BundleLocation)
	}
	return locations
}
