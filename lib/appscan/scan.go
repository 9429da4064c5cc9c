// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package appscan

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
	"howett.net/plist"

	"github.com/patchbay-dev/patchbay/lib/schema"
)

// DefaultRoots are the directories scanned when none are configured.
var DefaultRoots = []string{"/Applications", "/Applications/Setapp"}

// suiteFolderPrefix names folders that hold several bundles.
const suiteFolderPrefix = "Adobe"

// infoPlist is the subset of Info.plist keys patchbay reads.
type infoPlist struct {
	Identifier   string `plist:"CFBundleIdentifier"`
	Name         string `plist:"CFBundleName"`
	DisplayName  string `plist:"CFBundleDisplayName"`
	Executable   string `plist:"CFBundleExecutable"`
	ShortVersion string `plist:"CFBundleShortVersionString"`
	Build        string `plist:"CFBundleVersion"`
	IconFile     string `plist:"CFBundleIconFile"`
	IconName     string `plist:"CFBundleIconName"`
}

// Scanner finds targets.
type Scanner struct {
	// Roots defaults to DefaultRoots.
	Roots []string

	// Extra are bundle paths read in addition to the roots, such as
	// the locations named by profiles for bundles nested inside other
	// bundles.
	Extra []string

	// Concurrency bounds parallel Info.plist reads. Defaults to 8.
	Concurrency int

	Logger *slog.Logger
}

// Scan returns every readable bundle, one per identifier, sorted by
// name. When two bundles share an identifier the one found in a later
// root wins; Extra bundles win over all roots.
func (s Scanner) Scan(ctx context.Context) ([]schema.Target, error) {
	logger := s.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	roots := s.Roots
	if len(roots) == 0 {
		roots = DefaultRoots
	}

	var candidates []string
	for _, root := range roots {
		found, err := bundlesIn(root)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, found...)
	}
	candidates = append(candidates, s.Extra...)

	concurrency := s.Concurrency
	if concurrency <= 0 {
		concurrency = 8
	}
	results := make([]*schema.Target, len(candidates))
	group, groupContext := errgroup.WithContext(ctx)
	group.SetLimit(concurrency)
	for index, bundle := range candidates {
		group.Go(func() error {
			if err := groupContext.Err(); err != nil {
				return err
			}
			target, err := ReadBundle(bundle)
			if err != nil {
				logger.Debug("skipping bundle", "path", bundle, "error", err)
				return nil
			}
			results[index] = &target
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	byIdentifier := make(map[string]schema.Target)
	for _, target := range results {
		if target != nil {
			byIdentifier[target.Identifier] = *target
		}
	}
	targets := make([]schema.Target, 0, len(byIdentifier))
	for _, target := range byIdentifier {
		targets = append(targets, target)
	}
	slices.SortFunc(targets, func(a, b schema.Target) int {
		return cmp.Or(
			cmp.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name)),
			cmp.Compare(a.Identifier, b.Identifier),
		)
	})
	return targets, nil
}

// bundlesIn lists candidate bundles under root. A missing root yields
// nothing.
func bundlesIn(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing %s: %w", root, err)
	}

	var bundles []string
	for _, entry := range entries {
		path := filepath.Join(root, entry.Name())
		if strings.HasPrefix(entry.Name(), suiteFolderPrefix) && !isBundleName(entry.Name()) {
			nested, err := os.ReadDir(path)
			if err != nil {
				continue
			}
			for _, child := range nested {
				bundles = append(bundles, filepath.Join(path, child.Name()))
			}
			continue
		}
		bundles = append(bundles, path)
	}
	return bundles, nil
}

func isBundleName(name string) bool {
	return strings.HasSuffix(name, ".app")
}

// ReadBundle reads the target described by bundle's Info.plist.
func ReadBundle(bundle string) (schema.Target, error) {
	info, err := readInfo(bundle)
	if err != nil {
		return schema.Target{}, err
	}
	if info.Identifier == "" {
		return schema.Target{}, fmt.Errorf("%s has no CFBundleIdentifier", bundle)
	}
	if info.Executable == "" {
		return schema.Target{}, fmt.Errorf("%s has no CFBundleExecutable", bundle)
	}

	name := cmp.Or(info.Name, info.DisplayName, strings.TrimSuffix(filepath.Base(bundle), ".app"))
	target := schema.Target{
		Identifier:     info.Identifier,
		Name:           name,
		Version:        cmp.Or(info.ShortVersion, info.Build),
		Build:          info.Build,
		ExecutableName: info.Executable,
		BundlePath:     filepath.Clean(bundle),
	}
	if icon := cmp.Or(info.IconFile, info.IconName); icon != "" {
		if filepath.Ext(icon) == "" {
			icon += ".icns"
		}
		target.IconPath = filepath.Join(bundle, "Contents", "Resources", icon)
	}
	return target, nil
}

// ReadIdentifier returns the CFBundleIdentifier of bundle.
func ReadIdentifier(bundle string) (string, error) {
	info, err := readInfo(bundle)
	if err != nil {
		return "", err
	}
	if info.Identifier == "" {
		return "", fmt.Errorf("%s has no CFBundleIdentifier", bundle)
	}
	return info.Identifier, nil
}

// ComponentIdentifiers reads the identifiers of nested bundles given
// relative to bundle. Components that cannot be read are skipped and
// returned in missing.
func ComponentIdentifiers(bundle string, components []string) (identifiers, missing []string) {
	for _, component := range components {
		identifier, err := ReadIdentifier(filepath.Join(bundle, strings.TrimLeft(component, "/")))
		if err != nil {
			missing = append(missing, component)
			continue
		}
		identifiers = append(identifiers, identifier)
	}
	return identifiers, missing
}

func readInfo(bundle string) (infoPlist, error) {
	path := filepath.Join(bundle, "Contents", "Info.plist")
	data, err := os.ReadFile(path)
	if err != nil {
		return infoPlist{}, fmt.Errorf("reading %s: %w", path, err)
	}
	var info infoPlist
	if _, err := plist.Unmarshal(data, &info); err != nil {
		return infoPlist{}, fmt.Errorf("decoding %s: %w", path, err)
	}
	return info, nil
}

// Index maps identifiers to targets.
type Index struct {
	mu      sync.RWMutex
	targets map[string]schema.Target
	order   []string
}

// NewIndex builds an index over targets.
func NewIndex(targets []schema.Target) *Index {
	index := &Index{}
	index.Replace(targets)
	return index
}

// Replace swaps the indexed targets.
func (i *Index) Replace(targets []schema.Target) {
	byIdentifier := make(map[string]schema.Target, len(targets))
	order := make([]string, 0, len(targets))
	for _, target := range targets {
		if _, seen := byIdentifier[target.Identifier]; !seen {
			order = append(order, target.Identifier)
		}
		byIdentifier[target.Identifier] = target
	}
	i.mu.Lock()
	i.targets = byIdentifier
	i.order = order
	i.mu.Unlock()
}

// Lookup returns the target with identifier.
func (i *Index) Lookup(identifier string) (schema.Target, bool) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	target, ok := i.targets[identifier]
	return target, ok
}

// Targets returns every target in index order.
func (i *Index) Targets() []schema.Target {
	i.mu.RLock()
	defer i.mu.RUnlock()
	targets := make([]schema.Target, 0, len(i.order))
	for _, identifier := range i.order {
		targets = append(targets, i.targets[identifier])
	}
	return targets
}
