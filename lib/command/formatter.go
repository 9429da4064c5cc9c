// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/patchbay-dev/patchbay/lib/schema"
)

// Exister reports whether a path exists. It is the formatter's only
// window onto the filesystem.
type Exister func(path string) bool

// OSExister checks the real filesystem without following a final
// symlink, so a dangling link still counts as present.
func OSExister(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

// Locator resolves tool names to local paths. Implemented by tool
// storage.
type Locator interface {
	Path(name string) (string, bool)
}

// ToolNames are the file names of the tools in tool storage.
type ToolNames struct {
	// Rewriter adds load commands to Mach-O binaries (insert_dylib).
	Rewriter string

	// Optool is the alternate rewriter selected by profiles that set
	// UseOptool.
	Optool string

	// Library is the shared library to insert.
	Library string

	// Keygen is the key generator helper.
	Keygen string
}

// Required returns the names of every file in tool storage a run for
// profile reads, so a missing one is caught before anything runs.
func (n ToolNames) Required(profile schema.TargetProfile) []string {
	var required []string
	if !profile.ScriptOnly || len(profile.HelperDaemons.Values()) > 0 {
		required = append(required, n.rewriterFor(profile), n.Library)
	}
	if profile.KeygenRequired {
		required = append(required, n.Keygen)
	}
	if profile.Entitlements != "" {
		required = append(required, profile.Entitlements)
	}
	if profile.ExtraScript != "" {
		required = append(required, profile.ExtraScript)
	}
	return required
}

func (n ToolNames) rewriterFor(profile schema.TargetProfile) string {
	if profile.UseOptool {
		return n.Optool
	}
	return n.Rewriter
}

// Formatter builds stage plans for one target.
type Formatter struct {
	Profile schema.TargetProfile
	Target  schema.Target
	Tools   Locator
	Names   ToolNames

	// ComponentIdentifiers are the bundle identifiers of the profile's
	// component bundles, read by the caller from their Info.plists.
	ComponentIdentifiers []string

	// ExtraScriptPath is the locally prepared copy of the profile's
	// extra script. Empty when the profile names none.
	ExtraScriptPath string

	// User is the login name handed to the key generator.
	User string

	// ManifestEditor is the absolute path of the patchbay binary,
	// invoked as root to rewrite SMPrivilegedExecutables entries.
	ManifestEditor string

	// Exists defaults to [OSExister].
	Exists Exister
}

// Paths returns the resolved paths for the formatter's target.
func (f *Formatter) Paths() Paths {
	return ResolvePaths(f.Profile, f.Target)
}

// Plan formats stage for transport. The synthetic start and end
// stages have empty plans.
func (f *Formatter) Plan(stage schema.Stage, transport Transport) Plan {
	builder := planBuilder{
		formatter: f,
		paths:     f.Paths(),
		transport: transport,
		plan:      Plan{Stage: stage},
	}
	switch stage {
	case schema.StageBackup:
		builder.backup()
	case schema.StagePermissionReset:
		builder.permissionReset()
	case schema.StageKeygen:
		builder.keygen()
	case schema.StageLibraryInsertion:
		builder.libraryInsertion()
	case schema.StageReSigning:
		builder.reSigning()
	case schema.StageExtraScript:
		builder.extraScript()
	case schema.StageHelperDaemon:
		builder.helperDaemons()
	case schema.StagePrivacyReset:
		builder.privacyReset()
	}
	return builder.plan
}

// planBuilder accumulates one plan. After fail is called the plan
// holds exactly the failure and further commands are dropped.
type planBuilder struct {
	formatter *Formatter
	paths     Paths
	transport Transport
	plan      Plan
	failed    bool
}

func (b *planBuilder) exists(path string) bool {
	if b.formatter.Exists != nil {
		return b.formatter.Exists(path)
	}
	return OSExister(path)
}

func (b *planBuilder) escape(path string) string {
	return Escape(path, b.transport)
}

func (b *planBuilder) run(format string, args ...any) {
	if !b.failed {
		b.plan.Commands = append(b.plan.Commands, Shell(fmt.Sprintf(format, args...)))
	}
}

func (b *planBuilder) root(format string, args ...any) {
	if !b.failed {
		b.plan.Commands = append(b.plan.Commands, Elevated(fmt.Sprintf(format, args...)))
	}
}

func (b *planBuilder) fail(format string, args ...any) {
	b.plan.Commands = []Command{Fail(fmt.Sprintf(format, args...))}
	b.failed = true
}

func (b *planBuilder) note(format string, args ...any) {
	b.plan.Diagnostics = append(b.plan.Diagnostics, fmt.Sprintf(format, args...))
}

// tool resolves a tool name or fails the plan.
func (b *planBuilder) tool(name string) (string, bool) {
	if b.formatter.Tools != nil {
		if path, ok := b.formatter.Tools.Path(name); ok {
			return path, true
		}
	}
	b.fail("%s is missing from tool storage", name)
	return "", false
}

func (b *planBuilder) backup() {
	source, destination := b.paths.Executable, b.paths.Backup
	if !b.exists(source) {
		b.note("executable %s not found, nothing to back up", source)
		return
	}
	if b.exists(destination) {
		b.note("backup %s already exists", destination)
		return
	}
	b.root("cp %s %s", b.escape(source), b.escape(destination))
}

func (b *planBuilder) permissionReset() {
	bundle := b.escape(b.paths.Bundle)
	b.root("chmod -R u+rwX,go+rX %s", bundle)
	b.root("xattr -cr %s", bundle)
	b.stopProcess(b.paths.Executable)
}

// stopProcess terminates any process running path. The directory goes
// through a variable so the command line of the shell carrying this
// text never contains the full path, which pgrep -f would match.
func (b *planBuilder) stopProcess(path string) {
	directory := b.escape(filepath.Dir(path))
	name := b.escape(filepath.Base(path))
	b.root(`dir=%s; if pgrep -f "$dir"/%s >/dev/null; then pkill -f "$dir"/%s || true; fi`,
		directory, name, name)
}

func (b *planBuilder) keygen() {
	profile := b.formatter.Profile
	if !profile.KeygenRequired {
		return
	}
	keygen, ok := b.tool(b.formatter.Names.Keygen)
	if !ok {
		return
	}
	user := b.formatter.User
	if user == "" {
		b.fail("no login user for the key generator")
		return
	}
	b.run("%s %s %s", b.escape(keygen), b.formatter.Target.Identifier, b.escape(user))
}

// insertion returns the command adding a weak load command for
// library to target. With from set, the pristine copy is read from
// from and the result written over target.
func (b *planBuilder) insertion(rewriter, library, from, target string) string {
	if b.formatter.Profile.UseOptool {
		install := fmt.Sprintf("%s install -c weak -p %s -t %s",
			b.escape(rewriter), b.escape(library), b.escape(target))
		if from == "" {
			return install
		}
		return fmt.Sprintf("cp %s %s && %s", b.escape(from), b.escape(target), install)
	}
	if from == "" {
		return fmt.Sprintf("%s --weak --all-yes --inplace %s %s",
			b.escape(rewriter), b.escape(library), b.escape(target))
	}
	return fmt.Sprintf("%s --weak --all-yes %s %s %s",
		b.escape(rewriter), b.escape(library), b.escape(from), b.escape(target))
}

func (b *planBuilder) libraryInsertion() {
	profile := b.formatter.Profile
	if profile.ScriptOnly {
		b.note("profile only runs its extra script")
		return
	}
	rewriter, ok := b.tool(b.formatter.Names.rewriterFor(profile))
	if !ok {
		return
	}
	library, ok := b.tool(b.formatter.Names.Library)
	if !ok {
		return
	}
	if !b.exists(b.paths.Backup) {
		b.fail("backup %s not found; the backup stage must run first", b.paths.Backup)
		return
	}

	if !profile.NeedsCopyToAppDir {
		b.root("%s", b.insertion(rewriter, library, b.paths.Backup, b.paths.Executable))
		return
	}

	var components []string
	for _, component := range profile.Components {
		executable := b.paths.ComponentExecutable(component)
		if !b.exists(executable) {
			b.fail("component executable %s not found", executable)
			return
		}
		components = append(components, executable)
	}

	link := filepath.Join(b.paths.Bridge, filepath.Base(library))
	b.root("ln -sf %s %s", b.escape(library), b.escape(link))
	b.root("%s", b.insertion(rewriter, link, b.paths.Backup, b.paths.Executable))
	for _, executable := range components {
		b.root("%s", b.insertion(rewriter, link, "", executable))
	}
}

// signCommand returns the ad-hoc codesign prefix, with entitlements
// when the profile names them.
func (b *planBuilder) signCommand(deep bool) (string, bool) {
	sign := "codesign -f -s - --timestamp=none --all-architectures"
	if deep {
		sign += " --deep"
	}
	if name := b.formatter.Profile.Entitlements; name != "" {
		entitlements, ok := b.tool(name)
		if !ok {
			return "", false
		}
		sign += " --entitlements " + b.escape(entitlements)
	}
	return sign, true
}

func (b *planBuilder) reSigning() {
	profile := b.formatter.Profile
	if profile.ScriptOnly {
		return
	}
	sign, ok := b.signCommand(false)
	if !ok {
		return
	}
	if !profile.NoSignTarget {
		b.root("%s %s", sign, b.escape(b.paths.Executable))
	}
	if profile.DeepSignApp {
		bundleSign, _ := b.signCommand(!profile.NoDeep)
		b.root("%s %s", bundleSign, b.escape(b.paths.Bundle))
	}
	if len(b.plan.Commands) == 0 {
		b.note("profile needs no target signature")
	}
}

func (b *planBuilder) extraScript() {
	if b.formatter.Profile.ExtraScript == "" {
		return
	}
	script := b.formatter.ExtraScriptPath
	if script == "" || !b.exists(script) {
		b.fail("extra script %s was not prepared", b.formatter.Profile.ExtraScript)
		return
	}
	b.run("chmod 700 %s", b.escape(script))
	b.root("cd %s && /bin/bash %s", b.escape(filepath.Dir(script)), b.escape(script))
	b.root("xattr -cr %s", b.escape(b.paths.Bundle))
}

func (b *planBuilder) helperDaemons() {
	profile := b.formatter.Profile
	relatives := profile.HelperDaemons.Values()
	if len(relatives) == 0 {
		return
	}
	rewriter, ok := b.tool(b.formatter.Names.rewriterFor(profile))
	if !ok {
		return
	}
	library, ok := b.tool(b.formatter.Names.Library)
	if !ok {
		return
	}
	editor := b.formatter.ManifestEditor
	if editor == "" {
		b.fail("no manifest editor available to rewrite helper authorization")
		return
	}

	var daemons []string
	for _, rel := range relatives {
		daemon := b.paths.Within(rel)
		if !b.exists(daemon) {
			b.fail("helper daemon %s not found", daemon)
			return
		}
		daemons = append(daemons, daemon)
	}

	sign, ok := b.signCommand(false)
	if !ok {
		return
	}
	for _, daemon := range daemons {
		label := filepath.Base(daemon)
		registration := b.escape(filepath.Join(LaunchDaemonsDir, label+".plist"))
		installed := filepath.Join(HelperToolsDir, label)

		b.root("%s", b.insertion(rewriter, library, "", daemon))
		b.root("launchctl bootout system/%s 2>/dev/null || true", label)
		b.stopProcess(installed)
		b.root("rm -f %s %s", registration, b.escape(installed))
		b.root("%s manifest authorize --plist %s --helper %s",
			b.escape(editor), b.escape(b.paths.InfoPlist), label)
		b.root("xattr -c %s", b.escape(daemon))
		b.root("%s %s", sign, b.escape(daemon))
	}
	bundleSign, _ := b.signCommand(!profile.NoDeep)
	b.root("%s %s", bundleSign, b.escape(b.paths.Bundle))
}

func (b *planBuilder) privacyReset() {
	services := b.formatter.Profile.PrivacyServices.Values()
	if len(services) == 0 {
		return
	}
	identifiers := []string{b.formatter.Target.Identifier}
	for _, identifier := range b.formatter.ComponentIdentifiers {
		if identifier != "" && !slices.Contains(identifiers, identifier) {
			identifiers = append(identifiers, identifier)
		}
	}
	for _, service := range services {
		for _, identifier := range identifiers {
			b.run("tccutil reset %s %s", strings.TrimSpace(service), identifier)
		}
	}
}
