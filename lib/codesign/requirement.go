// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package codesign

import (
	"context"
	"errors"
	"fmt"
)

// Requirement is the subset of the code signing requirement language
// patchbay uses: anchor apple generic, a fixed identifier, and a fixed
// leaf organizational unit.
type Requirement struct {
	Identifier         string
	OrganizationalUnit string
}

// String renders the requirement in codesign's requirement language,
// the form the launchd plist and SMPrivilegedExecutables entries carry.
func (r Requirement) String() string {
	return fmt.Sprintf(`anchor apple generic and identifier "%s" and certificate leaf[subject.OU] = "%s"`,
		r.Identifier, r.OrganizationalUnit)
}

// MismatchError describes why an identity failed a requirement.
type MismatchError struct {
	Path   string
	Reason string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("code signature of %s does not satisfy requirement: %s", e.Path, e.Reason)
}

// Validate reports an incomplete requirement. A requirement with an
// empty field would match code signed without it.
func (r Requirement) Validate() error {
	var errs []error
	if r.Identifier == "" {
		errs = append(errs, errors.New("requirement identifier is empty"))
	}
	if r.OrganizationalUnit == "" {
		errs = append(errs, errors.New("requirement organizational unit is empty"))
	}
	return errors.Join(errs...)
}

// Check returns nil only when every part of the requirement holds for
// identity. Otherwise it returns a *MismatchError naming the first part
// that failed.
func (r Requirement) Check(identity Identity) error {
	if err := r.Validate(); err != nil {
		return err
	}
	mismatch := func(format string, args ...any) error {
		return &MismatchError{Path: identity.Path, Reason: fmt.Sprintf(format, args...)}
	}
	switch {
	case !identity.Valid:
		return mismatch("signature is invalid")
	case !identity.AnchorApple():
		return mismatch("certificate chain does not end at %s", AppleRootAuthority)
	case identity.Identifier != r.Identifier:
		return mismatch("identifier %q, want %q", identity.Identifier, r.Identifier)
	case identity.TeamIdentifier != r.OrganizationalUnit:
		return mismatch("organizational unit %q, want %q", identity.TeamIdentifier, r.OrganizationalUnit)
	}
	return nil
}

// Verify resolves path and checks it in one step.
func (r Requirement) Verify(ctx context.Context, resolver Resolver, path string) error {
	identity, err := resolver.Resolve(ctx, path)
	if err != nil {
		return err
	}
	return r.Check(identity)
}
