// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package schema defines the data model shared by every Patchbay
// component: the declarative [TargetProfile] describing how to modify
// one installed application, the discovered [Target] itself, the fixed
// [Stage] enumeration, and the observable [RunStatus] that the
// pipeline publishes while it works.
//
// Profile fields that the upstream configuration encodes as "either a
// string or a list" are modeled as [MultiString], decided at decode
// time. Privacy services, which arrive as either a boolean or a list,
// are modeled as [PrivacyServices].
//
// [RunStatus.Apply] owns the record update rule: a record is appended
// the first time its stage is touched and updated in place afterwards,
// and overall progress is the mean over recorded stages only.
//
// This package depends on no other Patchbay packages.
package schema
