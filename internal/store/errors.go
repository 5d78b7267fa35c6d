// glasirsync - Faroese school timetable synchronization service
// Copyright 2026 The glasirsync Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/glasirsync/glasirsync

package store

import (
	"io"

	"github.com/glasirsync/glasirsync/internal/logging"
)

// closeWithLog closes a resource and logs any error. Use this where the
// close happens while another error is already being returned to the
// caller, so the close failure would otherwise vanish.
func closeWithLog(closer io.Closer, resourceType string) {
	if closer == nil {
		return
	}
	if err := closer.Close(); err != nil {
		logging.Warn().Str("type", resourceType).Err(err).Msg("failed to close resource")
	}
}
