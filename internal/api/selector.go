// glasirsync - Faroese school timetable synchronization service
// Copyright 2026 The glasirsync Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/glasirsync/glasirsync

package api

import (
	"fmt"

	"github.com/goccy/go-json"

	"github.com/glasirsync/glasirsync/internal/orchestrator"
)

// selectorBody accepts the sync endpoints' polymorphic "offsets" field:
// either a JSON array of ints or one of the symbolic strings "all" /
// "current_forward".
type selectorBody struct {
	Offsets []int
	Symbol  string
}

func (s *selectorBody) UnmarshalJSON(data []byte) error {
	var asSymbol string
	if err := json.Unmarshal(data, &asSymbol); err == nil {
		switch asSymbol {
		case orchestrator.SymbolAll, orchestrator.SymbolCurrentForward:
			s.Symbol = asSymbol
			return nil
		default:
			return fmt.Errorf("unrecognized selector symbol %q", asSymbol)
		}
	}

	var asOffsets []int
	if err := json.Unmarshal(data, &asOffsets); err != nil {
		return fmt.Errorf("offsets must be an array of integers or a selector symbol: %w", err)
	}
	s.Offsets = asOffsets
	return nil
}

func (s selectorBody) toSelector() orchestrator.Selector {
	return orchestrator.Selector{Offsets: s.Offsets, Symbol: s.Symbol}
}
