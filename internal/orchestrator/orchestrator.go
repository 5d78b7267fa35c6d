// glasirsync - Faroese school timetable synchronization service
// Copyright 2026 The glasirsync Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/glasirsync/glasirsync

// Package orchestrator fans a week selector out into bounded-concurrency
// runs of the week pipeline and gathers the results into a deterministic,
// sorted outcome with a grouped failure summary.
package orchestrator

import (
	"context"
	"sort"
	"sync"

	"golang.org/x/time/rate"

	"github.com/glasirsync/glasirsync/internal/extractor"
	"github.com/glasirsync/glasirsync/internal/htmlparse"
	"github.com/glasirsync/glasirsync/internal/weekpipeline"
)

// Selector names which offsets to run. Exactly one of Offsets or Symbol
// should be set; Symbol takes precedence when both are present.
type Selector struct {
	Offsets []int
	Symbol  string // "all" or "current_forward"
}

const (
	// SymbolAll runs every offset the upstream's navigation advertises.
	SymbolAll = "all"
	// SymbolCurrentForward keeps only non-negative offsets from SymbolAll.
	SymbolCurrentForward = "current_forward"
)

// Failure is one grouped entry in the orchestrator's failure summary.
type Failure struct {
	Classifier       string
	TruncatedMessage string
	Count            int
	Offsets          []int
}

// Outcome is the gathered result of running a selector: successes sorted
// by week number, and failures grouped by (classifier, truncated message).
type Outcome struct {
	Successes []weekpipeline.Result
	Failures  []Failure
}

const maxMessageLen = 120

// maxFanOut bounds concurrent week-pipeline runs, whether or not a rate
// limiter is supplied; chosen per the spec's suggested fixed fan-out cap.
const maxFanOut = 20

// Run resolves sel against the extractor and runs the week pipeline for
// every resulting offset, at most maxFanOut at a time and, when limiter
// is non-nil, paced by it.
func Run(ctx context.Context, ex *extractor.Extractor, teacherMap map[string]string, sel Selector, limiter *rate.Limiter) Outcome {
	offsets := resolveOffsets(ctx, ex, teacherMap, sel)

	sem := make(chan struct{}, maxFanOut)
	var wg sync.WaitGroup
	results := make([]weekpipeline.Result, len(offsets))
	offsetByIndex := make([]int, len(offsets))

	for i, offset := range offsets {
		wg.Add(1)
		offsetByIndex[i] = offset
		go func(i, offset int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			if limiter != nil {
				if err := limiter.Wait(ctx); err != nil {
					results[i] = weekpipeline.Result{
						Outcome:    weekpipeline.FetchFailed,
						Classifier: "rate_limit_wait_cancelled",
						Message:    err.Error(),
					}
					return
				}
			}
			results[i] = weekpipeline.Run(ctx, ex, offset, teacherMap)
		}(i, offset)
	}
	wg.Wait()

	return gather(results, offsetByIndex)
}

// resolveOffsets turns sel into a concrete offset list. A symbolic
// selector first fetches the offset-0 week page purely to read the
// navigation offsets off it with the week-offset parser; that page is
// discarded here and fetched again by the real fan-out.
func resolveOffsets(ctx context.Context, ex *extractor.Extractor, teacherMap map[string]string, sel Selector) []int {
	if sel.Symbol == "" {
		return sel.Offsets
	}

	probe, err := ex.WeekHTML(ctx, 0)
	if err != nil || probe.StatusCode != 200 {
		return nil
	}

	allOffsets := navigationOffsets(probe.Body)
	if sel.Symbol == SymbolCurrentForward {
		forward := make([]int, 0, len(allOffsets))
		for _, o := range allOffsets {
			if o >= 0 {
				forward = append(forward, o)
			}
		}
		return forward
	}
	return allOffsets
}

func gather(results []weekpipeline.Result, offsets []int) Outcome {
	var outcome Outcome
	failuresByKey := make(map[string]*Failure)
	var order []string

	for i, r := range results {
		switch r.Outcome {
		case weekpipeline.SuccessWithData, weekpipeline.SuccessNoData:
			outcome.Successes = append(outcome.Successes, r)
		default:
			msg := r.Message
			if len(msg) > maxMessageLen {
				msg = msg[:maxMessageLen]
			}
			key := r.Classifier + "\x00" + msg
			f, ok := failuresByKey[key]
			if !ok {
				f = &Failure{Classifier: r.Classifier, TruncatedMessage: msg}
				failuresByKey[key] = f
				order = append(order, key)
			}
			f.Count++
			f.Offsets = append(f.Offsets, offsets[i])
		}
	}

	for _, key := range order {
		outcome.Failures = append(outcome.Failures, *failuresByKey[key])
	}

	sort.SliceStable(outcome.Successes, func(i, j int) bool {
		wi, wj := outcome.Successes[i].Data.WeekInfo.WeekNumber, outcome.Successes[j].Data.WeekInfo.WeekNumber
		if wi == 0 {
			return false
		}
		if wj == 0 {
			return true
		}
		return wi < wj
	})

	return outcome
}

func navigationOffsets(html string) []int {
	result := htmlparse.ParseWeekOffsets(html)
	if !result.IsSuccess() {
		return nil
	}
	return result.Data
}
