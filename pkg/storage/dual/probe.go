// Copyright 2025 Author(s) of TaskMig
// SPDX-License-Identifier: Apache-2.0

package dual

import (
	"context"
	"time"

	"github.com/taskmig/core/pkg/storage"
)

// probeGrace bounds the wall-clock wait for a probe whose driver ignores
// context cancellation.
const probeGrace = 250 * time.Millisecond

// probeBoth runs one liveness probe per store concurrently on the shared
// pool. Each probe is bounded by PingTimeout; the aggregate latency is the
// max of the two, not the sum. Probes never return errors, only booleans.
func (r *Repository) probeBoth(ctx context.Context) (primaryOK, secondaryOK bool) {
	primaryCh := r.submitProbe(ctx, storePrimary, r.primary, r.cfg.SkipPrimaryProbe)
	secondaryCh := r.submitProbe(ctx, storeSecondary, r.secondary, false)
	return <-primaryCh, <-secondaryCh
}

func (r *Repository) submitProbe(ctx context.Context, store string, repo storage.TaskRepository, skip bool) <-chan bool {
	ch := make(chan bool, 1)

	if skip {
		r.logger.Debug("probe skipped", "store", store, "reason", "local file-backed engine")
		ch <- true
		return ch
	}

	t := r.pool.SubmitErr(func() error {
		pctx, cancel := context.WithTimeout(ctx, r.cfg.PingTimeout)
		defer cancel()
		return repo.Ping(pctx)
	})

	go func() {
		var ok bool
		select {
		case <-t.Done():
			err := t.Wait()
			ok = err == nil
			if err != nil {
				r.logger.Warn("probe failed", "store", store, "error", err)
			} else {
				r.logger.Debug("probe succeeded", "store", store)
			}
		case <-time.After(r.cfg.PingTimeout + probeGrace):
			r.logger.Warn("probe timed out", "store", store, "timeout", r.cfg.PingTimeout)
		}
		ch <- ok
	}()

	return ch
}
