package syncer

import (
	"context"
	"time"

	"github.com/dkeller/fieldops/internal/remote"
	"github.com/dkeller/fieldops/internal/store"
)

// Pull fetches the remote snapshot and merges with local-wins policy: a
// remote work order is adopted only when its number is absent from the cache,
// so only an empty cache is ever populated wholesale from the sheet. This is
// a deliberate simplification, not conflict resolution — concurrent edits
// from two clients are not reconciled, last push wins.
func (e *Engine) Pull(ctx context.Context) error {
	e.setSyncing(true)
	defer e.setSyncing(false)
	return e.pull(ctx)
}

// Push sends the full local snapshot to the sheet.
func (e *Engine) Push(ctx context.Context) error {
	e.setSyncing(true)
	defer e.setSyncing(false)
	return e.push(ctx)
}

func (e *Engine) setSyncing(v bool) {
	e.stateMu.Lock()
	e.syncing = v
	e.stateMu.Unlock()
}

func (e *Engine) pull(ctx context.Context) error {
	resp, err := e.client.GetAll(ctx)
	if err != nil {
		e.logger.Warn("pull failed", "error", err)
		return err
	}

	existing := make(map[string]bool)
	local, err := e.store.ListWorkOrders()
	if err != nil {
		return err
	}
	for _, wo := range local {
		existing[wo.WONumber] = true
	}

	var adopted []store.WorkOrder
	for _, wire := range resp.WorkOrders {
		if wire.WONumber == "" || existing[wire.WONumber] {
			continue
		}
		adopted = append(adopted, fromWireOrder(wire))
	}
	if len(adopted) > 0 {
		if err := e.store.PutWorkOrders(adopted); err != nil {
			return err
		}
		for _, wo := range adopted {
			ps, ok := resp.ProgressData[wo.WONumber]
			if !ok || len(ps.Items) == 0 {
				continue
			}
			if err := e.store.PutProgressItems(wo.WONumber, fromWireProgress(ps.Items)); err != nil {
				return err
			}
			e.summaries.Invalidate(wo.WONumber)
		}
	}

	if err := e.store.SetLastSync(time.Now()); err != nil {
		return err
	}
	e.logger.Info("pull complete", "remote", len(resp.WorkOrders), "adopted", len(adopted))
	return nil
}

func (e *Engine) push(ctx context.Context) error {
	orders, err := e.store.ListWorkOrders()
	if err != nil {
		return err
	}
	if len(orders) == 0 {
		return nil
	}

	payload := make([]remote.WorkOrder, 0, len(orders))
	for _, wo := range orders {
		payload = append(payload, toWireOrder(wo))
	}

	result, err := e.client.SaveWorkOrders(ctx, payload)
	if err != nil {
		for _, wo := range orders {
			e.markPending(store.PendingWorkOrder, wo.WONumber)
		}
		e.logger.Warn("push failed, queued for retry", "orders", len(orders), "error", err)
		return err
	}

	for _, wo := range orders {
		e.clearPending(store.PendingWorkOrder, wo.WONumber)
	}
	if err := e.store.SetLastSync(time.Now()); err != nil {
		return err
	}
	e.logger.Info("push complete",
		"added", result.Added, "updated", result.Updated, "total", result.Total)

	// Retry progress writes that failed earlier.
	for _, id := range e.pendingProgressIDs() {
		if err := e.pushProgress(ctx, id); err != nil {
			e.logger.Warn("pending progress retry failed", "wo_number", id, "error", err)
		}
	}
	return nil
}

// UpdateProgress writes the record to the cache synchronously — the local
// write always lands first — then attempts the remote write in the
// background with the usual pending-retry behavior.
func (e *Engine) UpdateProgress(ctx context.Context, woNumber string, rec store.ProgressRecord) error {
	if rec.ModifiedBy == "" {
		rec.ModifiedBy = e.store.GetSetting(store.SettingOperatorName, "")
	}
	if err := e.store.PutProgress(woNumber, rec); err != nil {
		return err
	}
	e.summaries.Invalidate(woNumber)

	go func() {
		pushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
		defer cancel()
		if err := e.pushProgress(pushCtx, woNumber); err != nil {
			e.logger.Warn("progress push failed, queued for retry",
				"wo_number", woNumber, "error", err)
		}
	}()
	return nil
}

// PushProgress sends all cached progress for one work order to the sheet.
// Failure adds the work order to the pending set; success removes it.
func (e *Engine) PushProgress(ctx context.Context, woNumber string) error {
	return e.pushProgress(ctx, woNumber)
}

func (e *Engine) pushProgress(ctx context.Context, woNumber string) error {
	records, err := e.store.ListProgress(woNumber)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		e.clearPending(store.PendingProgress, woNumber)
		return nil
	}

	if _, err := e.client.UpdateProgress(ctx, woNumber, toWireProgress(records)); err != nil {
		e.markPending(store.PendingProgress, woNumber)
		return err
	}
	e.clearPending(store.PendingProgress, woNumber)
	return nil
}

// DeleteWorkOrder removes the order locally and best-effort remotely. The
// local delete is what the dashboard renders from; a failed remote delete is
// logged and retried on the next full push cycle implicitly by absence.
func (e *Engine) DeleteWorkOrder(ctx context.Context, woNumber string) error {
	if err := e.store.DeleteWorkOrder(woNumber); err != nil {
		return err
	}
	e.summaries.Invalidate(woNumber)
	e.clearPending(store.PendingWorkOrder, woNumber)
	e.clearPending(store.PendingProgress, woNumber)

	go func() {
		delCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
		defer cancel()
		if _, err := e.client.DeleteWorkOrder(delCtx, woNumber); err != nil {
			e.logger.Warn("remote delete failed", "wo_number", woNumber, "error", err)
		}
	}()
	return nil
}

func (e *Engine) markPending(kind store.PendingKind, id string) {
	e.stateMu.Lock()
	switch kind {
	case store.PendingWorkOrder:
		e.pendWO[id] = struct{}{}
	case store.PendingProgress:
		e.pendProg[id] = struct{}{}
	}
	e.stateMu.Unlock()
	if err := e.store.AddPending(kind, id); err != nil {
		e.logger.Warn("persist pending failed", "kind", string(kind), "id", id, "error", err)
	}
}

func (e *Engine) clearPending(kind store.PendingKind, id string) {
	e.stateMu.Lock()
	switch kind {
	case store.PendingWorkOrder:
		delete(e.pendWO, id)
	case store.PendingProgress:
		delete(e.pendProg, id)
	}
	e.stateMu.Unlock()
	if err := e.store.RemovePending(kind, id); err != nil {
		e.logger.Warn("unpersist pending failed", "kind", string(kind), "id", id, "error", err)
	}
}

func (e *Engine) pendingProgressIDs() []string {
	e.stateMu.Lock()
	defer e.stateMu.Unlock()
	ids := make([]string, 0, len(e.pendProg))
	for id := range e.pendProg {
		ids = append(ids, id)
	}
	return ids
}
