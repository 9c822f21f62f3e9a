// Package sync drives the upload and download runs for one entity type:
// grouping into (owner, year, month) buckets, per-group error isolation,
// progress narration, activity logging, and OTel instrumentation.
//
// The failure policy is resolve, not reject: setup problems (missing scope)
// fail fast, everything else is counted and narrated while the run continues.
package sync

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"

	"github.com/paytally/paysync/internal/activity"
	"github.com/paytally/paysync/internal/model"
)

const (
	otelScope            = "paysync/sync"
	spanPush             = "sync.push"
	spanPull             = "sync.pull"
	metricUploaded       = "paysync.sync.records.uploaded"
	metricDownloaded     = "paysync.sync.records.downloaded"
	metricGroupFailures  = "paysync.sync.groups.failed"
	metricRecordFailures = "paysync.sync.records.failed"
	metricSkipped        = "paysync.sync.records.skipped"
)

// Orchestrator runs upload and download for one entity type. Create one per
// entity with [New].
type Orchestrator[R any] struct {
	name     string
	scope    string
	local    LocalStore[R]
	remote   RemoteTarget[R]
	keys     Keys[R]
	activity *activity.Logger
	log      *slog.Logger

	// AfterSync, when set, receives the records a completed run processed.
	// The payroll orchestrator uses it to trigger statistics recomputation.
	// Hook failures are narrated, never fatal.
	AfterSync func(ctx context.Context, records []R) error

	// OTel instruments — always non-nil (no-op when telemetry is disabled).
	tracer            trace.Tracer
	cntUploaded       metric.Int64Counter
	cntDownloaded     metric.Int64Counter
	cntGroupFailures  metric.Int64Counter
	cntRecordFailures metric.Int64Counter
	cntSkipped        metric.Int64Counter
}

// New creates an orchestrator. name labels log lines and activity entries
// ("leaves", "payroll", ...); scope is the tenant identifier, required before
// any run can start.
func New[R any](name, scope string, local LocalStore[R], remote RemoteTarget[R], keys Keys[R], actLog *activity.Logger, logger *slog.Logger) *Orchestrator[R] {
	meter := otel.Meter(otelScope)

	mustCounter := func(name, desc string) metric.Int64Counter {
		c, err := meter.Int64Counter(name, metric.WithDescription(desc))
		if err != nil {
			logger.Error("creating OTel counter", "name", name, "error", err)
			return noop.Int64Counter{}
		}
		return c
	}

	return &Orchestrator[R]{
		name:     name,
		scope:    scope,
		local:    local,
		remote:   remote,
		keys:     keys,
		activity: actLog,
		log:      logger,

		tracer:            otel.Tracer(otelScope),
		cntUploaded:       mustCounter(metricUploaded, "Number of records uploaded"),
		cntDownloaded:     mustCounter(metricDownloaded, "Number of records downloaded"),
		cntGroupFailures:  mustCounter(metricGroupFailures, "Number of bucket groups that failed to upload"),
		cntRecordFailures: mustCounter(metricRecordFailures, "Number of records that failed to apply locally"),
		cntSkipped:        mustCounter(metricSkipped, "Number of records skipped for invalid grouping fields"),
	}
}

// Push uploads every local record, grouped into bucket documents. The full
// local dataset is rescanned on every run; re-running is always safe and
// produces the same remote state. Group failures are isolated: the run
// continues and the error shows up in Stats and the narration.
func (o *Orchestrator[R]) Push(ctx context.Context, onProgress Progress) (Stats, error) {
	ctx, span := o.tracer.Start(ctx, spanPush, trace.WithAttributes(attribute.String("sync.model", o.name)))
	defer span.End()

	var stats Stats
	if o.scope == "" {
		err := fmt.Errorf("no company scope configured, cannot upload %s", o.name)
		o.finish(ctx, span, activity.OpUpload, stats, err)
		return stats, err
	}
	o.logRunning(ctx, activity.OpUpload)

	records, err := o.local.LoadAllForSync(ctx)
	if err != nil {
		err = fmt.Errorf("scanning local %s records: %w", o.name, err)
		o.finish(ctx, span, activity.OpUpload, stats, err)
		return stats, err
	}
	stats.Scanned = len(records)
	onProgress.report(fmt.Sprintf("found %d local %s records", len(records), o.name))

	if len(records) == 0 {
		onProgress.report("nothing to sync")
		o.finish(ctx, span, activity.OpUpload, stats, nil)
		return stats, nil
	}

	groups := o.group(records, &stats)
	stats.Groups = len(groups)

	ids := make([]string, 0, len(groups))
	for id := range groups {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		g := groups[id]
		if err := o.remote.SaveBucket(ctx, g.bucket, g.records); err != nil {
			stats.GroupFailures++
			o.log.Error("bucket upload failed",
				"model", o.name,
				"owner", g.bucket.OwnerID,
				"year", g.bucket.Year,
				"month", g.bucket.Month,
				"error", err)
			onProgress.report(fmt.Sprintf("failed to upload %s", id))
			continue
		}
		stats.Uploaded += len(g.records)
		onProgress.report(fmt.Sprintf("uploaded %s (%d records)", id, len(g.records)))
	}

	if stats.GroupFailures > 0 {
		onProgress.report(fmt.Sprintf("%d of %d groups failed", stats.GroupFailures, stats.Groups))
	}
	o.runAfterSync(ctx, records, onProgress)
	o.finish(ctx, span, activity.OpUpload, stats, nil)
	return stats, nil
}

// Pull downloads the entire remote collection and applies every record
// locally. Record failures are isolated the same way group failures are on
// upload.
func (o *Orchestrator[R]) Pull(ctx context.Context, onProgress Progress) (Stats, error) {
	ctx, span := o.tracer.Start(ctx, spanPull, trace.WithAttributes(attribute.String("sync.model", o.name)))
	defer span.End()

	var stats Stats
	if o.scope == "" {
		err := fmt.Errorf("no company scope configured, cannot download %s", o.name)
		o.finish(ctx, span, activity.OpDownload, stats, err)
		return stats, err
	}
	o.logRunning(ctx, activity.OpDownload)

	records, err := o.remote.FetchAll(ctx)
	if err != nil {
		err = fmt.Errorf("fetching remote %s collection: %w", o.name, err)
		o.finish(ctx, span, activity.OpDownload, stats, err)
		return stats, err
	}
	onProgress.report(fmt.Sprintf("found %d remote %s records", len(records), o.name))

	if len(records) == 0 {
		onProgress.report("nothing to download")
		o.finish(ctx, span, activity.OpDownload, stats, nil)
		return stats, nil
	}

	applied := make([]R, 0, len(records))
	for _, r := range records {
		if err := o.local.ApplyRemote(ctx, r); err != nil {
			stats.RecordFailures++
			o.log.Error("applying downloaded record failed",
				"model", o.name,
				"record", o.keys.RecordID(r),
				"owner", o.keys.OwnerID(r),
				"error", err)
			continue
		}
		stats.Downloaded++
		applied = append(applied, r)
	}

	if stats.RecordFailures > 0 {
		onProgress.report(fmt.Sprintf("%d of %d records failed to apply", stats.RecordFailures, len(records)))
	}
	onProgress.report(fmt.Sprintf("downloaded %d %s records", stats.Downloaded, o.name))
	o.runAfterSync(ctx, applied, onProgress)
	o.finish(ctx, span, activity.OpDownload, stats, nil)
	return stats, nil
}

type bucketGroup[R any] struct {
	bucket  model.Bucket
	records []R
}

// group partitions records by bucket ID. Records whose grouping fields are
// unusable are counted as skipped and logged, never aborting the run.
func (o *Orchestrator[R]) group(records []R, stats *Stats) map[string]*bucketGroup[R] {
	groups := make(map[string]*bucketGroup[R])
	for _, r := range records {
		owner := o.keys.OwnerID(r)
		bucket := model.BucketOf(owner, o.keys.BucketDate(r))
		if !bucket.Valid() {
			stats.Skipped++
			o.log.Warn("skipping record with unusable grouping fields",
				"model", o.name, "record", o.keys.RecordID(r), "owner", owner)
			continue
		}
		g := groups[bucket.ID()]
		if g == nil {
			g = &bucketGroup[R]{bucket: bucket}
			groups[bucket.ID()] = g
		}
		g.records = append(g.records, r)
	}
	return groups
}

func (o *Orchestrator[R]) runAfterSync(ctx context.Context, records []R, onProgress Progress) {
	if o.AfterSync == nil || len(records) == 0 {
		return
	}
	if err := o.AfterSync(ctx, records); err != nil {
		o.log.Error("post-sync hook failed", "model", o.name, "error", err)
		onProgress.report(fmt.Sprintf("post-sync processing failed: %v", err))
	}
}

// --- activity + telemetry ----------------------------------------------------

func (o *Orchestrator[R]) logRunning(ctx context.Context, op activity.Operation) {
	o.addEntry(ctx, activity.Entry{
		ModelName: o.name,
		Operation: op,
		Status:    activity.StatusRunning,
		Message:   fmt.Sprintf("%s of %s started", op, o.name),
	})
}

// finish records counters and span attributes, then writes the closing
// activity entry.
func (o *Orchestrator[R]) finish(ctx context.Context, span trace.Span, op activity.Operation, stats Stats, err error) {
	if stats.Uploaded > 0 {
		o.cntUploaded.Add(ctx, int64(stats.Uploaded))
	}
	if stats.Downloaded > 0 {
		o.cntDownloaded.Add(ctx, int64(stats.Downloaded))
	}
	if stats.GroupFailures > 0 {
		o.cntGroupFailures.Add(ctx, int64(stats.GroupFailures))
	}
	if stats.RecordFailures > 0 {
		o.cntRecordFailures.Add(ctx, int64(stats.RecordFailures))
	}
	if stats.Skipped > 0 {
		o.cntSkipped.Add(ctx, int64(stats.Skipped))
	}
	span.SetAttributes(
		attribute.Int("sync.scanned", stats.Scanned),
		attribute.Int("sync.uploaded", stats.Uploaded),
		attribute.Int("sync.downloaded", stats.Downloaded),
		attribute.Int("sync.group_failures", stats.GroupFailures),
		attribute.Int("sync.record_failures", stats.RecordFailures),
		attribute.Int("sync.skipped", stats.Skipped),
	)

	entry := activity.Entry{ModelName: o.name, Operation: op}
	switch {
	case err != nil:
		span.RecordError(err)
		entry.Status = activity.StatusError
		entry.Message = fmt.Sprintf("%s of %s failed", op, o.name)
		entry.Details = err.Error()
	case stats.GroupFailures > 0 || stats.RecordFailures > 0:
		entry.Status = activity.StatusSuccess
		entry.Message = fmt.Sprintf("%s of %s completed with failures", op, o.name)
		entry.Details = fmt.Sprintf("uploaded=%d downloaded=%d group_failures=%d record_failures=%d skipped=%d",
			stats.Uploaded, stats.Downloaded, stats.GroupFailures, stats.RecordFailures, stats.Skipped)
	default:
		entry.Status = activity.StatusSuccess
		entry.Message = fmt.Sprintf("%s of %s completed", op, o.name)
		entry.Details = fmt.Sprintf("uploaded=%d downloaded=%d skipped=%d",
			stats.Uploaded, stats.Downloaded, stats.Skipped)
	}
	o.addEntry(ctx, entry)
}

func (o *Orchestrator[R]) addEntry(ctx context.Context, e activity.Entry) {
	if o.activity == nil {
		return
	}
	if err := o.activity.Add(ctx, e); err != nil {
		o.log.Warn("writing activity log entry failed", "error", err)
	}
}
