package orchestrator

import (
	"context"
	"fmt"
	"maps"
	"path/filepath"
	"slices"

	"github.com/glorpus-work/apkpick/internal/logger"
	"github.com/glorpus-work/apkpick/pkg/catalog"
	"github.com/glorpus-work/apkpick/pkg/download"
	"github.com/glorpus-work/apkpick/pkg/errors"
	"github.com/glorpus-work/apkpick/pkg/hooks"
	"github.com/glorpus-work/apkpick/pkg/pattern"
	"github.com/glorpus-work/apkpick/pkg/progress"
	"github.com/glorpus-work/apkpick/pkg/selection"
)

func emit(h Events, e Event) {
	if h.OnEvent != nil {
		h.OnEvent(e)
	}
}

// Run filters the catalog, writes the manifest and, if requested, downloads
// the selected artifacts. Every returned error wraps one of the run-level
// categories in pkg/errors.
func (o *Orchestrator) Run(ctx context.Context, req Request) (Summary, error) {
	summary := Summary{RunID: req.RunID}

	// Everything that can be checked without I/O is checked first, so a bad
	// invocation never touches the catalog or the network.
	if err := o.validate(req); err != nil {
		return summary, err
	}
	constraint, err := selection.ParseConstraint(req.VersionConstraint)
	if err != nil {
		return summary, err
	}

	patterns, err := pattern.LoadFile(req.PatternsFile)
	if err != nil {
		return summary, err
	}
	logger.Debug("Loaded patterns", logger.Fields{"count": patterns.Len(), "file": req.PatternsFile})

	sel, stats, err := o.scan(ctx, req.CatalogFile, &selection.Engine{
		Matcher:    pattern.NewMatcher(patterns),
		Constraint: constraint,
	})
	summary.Rows, summary.RowErrors, summary.Matched = stats.Rows, stats.RowErrors, stats.Matched
	if err != nil {
		return summary, err
	}

	records := sel.Records()
	summary.Selected = len(records)
	emit(o.Events, Event{Phase: "selected", Msg: fmt.Sprintf("%d packages", len(records))})

	if !req.NoManifest {
		path := filepath.Join(req.OutputDir, catalog.ManifestName)
		if err := catalog.WriteManifestFile(path, records); err != nil {
			return summary, err
		}
		summary.ManifestPath = path
		emit(o.Events, Event{Phase: "manifest", Msg: path})
	}

	if req.Download {
		if err := o.fetch(ctx, req, records, &summary); err != nil {
			return summary, err
		}
	}

	emit(o.Events, Event{Phase: "done"})
	return summary, nil
}

func (o *Orchestrator) validate(req Request) error {
	for _, input := range []struct{ name, value string }{
		{"packages file", req.PatternsFile},
		{"catalog file", req.CatalogFile},
		{"output dir", req.OutputDir},
	} {
		if input.value == "" {
			return errors.ErrMissingInputWithName(input.name)
		}
	}
	if !req.Download {
		return nil
	}
	if req.APIKey == "" {
		return errors.Categorize(errors.ErrConfig, errors.ErrMissingAPIKey)
	}
	if req.BaseURL == nil {
		return errors.ErrMissingInputWithName("download base url")
	}
	if o.DL == nil {
		return fmt.Errorf("%w: download manager is not configured", errors.ErrConfig)
	}
	return nil
}

func reporterOrNop(r progress.Reporter) progress.Reporter {
	if r == nil {
		return progress.Nop()
	}
	return r
}

func (o *Orchestrator) scan(ctx context.Context, path string, engine *selection.Engine) (*selection.Selection, selection.Stats, error) {
	opener := o.Catalogs
	if opener == nil {
		opener = FileCatalogs{}
	}

	emit(o.Events, Event{Phase: "scanning", Msg: path})
	cat, err := opener.Open(ctx, path)
	if err != nil {
		return nil, selection.Stats{}, err
	}
	defer func() { _ = cat.Close() }()

	rep := reporterOrNop(o.ScanProgress)
	if size := cat.Size(); size > 0 {
		rep.SetTotal(size)
	} else {
		rep.SetTotal(-1)
	}
	rep.Describe(filepath.Base(path))
	defer rep.Finish()

	sel := selection.New()
	stats, err := engine.Reduce(ctx, &reportingSource{cat: cat, rep: rep}, sel, func(rowErr *catalog.RowParseError) {
		logger.Warn("Skipping malformed catalog row", logger.Fields{"line": rowErr.Line, "cause": rowErr.Cause})
	})
	if err != nil {
		return nil, stats, err
	}
	logger.Debug("Catalog scanned", logger.Fields{
		"rows": stats.Rows, "row_errors": stats.RowErrors, "matched": stats.Matched, "selected": sel.Len(),
	})
	return sel, stats, nil
}

// reportingSource forwards records and advances the reporter by the bytes consumed.
type reportingSource struct {
	cat  Catalog
	rep  progress.Reporter
	last int64
}

func (r *reportingSource) Next() (catalog.Record, error) {
	rec, err := r.cat.Next()
	if n := r.cat.BytesRead(); n > r.last {
		r.rep.Add(n - r.last)
		r.last = n
	}
	return rec, err
}

func (o *Orchestrator) fetch(ctx context.Context, req Request, records []catalog.Record, summary *Summary) error {
	summary.Paths = make(map[string]string)
	summary.Failures = make(map[string]error)
	byName := make(map[string]catalog.Record, len(records))

	fail := func(rec catalog.Record, err error) error {
		summary.Failures[rec.PackageName] = err
		summary.Failed++
		emit(o.Events, Event{Phase: "failed", ID: rec.PackageName, Msg: err.Error()})
		if req.KeepGoing {
			logger.Error("Download failed", logger.Fields{"package": rec.PackageName, "error": err})
			return nil
		}
		return err
	}

	items := make([]download.Item, 0, len(records))
	for _, rec := range records {
		byName[rec.PackageName] = rec
		out, err := o.runHook(ctx, hooks.PreFetch, rec, "")
		if err != nil {
			if err := fail(rec, err); err != nil {
				return err
			}
			continue
		}
		if out.Skip {
			summary.Skipped++
			emit(o.Events, Event{Phase: "skipped", ID: rec.PackageName})
			logger.Info("Skipping package", logger.Fields{"package": rec.PackageName, "reason": "pre-fetch hook"})
			continue
		}
		items = append(items, download.Item{
			ID:       rec.PackageName,
			URL:      download.ArtifactURL(req.BaseURL, req.APIKey, rec.SHA256),
			Filename: download.ArtifactFilename(rec.PackageName),
		})
	}
	if len(items) == 0 {
		return o.downloadsFailed(summary, len(records))
	}

	rep := reporterOrNop(o.FetchProgress)
	rep.SetTotal(int64(len(items)))
	defer rep.Finish()

	res, err := o.DL.FetchAll(ctx, items, download.Options{
		Dir:         req.OutputDir,
		Concurrency: req.Concurrency,
		KeepGoing:   req.KeepGoing,
		OnDone: func(item download.Item, _ string, err error) {
			rep.Describe(item.ID)
			rep.Add(1)
			if err == nil {
				emit(o.Events, Event{Phase: "downloaded", ID: item.ID})
			}
		},
	})
	for _, item := range items {
		if ferr, ok := res.Failed[item.ID]; ok {
			summary.Failures[item.ID] = ferr
			summary.Failed++
			emit(o.Events, Event{Phase: "failed", ID: item.ID, Msg: ferr.Error()})
			if req.KeepGoing {
				logger.Error("Download failed", logger.Fields{"package": item.ID, "error": ferr})
			}
		}
	}
	if err != nil && !errors.Is(err, errors.ErrDownloadsFailed) {
		summary.Downloaded = len(res.Paths)
		for id, path := range res.Paths {
			summary.Paths[id] = path
		}
		return err
	}

	for _, item := range items {
		path, ok := res.Paths[item.ID]
		if !ok {
			continue
		}
		rec := byName[item.ID]
		if _, err := o.runHook(ctx, hooks.PostFetch, rec, path); err != nil {
			if err := fail(rec, err); err != nil {
				return err
			}
			continue
		}
		summary.Paths[item.ID] = path
		summary.Downloaded++
	}

	return o.downloadsFailed(summary, len(records))
}

func (o *Orchestrator) downloadsFailed(summary *Summary, total int) error {
	if summary.Failed == 0 {
		return nil
	}
	first := slices.Min(slices.Collect(maps.Keys(summary.Failures)))
	return fmt.Errorf("%w: %d of %d: %w", errors.ErrDownloadsFailed, summary.Failed, total, summary.Failures[first])
}

func (o *Orchestrator) runHook(ctx context.Context, hookType hooks.HookType, rec catalog.Record, path string) (hooks.Outcome, error) {
	if o.Hooks == nil || !o.Hooks.HasHook(hookType) {
		return hooks.Outcome{}, nil
	}
	out, err := o.Hooks.Execute(ctx, hookType, hooks.HookContext{
		PackageName:  rec.PackageName,
		VersionCode:  rec.Version(),
		SHA256:       rec.SHA256,
		ArtifactPath: path,
	})
	if err != nil {
		return out, fmt.Errorf("%w: %s: %w", errors.ErrDownloadFailed, rec.PackageName, err)
	}
	return out, nil
}
