// Package pipeline runs a full ParaTranz synchronization: fetch every
// localization unit, reconcile it against its local reference document, write
// the target-language documents and the FTB Quests SNBT language file.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"paratranz-sync/internal/interpolation"
	"paratranz-sync/internal/langdoc"
	"paratranz-sync/internal/nested"
	"paratranz-sync/internal/paratranz"
	"paratranz-sync/internal/quest"
	"paratranz-sync/internal/reconcile"
	"paratranz-sync/internal/snbt"
	"paratranz-sync/internal/textutil"
	"paratranz-sync/internal/unit"
	"paratranz-sync/internal/worker"

	"github.com/rs/zerolog/log"
)

const previewLen = 50

// Options configures a Syncer.
type Options struct {
	Layout unit.Layout
	Policy reconcile.Policy
	// QuestSNBTPath is resolved against Layout.OutputDir unless absolute.
	QuestSNBTPath string
	Workers       int
}

// UnitSummary describes one written target document.
type UnitSummary struct {
	Name    string
	Output  string
	Entries int
	Report  reconcile.Report
	// PlaceholderMismatches lists keys whose translation carries different
	// format placeholders than the original text.
	PlaceholderMismatches []string
}

// Summary describes a finished run.
type Summary struct {
	Units []UnitSummary
	// QuestKeys counts top-level keys of the rendered quest language file.
	QuestKeys int
	SNBTPath  string
	// SNBTWritten is false when there was no quest text, the target directory
	// was missing, or the tree could not be built (see SNBTErr).
	SNBTWritten bool
	SNBTErr     error
	// CacheErr collects non-fatal entry cache failures.
	CacheErr error
}

// Syncer runs the synchronization pipeline.
type Syncer struct {
	source Source
	loader *langdoc.Loader
	opts   Options
}

// NewSyncer creates a Syncer reading from source and loading reference
// documents through loader.
func NewSyncer(source Source, loader *langdoc.Loader, opts Options) *Syncer {
	return &Syncer{
		source: source,
		loader: loader,
		opts:   opts,
	}
}

type fetched struct {
	unit    unit.Unit
	entries []paratranz.TranslationEntry
}

// Run performs one synchronization. A failed ParaTranz request aborts the run
// before anything is written.
func (s *Syncer) Run(ctx context.Context) (*Summary, error) {
	files, err := s.source.ListFiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}

	units := s.opts.Layout.Select(files)
	log.Info().Int("files", len(files)).Int("units", len(units)).Msg("Selected localization units")

	pool := worker.NewPool[unit.Unit, fetched](s.opts.Workers, func(ctx context.Context, u unit.Unit) (fetched, error) {
		entries, err := s.source.FetchEntries(ctx, u.File.ID)
		if err != nil {
			return fetched{}, fmt.Errorf("fetch entries of %s: %w", u.Name(), err)
		}
		return fetched{unit: u, entries: entries}, nil
	})
	results := pool.Run(ctx, units)
	if err := worker.FirstError(results); err != nil {
		return nil, err
	}

	summary := &Summary{}
	var questDocs []*langdoc.Document

	for _, r := range results {
		us, doc, err := s.processUnit(r.Value)
		if err != nil {
			return nil, err
		}
		summary.Units = append(summary.Units, us)
		if r.Value.unit.QuestLang {
			questDocs = append(questDocs, doc)
		}
	}

	if len(questDocs) > 0 {
		s.writeQuestSNBT(quest.Merge(questDocs...), summary)
	}

	if cs, ok := s.source.(*CachingSource); ok {
		summary.CacheErr = cs.Err()
	}

	log.Info().
		Int("units", len(summary.Units)).
		Bool("snbt", summary.SNBTWritten).
		Msg("Synchronization complete")

	return summary, nil
}

func (s *Syncer) processUnit(f fetched) (UnitSummary, *langdoc.Document, error) {
	layout := s.opts.Layout
	u := f.unit

	resolved := reconcile.Resolve(f.entries, s.opts.Policy, u.QuestText)

	index, err := s.loader.Load(layout.ReferencePath(u))
	if err != nil {
		return UnitSummary{}, nil, fmt.Errorf("load reference of %s: %w", u.Name(), err)
	}
	if index == nil {
		log.Warn().Str("file", u.Name()).Msg("Reference document missing, writing keys in sorted order")
	}

	doc, report := reconcile.Reconcile(resolved, index)

	mismatches := checkPlaceholders(f.entries, s.opts.Policy)

	out := layout.OutputPath(u)
	if err := langdoc.WriteFile(out, doc); err != nil {
		return UnitSummary{}, nil, err
	}

	log.Info().
		Str("file", layout.TargetName(u)).
		Int("keys", doc.Len()).
		Int("repaired", len(report.Repaired)).
		Int("dropped", len(report.Dropped)).
		Int("placeholder_mismatches", len(mismatches)).
		Msg("Downloaded translation")

	return UnitSummary{
		Name:                  u.Name(),
		Output:                out,
		Entries:               len(f.entries),
		Report:                report,
		PlaceholderMismatches: mismatches,
	}, doc, nil
}

// checkPlaceholders returns the keys of entries that resolve to a
// translation whose placeholders differ from the original. The values are
// written unchanged.
func checkPlaceholders(entries []paratranz.TranslationEntry, p reconcile.Policy) []string {
	var keys []string
	for _, e := range entries {
		v := p.Select(e)
		if v == e.Original || !interpolation.Mismatch(e.Original, v) {
			continue
		}
		log.Warn().
			Str("key", textutil.Truncate(e.Key, previewLen)).
			Strs("original", interpolation.Find(e.Original)).
			Strs("translation", interpolation.Find(v)).
			Msg("Translation placeholders differ from original")
		keys = append(keys, e.Key)
	}
	return keys
}

// writeQuestSNBT renders merged quest text into the SNBT language file. It
// never fails the run: older FTB Quests layouts have no target directory.
func (s *Syncer) writeQuestSNBT(merged *langdoc.Document, summary *Summary) {
	path := s.opts.QuestSNBTPath
	if !filepath.IsAbs(path) {
		path = filepath.Join(s.opts.Layout.OutputDir, filepath.FromSlash(path))
	}
	summary.SNBTPath = path

	aggregated := quest.Aggregate(merged)
	summary.QuestKeys = aggregated.Len()

	text, err := snbt.Marshal(nested.Clone(aggregated))
	if err != nil {
		summary.SNBTErr = err
		var kindErr *snbt.UnsupportedValueKindError
		if errors.As(err, &kindErr) {
			log.Error().Err(err).Str("path", kindErr.Path).Msg("Cannot render quest language file")
		} else {
			log.Error().Err(err).Msg("Cannot render quest language file")
		}
		return
	}

	if info, err := os.Stat(filepath.Dir(path)); err != nil || !info.IsDir() {
		log.Warn().Str("path", path).Msg("Quest language directory missing, FTB Quests is older than 1.21.1; skipping SNBT")
		return
	}

	if err := os.WriteFile(path, []byte(text), 0644); err != nil {
		summary.SNBTErr = fmt.Errorf("write %s: %w", path, err)
		log.Error().Err(summary.SNBTErr).Msg("Failed to write quest language file")
		return
	}

	summary.SNBTWritten = true
	log.Info().Str("path", path).Int("keys", summary.QuestKeys).Msg("Wrote quest language file")
}
