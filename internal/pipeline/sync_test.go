package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"paratranz-sync/internal/cache"
	"paratranz-sync/internal/langdoc"
	"paratranz-sync/internal/paratranz"
	"paratranz-sync/internal/reconcile"
	"paratranz-sync/internal/unit"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func docOf(kv ...string) *langdoc.Document {
	d := langdoc.New()
	for i := 0; i+1 < len(kv); i += 2 {
		d.Set(kv[i], kv[i+1])
	}
	return d
}

type failingDB struct{}

func (failingDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, errors.New("disk full")
}

func (failingDB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, errors.New("disk full")
}

func (failingDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return nil
}

func (failingDB) Begin(ctx context.Context) (pgx.Tx, error) {
	return nil, errors.New("disk full")
}

type fakeSource struct {
	files    []paratranz.File
	entries  map[int][]paratranz.TranslationEntry
	listErr  error
	fetchErr map[int]error
}

func (f *fakeSource) ListFiles(ctx context.Context) ([]paratranz.File, error) {
	return f.files, f.listErr
}

func (f *fakeSource) FetchEntries(ctx context.Context, fileID int) ([]paratranz.TranslationEntry, error) {
	if err := f.fetchErr[fileID]; err != nil {
		return nil, err
	}
	return f.entries[fileID], nil
}

const (
	modFile   = "kubejs/assets/mod/lang/en_us.json"
	questFile = "kubejs/assets/quests/lang/en_us.json"
)

func referencePath(s *Syncer, name string) string {
	return s.opts.Layout.ReferencePath(unit.Unit{File: paratranz.File{Name: name}})
}

func writeSource(t *testing.T, s *Syncer, name string, doc *langdoc.Document) {
	t.Helper()
	require.NoError(t, langdoc.WriteFile(referencePath(s, name), doc))
}

func newSyncer(t *testing.T, src Source) (*Syncer, string, string) {
	t.Helper()
	sourceDir := filepath.Join(t.TempDir(), "Source")
	outputDir := filepath.Join(t.TempDir(), "CNPack")

	loader, err := langdoc.NewLoader(16)
	require.NoError(t, err)

	s := NewSyncer(src, loader, Options{
		Layout: unit.Layout{
			SourceDir:        sourceDir,
			OutputDir:        outputDir,
			OutputLangPrefix: "assets/vm/lang",
			SourceLocale:     "en_us",
			TargetLocale:     "zh_cn",
			SkipMarker:       "TM",
			QuestFileMarker:  "ftbquest",
			QuestLangDir:     "kubejs/assets/quests/lang/",
		},
		Policy:        reconcile.DefaultPolicy(),
		QuestSNBTPath: "config/ftbquests/quests/lang/zh_cn.snbt",
		Workers:       2,
	})
	return s, sourceDir, outputDir
}

func sampleSource() *fakeSource {
	return &fakeSource{
		files: []paratranz.File{
			{ID: 1, Name: modFile},
			{ID: 2, Name: "TM/en_us.json"},
			{ID: 3, Name: questFile},
		},
		entries: map[int][]paratranz.TranslationEntry{
			1: {
				{Key: "item.b", Original: "B", Translation: "乙 物品", Stage: reconcile.StageTranslated},
				{Key: "item.a", Original: "A", Translation: "甲", Stage: reconcile.StageUntranslated},
			},
			3: {
				{Key: "quest.7.title", Original: "Seven", Translation: "第七", Stage: reconcile.StageTranslated},
				{Key: "quest.7.desc", Original: "", Stage: reconcile.StageTranslated},
				{Key: "quest.7.quest_desc0", Original: "L0", Translation: `说 "你好"`, Stage: reconcile.StageTranslated},
			},
		},
	}
}

func TestRun_WritesDocumentsAndSNBT(t *testing.T) {
	s, _, outputDir := newSyncer(t, sampleSource())

	writeSource(t, s, modFile, docOf("item.a", "A", "item.b", "B", "item.c", "C"))
	require.NoError(t, os.MkdirAll(filepath.Join(outputDir, "config", "ftbquests", "quests", "lang"), 0755))

	summary, err := s.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, summary.Units, 2)

	modOut := filepath.Join(outputDir, "assets", "vm", "lang", "kubejs", "assets", "mod", "lang", "zh_cn.json")
	data, err := os.ReadFile(modOut)
	require.NoError(t, err)
	assert.Equal(t, "{\n    \"item.a\":\"A\",\n    \"item.b\":\"乙\u00a0物品\",\n    \"item.c\":\"C\"\n}", string(data))
	assert.Equal(t, 1, summary.Units[0].Report.Fallback)

	// The quest unit has no reference document and is written sorted.
	assert.True(t, summary.Units[1].Report.Unordered)

	require.True(t, summary.SNBTWritten)
	assert.NoError(t, summary.SNBTErr)
	snbtData, err := os.ReadFile(summary.SNBTPath)
	require.NoError(t, err)
	text := string(snbtData)
	assert.Contains(t, text, `"quest.7.title":"第七"`)
	assert.Contains(t, text, `"quest.7.quest_desc":[`)
	assert.Contains(t, text, "\"说\u00a0\\\"你好\\\"\"")
	assert.NotContains(t, text, `"quest.7.desc"`)
}

func TestRun_ReportsPlaceholderMismatches(t *testing.T) {
	src := sampleSource()
	src.entries[1] = append(src.entries[1],
		paratranz.TranslationEntry{Key: "msg.kill", Original: "%s killed %s", Translation: "%s 被击杀", Stage: reconcile.StageTranslated},
		paratranz.TranslationEntry{Key: "msg.ok", Original: "%s joined", Translation: "%s 加入了", Stage: reconcile.StageTranslated},
		paratranz.TranslationEntry{Key: "msg.skip", Original: "%d items", Translation: "物品", Stage: reconcile.StageUntranslated},
	)
	s, _, _ := newSyncer(t, src)

	summary, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"msg.kill"}, summary.Units[0].PlaceholderMismatches)
}

func TestRun_SkipsSNBTWhenDirectoryMissing(t *testing.T) {
	s, _, _ := newSyncer(t, sampleSource())

	summary, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.False(t, summary.SNBTWritten)
	assert.NoError(t, summary.SNBTErr)
	assert.NotEmpty(t, summary.SNBTPath)
	_, statErr := os.Stat(summary.SNBTPath)
	assert.True(t, errors.Is(statErr, os.ErrNotExist))
}

func TestRun_NoQuestUnits(t *testing.T) {
	src := sampleSource()
	src.files = src.files[:1]
	s, _, _ := newSyncer(t, src)

	summary, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, summary.SNBTPath)
	assert.Len(t, summary.Units, 1)
}

func TestRun_TransportFailureAborts(t *testing.T) {
	src := sampleSource()
	src.fetchErr = map[int]error{3: &paratranz.TransportError{URL: "x", StatusCode: 500}}
	s, _, outputDir := newSyncer(t, src)

	_, err := s.Run(context.Background())
	var te *paratranz.TransportError
	require.ErrorAs(t, err, &te)
	assert.Contains(t, err.Error(), questFile)

	_, statErr := os.Stat(outputDir)
	assert.True(t, errors.Is(statErr, os.ErrNotExist), "nothing is written on failure")
}

func TestRun_ListFailure(t *testing.T) {
	s, _, _ := newSyncer(t, &fakeSource{listErr: errors.New("offline")})
	_, err := s.Run(context.Background())
	assert.ErrorContains(t, err, "list files")
}

func TestRun_MalformedReference(t *testing.T) {
	s, _, _ := newSyncer(t, sampleSource())
	path := referencePath(s, modFile)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(`{"a": 1}`), 0644))

	_, err := s.Run(context.Background())
	assert.ErrorContains(t, err, "load reference")
}

func TestCachingSource_WritesThroughAndServesOffline(t *testing.T) {
	ctx := context.Background()
	entryCache := cache.NewEntryCache(nil, "1")
	online := NewCachingSource(sampleSource(), entryCache)

	s, _, _ := newSyncer(t, online)
	first, err := s.Run(ctx)
	require.NoError(t, err)
	assert.NoError(t, first.CacheErr)

	offline, _, _ := newSyncer(t, entryCache)
	second, err := offline.Run(ctx)
	require.NoError(t, err)
	require.Len(t, second.Units, len(first.Units))
	for i := range first.Units {
		assert.Equal(t, first.Units[i].Name, second.Units[i].Name)
		assert.Equal(t, first.Units[i].Entries, second.Units[i].Entries)
	}
}

func TestCachingSource_CollectsCacheErrors(t *testing.T) {
	cs := NewCachingSource(sampleSource(), cache.NewEntryCache(failingDB{}, "1"))

	_, err := cs.ListFiles(context.Background())
	require.NoError(t, err)
	_, err = cs.FetchEntries(context.Background(), 1)
	require.NoError(t, err)

	cacheErr := cs.Err()
	require.Error(t, cacheErr)
	assert.Equal(t, 2, strings.Count(cacheErr.Error(), "disk full"))
}
