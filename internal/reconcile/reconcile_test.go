package reconcile

import (
	"strings"
	"testing"

	"paratranz-sync/internal/langdoc"
	"paratranz-sync/internal/paratranz"

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

func entry(key, original, translation string, stage int) paratranz.TranslationEntry {
	return paratranz.TranslationEntry{Key: key, Original: original, Translation: translation, Stage: stage}
}

func value(t *testing.T, d *langdoc.Document, key string) string {
	t.Helper()
	v, ok := d.Get(key)
	require.True(t, ok, "missing key %q", key)
	return v
}

func TestPolicy_Select(t *testing.T) {
	p := DefaultPolicy()

	tests := []struct {
		name  string
		entry paratranz.TranslationEntry
		want  string
	}{
		{"Translated", entry("k", "orig", "tr", StageTranslated), "tr"},
		{"Checked", entry("k", "orig", "tr", StageChecked), "tr"},
		{"Untranslated", entry("k", "orig", "tr", StageUntranslated), "orig"},
		{"Rejected", entry("k", "orig", "tr", StageRejected), "orig"},
		{"Reviewed", entry("k", "orig", "tr", StageReviewed), "orig"},
		{"EmptyTranslation", entry("k", "orig", "", StageTranslated), "orig"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, p.Select(tt.entry))
		})
	}
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy(" 0, -1 ,,3")
	require.NoError(t, err)
	assert.Equal(t, []int{-1, 0, 3}, p.Stages())
	assert.Equal(t, "tr", p.Select(entry("k", "o", "tr", StageReviewed)))
	assert.Equal(t, "o", p.Select(entry("k", "o", "tr", StageChecked)))

	_, err = ParsePolicy("0,x")
	assert.Error(t, err)
}

func TestResolve_Normalization(t *testing.T) {
	entries := []paratranz.TranslationEntry{
		entry("cjk", "", "你好 世界", StageTranslated),
		entry("ascii", "", "hello world", StageTranslated),
		entry("newline", "", `a\nb`, StageTranslated),
		entry("backslash", "", `c:\\dir`, StageTranslated),
		entry("image", "", "{image:a.png} 你好 世界", StageTranslated),
	}

	doc := Resolve(entries, DefaultPolicy(), false)

	assert.Equal(t, "你好\u00a0世界", value(t, doc, "cjk"))
	assert.Equal(t, "hello world", value(t, doc, "ascii"))
	assert.Equal(t, "a\nb", value(t, doc, "newline"))
	assert.Equal(t, `c:\dir`, value(t, doc, "backslash"))
	assert.Equal(t, "{image:a.png}\u00a0你好\u00a0世界", value(t, doc, "image"))
	assert.Equal(t, []string{"cjk", "ascii", "newline", "backslash", "image"}, doc.Keys())
}

func TestResolve_QuestText(t *testing.T) {
	entries := []paratranz.TranslationEntry{
		entry("cjk", "", "你好 世界", StageTranslated),
		entry("image", "", "{image:a.png} 你好 世界", StageTranslated),
		entry("ascii", "", "hello world", StageTranslated),
		entry("raw", "", `第一行\n第二行`, StageTranslated),
	}

	doc := Resolve(entries, DefaultPolicy(), true)

	assert.Equal(t, "你好\u00a0世界", value(t, doc, "cjk"))
	assert.Equal(t, "{image:a.png} 你好 世界", value(t, doc, "image"))
	assert.Equal(t, "hello world", value(t, doc, "ascii"))
	assert.Equal(t, `第一行\n第二行`, value(t, doc, "raw"))
}

func TestReconcile_EndToEnd(t *testing.T) {
	index := docOf("a", "A", "b", "B")
	resolved := Resolve([]paratranz.TranslationEntry{entry("a", "A", "甲", StageTranslated)}, DefaultPolicy(), false)

	out, report := Reconcile(resolved, index)

	assert.Equal(t, []string{"a", "b"}, out.Keys())
	assert.Equal(t, "甲", value(t, out, "a"))
	assert.Equal(t, "B", value(t, out, "b"))
	assert.Equal(t, 1, report.Matched)
	assert.Equal(t, 1, report.Fallback)
	assert.Empty(t, report.Dropped)
}

func TestReconcile_CoverageAndOrder(t *testing.T) {
	index := docOf("z", "Z", "m", "M", "a", "A", "q", "Q")
	resolved := docOf("a", "1", "extra", "2", "z", "3")

	out, report := Reconcile(resolved, index)

	assert.Equal(t, index.Keys(), out.Keys())
	assert.Equal(t, "3", value(t, out, "z"))
	assert.Equal(t, "M", value(t, out, "m"))
	assert.Equal(t, "1", value(t, out, "a"))
	assert.Equal(t, "Q", value(t, out, "q"))
	assert.Equal(t, []string{"extra"}, report.Dropped)
}

func TestReconcile_TruncationRepair(t *testing.T) {
	full := strings.Repeat("k", 250) + ".long.suffix"
	truncated := full[:paratranz.TruncatedKeyLength]
	index := docOf("short", "S", full, "original")

	out, report := Reconcile(docOf(truncated, "译文"), index)

	assert.Equal(t, "译文", value(t, out, full))
	assert.False(t, out.Has(truncated))
	assert.Equal(t, map[string]string{truncated: full}, report.Repaired)
	assert.Equal(t, []string{"short", full}, out.Keys())
}

func TestReconcile_TruncationRepairCountsRunes(t *testing.T) {
	full := strings.Repeat("键", 260)
	truncated := string([]rune(full)[:paratranz.TruncatedKeyLength])
	index := docOf(full, "original")

	out, _ := Reconcile(docOf(truncated, "v"), index)
	assert.Equal(t, "v", value(t, out, full))
}

func TestReconcile_TruncationTieBreak(t *testing.T) {
	prefix := strings.Repeat("p", paratranz.TruncatedKeyLength)
	index := docOf(prefix+"zzz", "Z", prefix+"aaa", "A", prefix+"mmm", "M")

	out, report := Reconcile(docOf(prefix, "v"), index)

	assert.Equal(t, prefix+"aaa", report.Repaired[prefix])
	assert.Equal(t, "v", value(t, out, prefix+"aaa"))
	assert.Equal(t, "Z", value(t, out, prefix+"zzz"))
	assert.Equal(t, "M", value(t, out, prefix+"mmm"))
}

func TestReconcile_NoFuzzyMatch(t *testing.T) {
	full := strings.Repeat("x", 300)
	shortPrefix := full[:100]
	index := docOf(full, "original")

	out, report := Reconcile(docOf(shortPrefix, "v"), index)

	assert.Equal(t, "original", value(t, out, full))
	assert.Equal(t, []string{shortPrefix}, report.Dropped)
	assert.Empty(t, report.Repaired)
}

func TestReconcile_UnmatchedTruncatedKey(t *testing.T) {
	key := strings.Repeat("u", paratranz.TruncatedKeyLength)
	index := docOf("other", "O")

	out, report := Reconcile(docOf(key, "v"), index)

	assert.Equal(t, []string{"other"}, out.Keys())
	assert.Equal(t, []string{key}, report.Dropped)
}

func TestReconcile_RepairOverridesDirectMatch(t *testing.T) {
	full := strings.Repeat("r", paratranz.TruncatedKeyLength) + "tail"
	truncated := full[:paratranz.TruncatedKeyLength]
	index := docOf(full, "orig")

	out, _ := Reconcile(docOf(full, "direct", truncated, "repaired"), index)
	assert.Equal(t, "repaired", value(t, out, full))
}

func TestReconcile_NoIndex(t *testing.T) {
	resolved := docOf("b", "2", "a", "1", "c", "3")

	out, report := Reconcile(resolved, nil)

	assert.True(t, report.Unordered)
	assert.Equal(t, []string{"a", "b", "c"}, out.Keys())
	assert.Equal(t, "2", value(t, out, "b"))
}

func TestReconcile_EmptyEntries(t *testing.T) {
	index := docOf("a", "A", "b", "B")

	out, report := Reconcile(langdoc.New(), index)

	assert.Equal(t, index.Keys(), out.Keys())
	assert.Equal(t, "A", value(t, out, "a"))
	assert.Equal(t, 2, report.Fallback)
}
