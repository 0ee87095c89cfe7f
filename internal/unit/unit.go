// Package unit decides which ParaTranz files are localization units and where
// their reference and output documents live.
package unit

import (
	"path"
	"path/filepath"
	"strings"

	"paratranz-sync/internal/paratranz"
)

// Layout describes the local directory structure and naming conventions.
type Layout struct {
	// SourceDir holds source-language reference documents, laid out like
	// OutputDir.
	SourceDir string
	// OutputDir is the root target-language documents are written under.
	OutputDir string
	// OutputLangPrefix is inserted between the root and the file directory,
	// for both reference and output documents.
	OutputLangPrefix string
	// SourceLocale and TargetLocale name the language files, e.g. en_us and zh_cn.
	SourceLocale string
	TargetLocale string
	// SkipMarker excludes files whose name contains it.
	SkipMarker string
	// QuestFileMarker flags quest-text units by file base name.
	QuestFileMarker string
	// QuestLangDir selects units merged into the quest SNBT output.
	QuestLangDir string
}

// Unit is one localization unit.
type Unit struct {
	File paratranz.File
	// QuestText switches value normalization to the quest-text rules.
	QuestText bool
	// QuestLang marks units merged into the quest SNBT output.
	QuestLang bool
}

// Name returns the ParaTranz file name.
func (u Unit) Name() string {
	return u.File.Name
}

// Select returns the units among files, in listing order.
func (l Layout) Select(files []paratranz.File) []Unit {
	suffix := strings.ToLower(l.SourceLocale + ".json")

	var units []Unit
	for _, f := range files {
		if !strings.HasSuffix(strings.ToLower(f.Name), suffix) {
			continue
		}
		if l.SkipMarker != "" && strings.Contains(f.Name, l.SkipMarker) {
			continue
		}
		units = append(units, Unit{
			File:      f,
			QuestText: l.QuestFileMarker != "" && strings.Contains(path.Base(f.Name), l.QuestFileMarker),
			QuestLang: l.QuestLangDir != "" && strings.Contains(f.Name, l.QuestLangDir),
		})
	}
	return units
}

// ReferencePath returns the source-language document the unit's output is
// ordered by: the output path with SourceDir as root and the source locale.
func (l Layout) ReferencePath(u Unit) string {
	return l.localePath(l.SourceDir, u, l.SourceLocale)
}

// OutputPath returns where the unit's target-language document is written.
func (l Layout) OutputPath(u Unit) string {
	return l.localePath(l.OutputDir, u, l.TargetLocale)
}

func (l Layout) localePath(root string, u Unit, locale string) string {
	dir := path.Dir(u.File.Name)
	return filepath.Join(root, filepath.FromSlash(l.OutputLangPrefix), filepath.FromSlash(dir), locale+".json")
}

// TargetName returns the file name with the source locale replaced by the
// target locale, for display.
func (l Layout) TargetName(u Unit) string {
	return strings.Replace(u.File.Name, l.SourceLocale+".json", l.TargetLocale+".json", 1)
}
