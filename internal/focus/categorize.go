// Package focus assembles WorkSessions and Interruptions from the raw event
// log, computes the daily focus score, and emits local suggestions. It runs
// periodically, reading from storage and writing derived records back to it;
// it holds no source-of-truth state of its own.
package focus

import (
	"strings"

	"github.com/tsawler/prose/v3"

	"github.com/vthunder/bud2/internal/models"
)

// defaultCategoryKeywords maps lowercase tokens found in an app name or
// window title to the category they imply. Unknown apps default to
// CategoryOther. This is intentionally coarse; operators can override or
// extend it via a YAML file in the same style as the capture trigger's
// keyword patterns.
var defaultCategoryKeywords = map[string]models.Category{
	"code": models.CategoryDevelopment, "vscode": models.CategoryDevelopment,
	"terminal": models.CategoryDevelopment, "iterm": models.CategoryDevelopment,
	"intellij": models.CategoryDevelopment, "goland": models.CategoryDevelopment,
	"pycharm": models.CategoryDevelopment, "vim": models.CategoryDevelopment,
	"xcode": models.CategoryDevelopment, "github": models.CategoryDevelopment,
	"gitkraken": models.CategoryDevelopment, "docker": models.CategoryDevelopment,

	"slack": models.CategoryCommunication, "teams": models.CategoryCommunication,
	"discord": models.CategoryCommunication, "mail": models.CategoryCommunication,
	"outlook": models.CategoryCommunication, "zoom": models.CategoryCommunication,
	"messages": models.CategoryCommunication, "gmail": models.CategoryCommunication,

	"notion": models.CategoryDocumentation, "confluence": models.CategoryDocumentation,
	"docs": models.CategoryDocumentation, "word": models.CategoryDocumentation,
	"pages": models.CategoryDocumentation, "obsidian": models.CategoryDocumentation,
	"notes": models.CategoryDocumentation,

	"chrome": models.CategoryBrowser, "firefox": models.CategoryBrowser,
	"safari": models.CategoryBrowser, "edge": models.CategoryBrowser,
	"brave": models.CategoryBrowser,

	"figma": models.CategoryDesign, "sketch": models.CategoryDesign,
	"illustrator": models.CategoryDesign, "photoshop": models.CategoryDesign,

	"spotify": models.CategoryMedia, "vlc": models.CategoryMedia,
	"music": models.CategoryMedia, "youtube": models.CategoryMedia,

	"finder": models.CategorySystem, "explorer": models.CategorySystem,
	"settings": models.CategorySystem, "preferences": models.CategorySystem,
	"activity monitor": models.CategorySystem, "task manager": models.CategorySystem,
}

// Categorizer resolves an (app_name, window_title) pair to a Category.
// Exact lowercase app-name matches win; otherwise window-title/app-name
// tokens (via prose's tokenizer, same as the storage package's search
// indexer) are checked against the keyword table.
type Categorizer struct {
	exact    map[string]models.Category
	keywords map[string]models.Category
}

// NewCategorizer builds a Categorizer. overrides, if non-nil, take priority
// over exact app-name matches found in the built-in table (loaded from the
// configurable lookup file described in §4.5).
func NewCategorizer(overrides map[string]models.Category) *Categorizer {
	c := &Categorizer{
		exact:    map[string]models.Category{},
		keywords: defaultCategoryKeywords,
	}
	for app, cat := range overrides {
		c.exact[strings.ToLower(app)] = cat
	}
	return c
}

// Category resolves the behavioral bucket for one observation. Unknown apps
// default to CategoryOther.
func (c *Categorizer) Category(appName, windowTitle string) models.Category {
	lowerApp := strings.ToLower(strings.TrimSpace(appName))
	if lowerApp != "" {
		if cat, ok := c.exact[lowerApp]; ok {
			return cat
		}
		if cat, ok := c.keywords[lowerApp]; ok {
			return cat
		}
	}
	for _, tok := range tokenizeCategoryInput(appName + " " + windowTitle) {
		if cat, ok := c.keywords[tok]; ok {
			return cat
		}
	}
	return models.CategoryOther
}

// tokenizeCategoryInput splits app name/window title text into lowercase
// terms, falling back to whitespace splitting when prose cannot parse the
// input (mirrors storage.tokenize's fallback).
func tokenizeCategoryInput(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	doc, err := prose.NewDocument(s, prose.WithExtraction(false), prose.WithTagging(false))
	if err != nil {
		return strings.Fields(strings.ToLower(s))
	}
	var tokens []string
	for _, tok := range doc.Tokens() {
		t := strings.ToLower(strings.TrimSpace(tok.Text))
		if t != "" {
			tokens = append(tokens, t)
		}
	}
	if len(tokens) == 0 {
		return strings.Fields(strings.ToLower(s))
	}
	return tokens
}
