package services

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

const DefaultCategory = "Other"

// CategoryTable maps application identifiers to coarse category labels.
type CategoryTable struct {
	byApp map[string]string
}

var builtinCategories = map[string][]string{
	"Social": {
		"com.instagram.android",
		"com.facebook.katana",
		"com.twitter.android",
		"com.snapchat.android",
		"com.zhiliaoapp.musically",
		"com.reddit.frontpage",
	},
	"Communication": {
		"com.whatsapp",
		"org.telegram.messenger",
		"com.facebook.orca",
		"com.discord",
		"com.google.android.gm",
	},
	"Video": {
		"com.google.android.youtube",
		"com.netflix.mediaclient",
		"tv.twitch.android.app",
		"com.amazon.avod.thirdpartyclient",
	},
	"Music": {
		"com.spotify.music",
		"com.google.android.apps.youtube.music",
	},
	"Games": {
		"com.supercell.clashofclans",
		"com.king.candycrushsaga",
		"com.roblox.client",
		"com.activision.callofduty.shooter",
	},
	"Browser": {
		"com.android.chrome",
		"org.mozilla.firefox",
		"com.opera.browser",
	},
	"Productivity": {
		"com.google.android.apps.docs",
		"com.microsoft.office.outlook",
		"com.slack",
		"com.notion.id",
	},
}

// NewCategoryTable builds a lookup from category → identifiers. An identifier
// listed under several categories keys to the alphabetically first one.
func NewCategoryTable(categories map[string][]string) *CategoryTable {
	byApp := make(map[string]string)
	for _, category := range sortedCategories(categories) {
		for _, app := range categories[category] {
			app = strings.TrimSpace(app)
			if app == "" {
				continue
			}
			if _, taken := byApp[app]; !taken {
				byApp[app] = category
			}
		}
	}
	return &CategoryTable{byApp: byApp}
}

func sortedCategories(categories map[string][]string) []string {
	names := make([]string, 0, len(categories))
	for name := range categories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// duplicateApps lists identifiers that appear under more than one category.
func duplicateApps(categories map[string][]string) []string {
	seen := make(map[string]string)
	var dups []string
	for _, category := range sortedCategories(categories) {
		for _, app := range categories[category] {
			app = strings.TrimSpace(app)
			if app == "" {
				continue
			}
			if first, ok := seen[app]; ok && first != category {
				dups = append(dups, fmt.Sprintf("%s (%s, %s)", app, first, category))
				continue
			}
			seen[app] = category
		}
	}
	return dups
}

// DefaultCategoryTable returns the built-in table.
func DefaultCategoryTable() *CategoryTable {
	return NewCategoryTable(builtinCategories)
}

// LoadCategoryTable reads a YAML file of the form
//
//	categories:
//	  Social: [com.instagram.android, ...]
//
// An empty path yields the built-in table.
func LoadCategoryTable(path string) (*CategoryTable, error) {
	if path == "" {
		return DefaultCategoryTable(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read category table: %w", err)
	}

	var doc struct {
		Categories map[string][]string `yaml:"categories"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse category table: %w", err)
	}
	if len(doc.Categories) == 0 {
		return nil, fmt.Errorf("category table %s defines no categories", path)
	}

	if dups := duplicateApps(doc.Categories); len(dups) > 0 {
		return nil, fmt.Errorf("category table %s lists apps under several categories: %s", path, strings.Join(dups, ", "))
	}

	return NewCategoryTable(doc.Categories), nil
}

// Category returns the label for appID, or DefaultCategory when unmapped.
func (t *CategoryTable) Category(appID string) string {
	if t == nil {
		return DefaultCategory
	}
	if c, ok := t.byApp[appID]; ok {
		return c
	}
	return DefaultCategory
}
