package homepage

import (
	"strings"
)

// Entry is a bookmark ready to be created
type Entry struct {
	URL      string
	Title    string
	Category string
}

// Entries flattens config in file order. The group becomes the category and
// the bookmark name the title. Entries without href are skipped.
func Entries(config BookmarksConfig) []Entry {
	out := make([]Entry, 0)

	for _, group := range config {
		for groupName, items := range group {
			category := strings.ToLower(strings.TrimSpace(groupName))

			for _, item := range items {
				for name, list := range item {
					if len(list) == 0 {
						continue
					}
					entry := list[0]

					href := strings.TrimSpace(entry.Href)
					if href == "" {
						continue
					}

					title := strings.TrimSpace(name)
					if title == "" {
						title = entry.Abbr
					}

					out = append(out, Entry{
						URL:      href,
						Title:    title,
						Category: category,
					})
				}
			}
		}
	}

	return out
}
