package present

import "FinanceRadar/internal/domain"

// Page is one display page of story groups. Number starts at 1.
type Page struct {
	Number int
	Total  int
	Groups []domain.StoryGroup
}

// Paginate splits groups into pages of pageSize. A non-positive pageSize puts
// everything on a single page. No groups yield no pages.
func Paginate(groups []domain.StoryGroup, pageSize int) []Page {
	if len(groups) == 0 {
		return []Page{}
	}
	if pageSize <= 0 {
		pageSize = len(groups)
	}

	total := (len(groups) + pageSize - 1) / pageSize
	pages := make([]Page, 0, total)
	for start := 0; start < len(groups); start += pageSize {
		end := min(start+pageSize, len(groups))
		pages = append(pages, Page{
			Number: len(pages) + 1,
			Total:  total,
			Groups: groups[start:end],
		})
	}
	return pages
}
