package models

// PostPage is one page of a feed listing.
type PostPage struct {
	Items       []*Post `json:"items"`
	Page        int     `json:"page"`
	PerPage     int     `json:"per_page"`
	Total       int64   `json:"total"`
	Pages       int     `json:"pages"`
	HasPrev     bool    `json:"has_prev"`
	HasNext     bool    `json:"has_next"`
	PrevNum     int     `json:"prev_num,omitempty"`
	NextNum     int     `json:"next_num,omitempty"`
	PageNumbers []int   `json:"page_numbers"`
}

// NewPostPage fills in the derived navigation fields for a page.
func NewPostPage(items []*Post, page, perPage int, total int64) *PostPage {
	if items == nil {
		items = []*Post{}
	}
	pages := 0
	if perPage > 0 && total > 0 {
		pages = int((total + int64(perPage) - 1) / int64(perPage))
	}
	p := &PostPage{
		Items:   items,
		Page:    page,
		PerPage: perPage,
		Total:   total,
		Pages:   pages,
		HasPrev: page > 1,
		HasNext: page < pages,
	}
	if p.HasPrev {
		p.PrevNum = page - 1
	}
	if p.HasNext {
		p.NextNum = page + 1
	}
	p.PageNumbers = IterPages(page, pages, 1, 1, 2, 1)
	return p
}

// IterPages yields the page numbers worth linking to, with 0 marking a gap.
// Pages within leftEdge of the start, rightEdge of the end, and the window
// [current-leftCurrent, current+rightCurrent) are included.
func IterPages(current, pages, leftEdge, leftCurrent, rightCurrent, rightEdge int) []int {
	out := []int{}
	last := 0
	for num := 1; num <= pages; num++ {
		inWindow := num > current-leftCurrent-1 && num < current+rightCurrent
		if num <= leftEdge || inWindow || num > pages-rightEdge {
			if last+1 != num {
				out = append(out, 0)
			}
			out = append(out, num)
			last = num
		}
	}
	return out
}
