package shared

// TotalPages returns ceil(total/pageSize). It is 0 for an empty collection.
func TotalPages(total int64, pageSize int) int {
	if pageSize <= 0 || total <= 0 {
		return 0
	}
	pages := int(total) / pageSize
	if int(total)%pageSize > 0 {
		pages++
	}
	return pages
}

// PageBounds returns the inclusive start and exclusive end row offsets of a
// 1-based page.
func PageBounds(page, pageSize int) (offset, end int) {
	offset = (page - 1) * pageSize
	return offset, offset + pageSize
}
