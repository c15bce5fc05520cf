package repository

// normalizePage clamps pagination inputs to sane values.
func normalizePage(limit, page int) (int, int) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 1000 {
		limit = 1000
	}
	if page <= 0 {
		page = 1
	}
	return limit, page
}
