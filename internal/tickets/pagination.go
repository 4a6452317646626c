package tickets

// Pagination is the computed page state handed to the list views. Start
// and End are 1-based display indexes.
type Pagination struct {
	Total       int  `json:"total"`
	Page        int  `json:"page"`
	Limit       int  `json:"limit"`
	Start       int  `json:"start"`
	End         int  `json:"end"`
	Enabled     bool `json:"enabled"`
	PrevPage    int  `json:"prevPage"`
	PrevEnabled bool `json:"prevEnabled"`
	NextPage    int  `json:"nextPage"`
	NextEnabled bool `json:"nextEnabled"`
}

// Paginate computes page boundaries for a result set. A limit of exactly 1
// means no explicit limit was given and becomes 10.
func Paginate(total, page, limit int) Pagination {
	if limit == 1 {
		limit = 10
	}
	if limit <= 0 {
		limit = 10
	}
	if page < 0 {
		page = 0
	}

	p := Pagination{
		Total:   total,
		Page:    page,
		Limit:   limit,
		Enabled: total > limit,
	}

	if page == 0 {
		p.Start = 1
		p.End = limit
	} else {
		p.Start = page * limit
		p.End = page*limit + limit
	}

	p.PrevEnabled = page != 0
	if page == 0 {
		p.PrevPage = 0
	} else {
		p.PrevPage = page - 1
	}

	p.NextEnabled = page*limit+limit <= total
	if p.NextEnabled {
		p.NextPage = page + 1
	} else {
		p.NextPage = page
	}
	return p
}
