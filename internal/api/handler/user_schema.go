package handler

// --- Request / Response types of the directory API ---

type listUsersQuery struct {
	Page    int    `query:"page"    validate:"min=0"`
	Size    int    `query:"size"    validate:"min=0"`
	Keyword string `query:"keyword"`
}

type userIDParam struct {
	ID int64 `param:"id" validate:"gt=0"`
}
