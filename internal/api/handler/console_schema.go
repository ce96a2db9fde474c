package handler

import (
	"github.com/msb-virtuoso/user-admin/internal/core/domain"
	"github.com/msb-virtuoso/user-admin/internal/core/service"
)

// --- Console requests ---

type searchRequest struct {
	Keyword string `json:"keyword" form:"keyword"`
}

type pageRequest struct {
	Page int `json:"page" form:"page" validate:"min=1"`
}

// formRequest is the JSON variant of the user form post.
type formRequest struct {
	Action string       `json:"action"`
	Draft  domain.Draft `json:"draft"`
}

// --- Console responses ---

type modeResponse struct {
	Kind    domain.ModeKind `json:"kind"`
	Subject *domain.User    `json:"subject,omitempty"`
}

type listStateResponse struct {
	Page          int               `json:"page"`
	PageSize      int               `json:"pageSize"`
	Keyword       string            `json:"keyword"`
	Users         []domain.User     `json:"users"`
	TotalPages    int               `json:"totalPages"`
	TotalElements int64             `json:"totalElements"`
	Loading       bool              `json:"loading"`
	Saving        bool              `json:"saving"`
	Mode          modeResponse      `json:"mode"`
	Draft         *domain.Draft     `json:"draft,omitempty"`
	FieldErrors   map[string]string `json:"fieldErrors,omitempty"`
	Alert         string            `json:"alert,omitempty"`
}

type stagedFileResponse struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
}

type importStateResponse struct {
	Stage  service.ImportStage  `json:"stage"`
	File   *stagedFileResponse  `json:"file,omitempty"`
	Result *domain.ImportResult `json:"result,omitempty"`
	Error  string               `json:"error,omitempty"`
}

type consoleStateResponse struct {
	List   listStateResponse   `json:"list"`
	Import importStateResponse `json:"import"`
}

// usersPage is the data of the "users" template.
type usersPage struct {
	Title  string
	List   service.ListState
	Import service.ImportState
}

func toStateResponse(l service.ListState, i service.ImportState) consoleStateResponse {
	users := l.Users
	if users == nil {
		users = []domain.User{}
	}
	resp := consoleStateResponse{
		List: listStateResponse{
			Page:          l.Page,
			PageSize:      l.PageSize,
			Keyword:       l.Keyword,
			Users:         users,
			TotalPages:    l.TotalPages,
			TotalElements: l.TotalElements,
			Loading:       l.Loading,
			Saving:        l.Saving,
			Mode:          modeResponse{Kind: l.Mode.Kind, Subject: l.Mode.Subject},
			Draft:         l.Draft,
			FieldErrors:   l.FieldErrors,
			Alert:         l.Alert,
		},
		Import: importStateResponse{
			Stage:  i.Stage,
			Result: i.Result,
			Error:  i.Error,
		},
	}
	if i.File != nil {
		resp.Import.File = &stagedFileResponse{Name: i.File.Name, Size: i.File.Size}
	}
	return resp
}
