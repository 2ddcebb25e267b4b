package views

import (
	"github.com/timzifer/pharmadesk/runtime/lifecycle"
)

// State is what a list body shows.
type State string

const (
	// StateLoading shows a loading indicator.
	StateLoading State = "loading"
	// StateEmpty shows the empty-state indicator.
	StateEmpty State = "empty"
	// StateRows shows the transformed rows.
	StateRows State = "rows"
	// StateError shows an inline error.
	StateError State = "error"
)

// GenericErrorMessage is the inline error shown for failed fetches.
const GenericErrorMessage = "حدث خطأ ما..."

// ListView is the render model of a paginated list.
type ListView[R any] struct {
	State     State
	Rows      []R
	Message   string
	PageIndex int
	PageSize  int
	PageCount int
}

// Page is the slice of data a list is rendered from.
type Page[T any] struct {
	Items        []T
	TotalRecords int
	Present      bool
}

// RenderList maps an operation status and its last payload onto a list view.
// Rows are derived from items on every call and never cached.
func RenderList[T, R any](status lifecycle.Status, page Page[T], pageIndex, pageSize int, transform func(T) R) ListView[R] {
	view := ListView[R]{
		PageIndex: pageIndex,
		PageSize:  pageSize,
	}
	if page.Present {
		view.PageCount = PageCount(page.TotalRecords, pageSize)
	}
	switch status {
	case lifecycle.StatusLoading:
		view.State = StateLoading
	case lifecycle.StatusSucceeded:
		if len(page.Items) == 0 {
			view.State = StateEmpty
			return view
		}
		view.State = StateRows
		view.Rows = transformRows(page.Items, transform)
	case lifecycle.StatusFailed:
		view.State = StateError
		view.Message = GenericErrorMessage
		if page.Present {
			view.Rows = transformRows(page.Items, transform)
		}
	default:
		view.State = StateEmpty
	}
	return view
}

func transformRows[T, R any](items []T, transform func(T) R) []R {
	rows := make([]R, 0, len(items))
	for _, item := range items {
		rows = append(rows, transform(item))
	}
	return rows
}

// PageCount returns how many pages totalRecords spans.
func PageCount(totalRecords, pageSize int) int {
	if totalRecords <= 0 {
		return 0
	}
	if pageSize <= 0 {
		return 1
	}
	return (totalRecords + pageSize - 1) / pageSize
}
