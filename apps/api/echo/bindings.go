package echoapi

import (
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/cinetwork/cin/backend/core"
)

var orderingParam = "ordering"

type Ordering struct {
	Orderings []core.DBOrdering
}

func (ord *Ordering) Bind(ctx echo.Context) {
	data := ctx.QueryParams()
	if len(data) == 0 {
		return
	}
	val, ok := data[orderingParam]
	if !ok || len(val) == 0 || val[0] == "" {
		return
	}

	for _, field := range strings.Split(val[0], ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		if field == "" {
			continue
		}
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
}

// bindReviewNote binds the optional note of an approve/reject request. An empty body is fine.
func bindReviewNote(ctx echo.Context) (core.ReviewNote, error) {
	var rn core.ReviewNote
	if ctx.Request().ContentLength == 0 {
		return rn, nil
	}
	if err := ctx.Bind(&rn); err != nil {
		return rn, errors.Wrap(err, "binding to ReviewNote")
	}
	return rn, nil
}

type SuccessResponse struct {
	Success string `json:"success"`
}
