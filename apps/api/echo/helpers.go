package echoapi

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// paramID reads the `:id` path parameter. Anything but a positive integer is a 404.
func paramID(ctx echo.Context) (int, error) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil || id <= 0 {
		return 0, errHttpNotFound
	}
	return id, nil
}
