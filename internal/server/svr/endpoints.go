package svr

import (
	"github.com/gofiber/fiber/v2"
)

// V1 is the public API, mounted at /api.
type V1 struct {
	fiber.Router
}

// Meta serves operational endpoints such as health and build info.
type Meta struct {
	fiber.Router
}

func CreateEndpointGroups(app *fiber.App) (*V1, *Meta) {
	v1 := app.Group("/api")
	meta := app.Group("/api/_")

	return &V1{Router: v1}, &Meta{Router: meta}
}
