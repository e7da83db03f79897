package router

import (
	"github.com/gofiber/fiber/v2"
)

// Router mounts a group of routes on the app.
type Router interface {
	InstallRouter(app *fiber.App)
}

// InstallRouter mounts the routers in order. Docs go first so the swagger
// middleware sees requests before the API group.
func InstallRouter(app *fiber.App, routers ...Router) {
	setup(app, routers...)
}

func setup(app *fiber.App, router ...Router) {
	for _, r := range router {
		r.InstallRouter(app)
	}
}
