package handler

import "github.com/labstack/echo/v4"

// ctxActor returns the username injected by the Auth middleware, for audit
// logging. Empty when the route is unauthenticated.
func ctxActor(c echo.Context) string {
	actor, _ := c.Get("username").(string)
	return actor
}
