package httpserver

import (
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/okravchenko/parking-api/internal/handlers"
	authmw "github.com/okravchenko/parking-api/internal/middleware/auth"
	"github.com/okravchenko/parking-api/internal/models"
)

type Deps struct {
	DB             *gorm.DB
	Guard          *authmw.Guard
	AuthHandler    *handlers.AuthHandler
	AdminHandler   *handlers.AdminHandler
	ParkingHandler *handlers.ParkingHandler
	SearchHandler  *handlers.SearchHandler
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(200) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(200) })

	api := e.Group("/api")

	auth := api.Group("/auth")
	auth.POST("/signup", d.AuthHandler.Signup)
	auth.POST("/login", d.AuthHandler.Login)
	auth.POST("/logout", d.AuthHandler.Logout, d.Guard.RequireAuth)
	auth.GET("/refresh_token", d.AuthHandler.Refresh)
	auth.POST("/request_email", d.AuthHandler.RequestEmail)
	auth.GET("/confirmed_email/:token", d.AuthHandler.ConfirmedEmail)

	admin := api.Group("/admin", d.Guard.RequireAuth)
	adminOnly := d.Guard.RequireRoles(models.RoleAdmin)

	admin.PUT("/users/block", d.AdminHandler.BlockUser, adminOnly)
	admin.PUT("/unblock", d.AdminHandler.UnblockUser, adminOnly)
	admin.PUT("/:user_id/change_role", d.AdminHandler.ChangeRole, adminOnly)
	admin.POST("/parking-rates", d.AdminHandler.SetParkingRate, adminOnly)
	admin.GET("/parking-info/available-spaces", d.AdminHandler.AvailableSpaces)
	admin.PUT("/parking-info", d.AdminHandler.UpdateParkingInfo, adminOnly)
	admin.POST("/generate-report", d.AdminHandler.GenerateReport, adminOnly)
	admin.PUT("/vehicles/:plate/blacklist", d.AdminHandler.BlacklistVehicle, adminOnly)
	admin.GET("/parking-records/search", d.SearchHandler.Search,
		d.Guard.RequireRoles(models.RoleAdmin, models.RoleModerator))

	vehicles := api.Group("/vehicles", d.Guard.RequireAuth)
	vehicles.POST("", d.ParkingHandler.RegisterVehicle)
	vehicles.GET("", d.ParkingHandler.MyVehicles)

	parking := api.Group("/parking", d.Guard.RequireAuth)
	parking.POST("/entry", d.ParkingHandler.Entry)
	parking.POST("/exit", d.ParkingHandler.Exit)
}
