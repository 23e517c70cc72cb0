package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"taskhive/authz"
	"taskhive/cache"
	controller "taskhive/controllers"
	"taskhive/middleware"
)

// SetupRoutes mounts the public auth endpoints and the protected API surface.
func SetupRoutes(app *fiber.App, db *gorm.DB, engine *authz.Engine, store *cache.Cache, logger *logrus.Logger) {
	teams := controller.NewTeamController(db, engine, store, logger)
	projects := controller.NewProjectController(db, engine, store, logger)
	tasks := controller.NewTaskController(db, engine, store, logger)
	users := controller.NewUserController(db, engine, store, logger)
	dashboard := controller.NewDashboardController(db, store, logger)

	auth := app.Group("/auth", middleware.AuthRateLimiter())
	auth.Post("/register", controller.Register)
	auth.Post("/login", controller.Login)
	auth.Post("/refresh", controller.RefreshToken)
	auth.Post("/logout", controller.Logout)
	auth.Get("/me", middleware.Protected(), controller.GetCurrentUser)

	api := app.Group("/api/v1", middleware.Protected())

	api.Get("/dashboard", dashboard.Dashboard)
	api.Get("/my/projects", dashboard.MyProjects)
	api.Get("/my/teams", dashboard.MyTeams)
	api.Get("/my/tasks", dashboard.MyTasks)

	u := api.Group("/users")
	u.Get("/", users.ListUsers)
	u.Post("/", users.CreateUser)
	u.Get("/:id", users.GetUser)
	u.Delete("/:id", users.DeleteUser)

	r := api.Group("/roles")
	r.Get("/", users.ListRoles)
	r.Post("/assign", users.AssignRole)
	r.Post("/remove", users.RemoveRole)

	t := api.Group("/teams")
	t.Get("/", teams.ListTeams)
	t.Post("/", teams.CreateTeam)
	t.Get("/:id", teams.GetTeam)
	t.Put("/:id", teams.UpdateTeam)
	t.Delete("/:id", teams.DeleteTeam)
	t.Post("/:id/projects", teams.AddProject)
	t.Delete("/:id/projects/:projectID", teams.RemoveProject)
	t.Post("/:id/members", teams.AddMember)
	t.Delete("/:id/members/:userID", teams.RemoveMember)

	p := api.Group("/projects")
	p.Get("/", projects.ListProjects)
	p.Post("/", projects.CreateProject)
	p.Get("/:id", projects.GetProject)
	p.Put("/:id", projects.UpdateProject)
	p.Delete("/:id", projects.DeleteProject)
	p.Get("/:id/statistics", projects.GetStatistics)

	k := api.Group("/tasks")
	k.Get("/", tasks.ListTasks)
	k.Post("/", tasks.CreateTask)
	k.Get("/:id", tasks.GetTask)
	k.Put("/:id", tasks.UpdateTask)
	k.Delete("/:id", tasks.DeleteTask)
	k.Post("/:id/assign", tasks.AssignUser)
	k.Post("/:id/unassign", tasks.UnassignUser)
}
