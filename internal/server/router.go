// Package server собирает HTTP router сервера из handlers и middleware.
package server

import (
	"log/slog"
	"net/http"

	"github.com/plantit/plantit/internal/server/handlers"
	"github.com/plantit/plantit/internal/server/jwt"
	"github.com/plantit/plantit/internal/server/middleware"
	"github.com/plantit/plantit/internal/server/storage"
)

// NewRouter строит router сервера.
// Health и auth endpoint-ы публичные, все остальное за JWT auth middleware.
func NewRouter(
	logger *slog.Logger,
	users storage.UserStorage,
	garden storage.GardenStorage,
	tokens *jwt.Manager,
	version string,
) http.Handler {
	authHandler := handlers.NewAuthHandler(logger, users, tokens)
	gardenHandler := handlers.NewGardenHandler(logger, garden)
	vmHandler := handlers.NewVMHandler(logger, garden)
	healthHandler := handlers.NewHealthHandler(logger, version)

	// Защищенные маршруты
	protected := http.NewServeMux()

	protected.HandleFunc("POST /api/v1/villages", gardenHandler.CreateVillage)
	protected.HandleFunc("GET /api/v1/villages", gardenHandler.ListVillages)
	protected.HandleFunc("GET /api/v1/villages/{id}", gardenHandler.GetVillage)
	protected.HandleFunc("PATCH /api/v1/villages/{id}", gardenHandler.UpdateVillage)
	protected.HandleFunc("DELETE /api/v1/villages/{id}", gardenHandler.DeleteVillage)

	protected.HandleFunc("POST /api/v1/plants", gardenHandler.CreatePlant)
	protected.HandleFunc("GET /api/v1/plants/{id}", gardenHandler.GetPlant)
	protected.HandleFunc("PATCH /api/v1/plants/{id}", gardenHandler.UpdatePlant)
	protected.HandleFunc("DELETE /api/v1/plants/{id}", gardenHandler.DeletePlant)

	protected.HandleFunc("POST /api/v1/tasks", gardenHandler.CreateTask)
	protected.HandleFunc("GET /api/v1/tasks/{id}", gardenHandler.GetTask)
	protected.HandleFunc("PATCH /api/v1/tasks/{id}", gardenHandler.UpdateTask)
	protected.HandleFunc("DELETE /api/v1/tasks/{id}", gardenHandler.DeleteTask)

	protected.HandleFunc("POST /api/v1/photos", gardenHandler.AttachPhoto)
	protected.HandleFunc("DELETE /api/v1/photos/{id}", gardenHandler.DeletePhoto)

	protected.HandleFunc("GET /api/v1/vm/home", vmHandler.Home)
	protected.HandleFunc("GET /api/v1/vm/villages", vmHandler.Villages)
	protected.HandleFunc("GET /api/v1/vm/village/{id}", vmHandler.VillageDetail)
	protected.HandleFunc("GET /api/v1/vm/plant/{id}", vmHandler.PlantDetail)
	protected.HandleFunc("GET /api/v1/vm/tasks", vmHandler.Tasks)

	requireAuth := middleware.Auth(logger, tokens)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/health", healthHandler.Health)
	mux.HandleFunc("POST /api/v1/auth/register", authHandler.Register)
	mux.HandleFunc("POST /api/v1/auth/login", authHandler.Login)
	mux.Handle("/api/v1/", requireAuth(protected))

	var handler http.Handler = mux
	handler = middleware.Logging(logger)(handler)
	handler = middleware.Correlation()(handler)
	handler = middleware.Recovery(logger)(handler)
	return handler
}
