package main

import (
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"golang.org/x/time/rate"

	"github.com/LoneStarCivic/LSC-Backend/internal/api"
	"github.com/LoneStarCivic/LSC-Backend/internal/config"
	"github.com/LoneStarCivic/LSC-Backend/internal/db"
	"github.com/LoneStarCivic/LSC-Backend/internal/middleware"
)

func RootHandler(w http.ResponseWriter, r *http.Request) {
	response := "Server is up!"
	w.Header().Set("Content-Type", "text/plain")
	fmt.Fprintln(w, response)
}

func main() {
	_ = godotenv.Load(".env.local")

	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatal(err)
	}

	if err := db.Connect(cfg.DatabaseURL); err != nil {
		log.Fatal(err)
	}
	api.Init()

	r := chi.NewRouter()
	r.Use(middleware.CORSMiddleware)
	r.Use(middleware.RateLimitMiddleware(rate.Limit(20), 40))
	r.Use(middleware.APIKeyMiddleware(cfg.APIKeyHash))
	r.Get("/", RootHandler)

	r.Mount("/redistrict", api.SetupRoutes(api.DBStore{}))

	fmt.Println("Server listening on port :" + cfg.Port + "...")

	http.ListenAndServe("0.0.0.0:"+cfg.Port, r)
}
