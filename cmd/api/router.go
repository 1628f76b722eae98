package main

import (
	"database/sql"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

func newRouter(db *sql.DB, logger *zerolog.Logger) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger))

	r.Route("/products", func(r chi.Router) {
		r.Post("/", handleCreateProduct(db))
		r.Get("/", handleListProducts(db))
		r.Get("/{id}", handleGetProduct(db))
		r.Put("/{id}", handleUpdateProduct(db))
		r.Delete("/{id}", handleDeleteProduct(db))
	})

	r.Route("/orders", func(r chi.Router) {
		r.Post("/", handleCreateOrder(db))
		r.Get("/", handleListOrders(db))
		r.Get("/{id}", handleGetOrder(db))
		r.Get("/user/{userID}", handleListOrdersByUser(db))
		r.Put("/{id}", handleUpdateOrder(db))
		r.Delete("/{id}", handleDeleteOrder(db))
		r.Delete("/{id}/restock", handleRestockThenDeleteOrder(db))
	})

	return r
}
