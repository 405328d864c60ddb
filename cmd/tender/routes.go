package main

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"tender-golang/http-server/calculation"
	generate_excel "tender-golang/http-server/generate-report/generate-excel"
	deleteitem "tender-golang/http-server/items/delete"
	saveitem "tender-golang/http-server/items/save"
	updateitem "tender-golang/http-server/items/update"
	deletelink "tender-golang/http-server/links/delete"
	savelink "tender-golang/http-server/links/save"
	updatelink "tender-golang/http-server/links/update"
	getmarkup "tender-golang/http-server/markup/get"
	savemarkup "tender-golang/http-server/markup/save"
	move_material "tender-golang/http-server/move-material"
	getposition "tender-golang/http-server/position/get"
	"tender-golang/internal/config"
	"tender-golang/internal/middleware/auth"
	generate_excel2 "tender-golang/internal/service/generate-excel"
	"tender-golang/internal/service/links"
	"tender-golang/internal/service/recalc"
	"tender-golang/internal/service/transfer"
	"tender-golang/internal/storage/mysql"
)

func routes(
	cfg config.Config,
	log *slog.Logger,
	storage *mysql.Storage,
	recalcService *recalc.Service,
	linkRegistry *links.Registry,
	transferService *transfer.Service,
	genService *generate_excel2.GenerateExcelService,
) *chi.Mux {
	router := chi.NewRouter()

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   []string{"http://localhost:8081", "http://localhost:5173"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	})

	router.Use(corsHandler.Handler)

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	// Позиция со строками в отображаемом порядке и актуальными итогами
	router.Get("/api/positions/{id}", getposition.GetPosition(log, storage, recalcService))

	// Строки позиции
	router.Post("/api/items", saveitem.SaveItem(log, storage))
	router.Put("/api/items/update/{id}", updateitem.UpdateItem(log, storage, linkRegistry, recalcService))
	router.Delete("/api/items/{id}", deleteitem.DeleteItem(log, storage, recalcService))

	// Связки работа-материал
	router.Post("/api/links", savelink.SaveLink(log, linkRegistry, recalcService))
	router.Put("/api/links/material/{materialId}", updatelink.UpdateLink(log, linkRegistry, storage, recalcService))
	router.Delete("/api/links/{id}", deletelink.DeleteLink(log, linkRegistry, recalcService))

	// Атомарный перенос материала между работами и слияние конфликтов
	router.Post("/api/materials/move", move_material.MoveMaterial(log, transferService))
	router.Post("/api/materials/resolve", move_material.ResolveConflict(log, transferService))

	// Прогон каскада без сохранения — аудиторская раскладка по ступеням
	router.Post("/api/calculation/preview", calculation.PreviewCascade(log, storage))

	// Профиль наценок
	router.Get("/api/markup", getmarkup.GetActiveProfile(log, storage))

	// Выгрузка позиции в excel
	router.Get("/api/report/excel", generate_excel.GenerateReportExcel(log, genService))

	// Админка профилей наценок
	adminRouter := chi.NewRouter()
	adminRouter.Use(auth.BasicAuth(cfg.AdminLogin, cfg.AdminPass))

	adminRouter.Post("/markup/new", savemarkup.SaveProfileAdmin(log, storage))
	adminRouter.Get("/markup", getmarkup.GetActiveProfile(log, storage))

	router.Mount("/api/admin", adminRouter)

	return router
}
