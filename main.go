package main

import (
	"log"

	"github.com/nbrandt/newsboard/config"
	"github.com/nbrandt/newsboard/models"
	"github.com/nbrandt/newsboard/routes"
	"github.com/nbrandt/newsboard/utils"
)

func main() {
	cfg := config.Load()

	if err := utils.InitLogger(cfg); err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer utils.Logger.Sync()

	db := config.InitDatabase(
		&models.User{},
		&models.Category{},
		&models.Post{},
		&models.Comment{},
	)

	if err := models.SeedCategories(db, cfg.SeedCategories); err != nil {
		utils.Sugar.Fatalf("seed categories: %v", err)
	}

	r := routes.SetupRouter(db)

	utils.Sugar.Infof("listening on :%s", cfg.AppPort)
	if err := utils.GraceServer(":"+cfg.AppPort, r); err != nil {
		utils.Sugar.Fatalf("server: %v", err)
	}
}
