package main

// Helper: go run ./cmd/server -backfill-article-codes
// Assigns codes to existing articles where Code is NULL/empty.

import (
	"flag"
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"gestifac/internal/models"
)

var backfillFlag = flag.Bool("backfill-article-codes", false, "Backfill missing article codes and exit")

func runBackfillArticleCodes(conn *gorm.DB, log *logrus.Logger) {
	var articles []models.Article
	if err := conn.Where("code = '' OR code IS NULL").Find(&articles).Error; err != nil {
		log.Fatalf("list articles: %v", err)
	}
	updated := 0
	for _, a := range articles {
		code := fmt.Sprintf("ART%06d", a.ID)
		if err := conn.Model(&models.Article{}).Where("id = ?", a.ID).Update("code", code).Error; err == nil {
			updated++
		}
	}
	log.WithField("updated", updated).Info("backfill done")
}
