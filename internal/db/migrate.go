package db

import (
	"errors"
	"fmt"
	"time"

	migrate "github.com/golang-migrate/migrate/v4"
	// register the postgres driver and file source for golang-migrate
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"gestifac/internal/config"
	"gestifac/internal/models"
	"gestifac/internal/numbering"
)

// AllModels is the AutoMigrate list, ordered so foreign keys resolve.
var AllModels = []any{
	&models.Role{}, &models.User{}, &models.Address{}, &models.CompanySettings{},
	&models.Category{}, &models.CustomFieldTemplate{}, &models.Article{}, &models.ArticleFieldValue{},
	&models.Client{}, &models.LoyaltyEntry{},
	&models.Serie{}, &models.Document{}, &models.DocumentLine{},
	&models.AuditLog{},
}

// ConnectAndMigrate opens the database with retries, runs migrations
// (SQL files when cfg.Migrations, AutoMigrate otherwise) and seeds
// reference data when cfg.Seed.
func ConnectAndMigrate(cfg config.Config, log *logrus.Logger) (*gorm.DB, error) {
	dsn := NormalizeDSN(cfg.DatabaseDSN)
	if dsn == "" {
		return nil, fmt.Errorf("DATABASE_DSN est vide, vérifiez la configuration de l'environnement")
	}
	gormLog := logger.Silent
	if cfg.Env == "development" && cfg.LogLevel == "debug" {
		gormLog = logger.Info
	}
	gcfg := &gorm.Config{Logger: logger.Default.LogMode(gormLog)}
	var conn *gorm.DB
	var err error
	for i := 0; i < 10; i++ {
		conn, err = gorm.Open(postgres.Open(dsn), gcfg)
		if err == nil {
			break
		}
		log.WithError(err).Warn("retrying DB connection")
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect database after retries: %w", err)
	}
	if pingErr := conn.Exec("SELECT 1").Error; pingErr != nil {
		return nil, fmt.Errorf("db ping failed: %w", pingErr)
	}
	log.WithField("dsn", MaskDSN(dsn)).Info("database connected")

	if cfg.Migrations {
		if err := runSQLMigrations(dsn); err != nil {
			return nil, fmt.Errorf("sql migrations failed: %w", err)
		}
	} else {
		for _, m := range AllModels {
			if migErr := conn.AutoMigrate(m); migErr != nil {
				return nil, fmt.Errorf("automigrate %T: %w", m, migErr)
			}
		}
	}

	for _, table := range []string{"roles", "users", "series", "documents"} {
		if !conn.Migrator().HasTable(table) {
			return nil, errors.New("missing table after migration: " + table)
		}
	}
	if cfg.Seed {
		Seed(conn, log)
	}
	return conn, nil
}

// Seed inserts the reference roles and the default numbering series.
// Idempotent: existing rows are left alone.
func Seed(conn *gorm.DB, log *logrus.Logger) {
	roles := []models.Role{
		{Name: "admin", Description: "Accès complet", Permissions: "*:*"},
		{Name: "gestion", Description: "Catalogue, clients et documents", Permissions: "article:*,category:*,client:*,document:*,loyalty:*"},
		{Name: "lecture", Description: "Consultation seule", Permissions: "article:view,category:view,client:view,document:view"},
	}
	for _, role := range roles {
		var existing models.Role
		if err := conn.Where("name = ?", role.Name).First(&existing).Error; errors.Is(err, gorm.ErrRecordNotFound) {
			if err := conn.Create(&role).Error; err != nil {
				log.WithError(err).WithField("role", role.Name).Warn("seed role failed")
			}
		}
	}

	// one default série per document type, only once a company exists
	var company models.CompanySettings
	if err := conn.Select("id").First(&company).Error; err != nil {
		return
	}
	series := []models.Serie{
		{CompanyID: company.ID, Type: models.DocDevis, Code: "DEV", Format: "{CODE}-{YEAR}-{NUM5}", ResetPolicy: models.ResetYearly, IsDefault: true},
		{CompanyID: company.ID, Type: models.DocFacture, Code: "FACT", Format: numbering.DefaultFormat, ResetPolicy: models.ResetNever, IsDefault: true},
		{CompanyID: company.ID, Type: models.DocAvoir, Code: "AV", Format: "{CODE}-{YEAR}-{NUM4}", ResetPolicy: models.ResetYearly, IsDefault: true},
	}
	for _, s := range series {
		var existing models.Serie
		if err := conn.Where("company_id = ? AND type = ?", s.CompanyID, s.Type).First(&existing).Error; errors.Is(err, gorm.ErrRecordNotFound) {
			if err := conn.Create(&s).Error; err != nil {
				log.WithError(err).WithField("type", s.Type).Warn("seed serie failed")
			}
		}
	}
}

// runSQLMigrations executes migrations in ./migrations via golang-migrate.
func runSQLMigrations(dsn string) error {
	m, err := migrate.New("file://migrations", dsn)
	if err != nil {
		return err
	}
	if err = m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}
