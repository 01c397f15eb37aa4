package database

import (
	"gorm.io/gorm"
)

// GormAdapter wraps an existing gorm.DB to implement the Database interface.
// Tests use it to hand an in-memory database to the services.
type GormAdapter struct {
	db *gorm.DB
}

func NewGormAdapter(db *gorm.DB) Database {
	return &GormAdapter{db: db}
}

func (g *GormAdapter) DB() *gorm.DB {
	return g.db
}

func (g *GormAdapter) Close() error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (g *GormAdapter) Ping() error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

func (g *GormAdapter) AutoMigrate() error {
	return Migrate(g.db)
}
