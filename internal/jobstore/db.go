package jobstore

import (
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Connect opens the MySQL connection pool and runs AutoMigrate for the three
// Store entities. Unreachable database at boot is a fatal startup condition;
// callers are expected to treat a non-nil error as such.
func Connect(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&InboundEvent{}, &Job{}, &Attempt{}); err != nil {
		return nil, err
	}
	return db, nil
}
