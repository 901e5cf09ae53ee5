package store

import (
	"fmt"

	"eatery/internal/model"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// 支持的数据库驱动
const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
)

// Options 描述如何连接订单库。
type Options struct {
	Driver string // sqlite / mysql
	Path   string // sqlite 文件路径，":memory:" 为内存库
	DSN    string // mysql DSN
}

// Open 打开数据库连接。sqlite 单连接写入，事务天然串行。
func Open(opts Options) (*gorm.DB, error) {
	cfg := &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)}

	switch opts.Driver {
	case "", DriverSQLite:
		db, err := gorm.Open(sqlite.New(sqlite.Config{DriverName: SQLiteDriverName, DSN: opts.Path}), cfg)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
		sqlDB.SetConnMaxLifetime(0)
		if err := db.Exec("PRAGMA busy_timeout = 5000").Error; err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("set busy_timeout: %w", err)
		}
		return db, nil
	case DriverMySQL:
		if opts.DSN == "" {
			return nil, fmt.Errorf("mysql DSN must not be empty")
		}
		db, err := gorm.Open(mysql.Open(opts.DSN), cfg)
		if err != nil {
			return nil, fmt.Errorf("open mysql: %w", err)
		}
		return db, nil
	default:
		return nil, fmt.Errorf("unsupported db driver %q", opts.Driver)
	}
}

// Migrate 自动建表。
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.FoodItem{},
		&model.OrderLine{},
		&model.OrderTracking{},
		&model.OrderEvent{},
	)
}
