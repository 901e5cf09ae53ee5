//go:build !purego

package store

// 默认构建走 gorm sqlite driver 自带的 mattn/go-sqlite3（需要 CGO）。
//
//	CGO_ENABLED=1 go build ./...
import (
	_ "github.com/mattn/go-sqlite3"
)

// SQLiteDriverName 是 database/sql 注册的驱动名。
const SQLiteDriverName = "sqlite3"
