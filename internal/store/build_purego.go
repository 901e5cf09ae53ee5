//go:build purego

package store

// purego 构建使用纯 Go 的 modernc.org/sqlite，无需 C 编译器。
//
//	CGO_ENABLED=0 go build -tags purego ./...
import (
	_ "modernc.org/sqlite"
)

// SQLiteDriverName 是 database/sql 注册的驱动名。
const SQLiteDriverName = "sqlite"
