package database

import (
	"fmt"
	"log"
	"os"

	"github.com/SlpAus/scrum-poker-backend/internal/platform/config"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB 是全局的本地SQLite句柄，只用于持久化本机的身份缓存
var DB *gorm.DB

// InitDB 初始化本地身份缓存数据库的连接
func InitDB(cfg config.SqliteConfig) {
	var err error

	newLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold: 0,
			LogLevel:      logger.Silent,
			Colorful:      true,
		},
	)

	DB, err = gorm.Open(sqlite.Open(cfg.Path), &gorm.Config{
		Logger: newLogger,
	})

	if err != nil {
		fmt.Println("连接本地数据库失败", err)
		panic(err)
	}

	fmt.Println("本地数据库连接成功！")
}
