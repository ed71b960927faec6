package health

import (
	"context"
	"fmt"
	"time"

	"github.com/SlpAus/scrum-poker-backend/internal/platform/database"
	"github.com/SlpAus/scrum-poker-backend/pkg/lifecycle"
)

const (
	checkInterval = 5 * time.Second
	pingTimeout   = 2 * time.Second
)

// PerformCheck 执行一次Redis可达性检查并更新全局健康状态。
func PerformCheck() {
	ctx, cancel := context.WithTimeout(database.Ctx, pingTimeout)
	defer cancel()

	err := database.RDB.Ping(ctx).Err()
	database.UpdateStatus(err == nil)
}

// StartRedisHealthCheck 启动后台的持续健康检查循环。
// 共享存储不可用只影响健康标志和日志：订阅方保留最后一次
// 已知快照继续展示，进程绝不因此崩溃，也不做自动重连补偿。
func StartRedisHealthCheck(handle *lifecycle.Handle) {
	defer handle.Close()
	fmt.Println("Redis健康检查器已启动。")

	for {
		if err := handle.Sleep(checkInterval); err != nil {
			fmt.Println("健康检查器: 收到停机信号，正在关闭...")
			return
		}
		PerformCheck()
	}
}
