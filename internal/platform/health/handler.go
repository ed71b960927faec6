package health

import (
	"net/http"

	"github.com/SlpAus/scrum-poker-backend/internal/platform/database"
	"github.com/gin-gonic/gin"
)

// GetStatus 报告共享存储的健康状态。
// 存储不可用时各客户端仍持有最后一次已知快照，因此这里只降级为503，
// 不代表本进程不可用。
func GetStatus(c *gin.Context) {
	if database.IsRedisHealthy() {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
		return
	}
	c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": "共享存储暂时不可用"})
}
