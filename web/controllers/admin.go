package controllers

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

// Info reports host load for operators.
func (h *Handler) Info(c *gin.Context) {
	ctx := c.Request.Context()
	info := gin.H{
		"goroutines": runtime.NumGoroutine(),
		"time":       time.Now().UTC().Format(time.RFC3339),
	}
	if hi, err := host.InfoWithContext(ctx); err == nil {
		info["hostname"] = hi.Hostname
		info["uptime"] = hi.Uptime
		info["platform"] = hi.Platform
	}
	if pct, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(pct) > 0 {
		info["cpu_percent"] = pct[0]
	}
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		info["mem_total"] = vm.Total
		info["mem_used"] = vm.Used
		info["mem_percent"] = vm.UsedPercent
	}
	c.JSON(http.StatusOK, info)
}

func (h *Handler) Reconcile(c *gin.Context) {
	rep, err := h.Reconciler.Run(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"report": rep})
}
