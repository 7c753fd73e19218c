package crawlers

import (
	"github.com/RecoveryAshes/sphistory/internal/models"
	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v3/mem"
)

const mb = 1024 * 1024

// ResourceMonitor 系统资源检查
// 职责: 启动时根据可用内存判断配置的并发标签页上限是否安全,只会调低不会调高
type ResourceMonitor struct {
	config models.ResourceConfig

	// 读取系统内存,测试时替换
	virtualMemory func() (*mem.VirtualMemoryStat, error)
}

// MemoryStatus 内存状态信息
type MemoryStatus struct {
	TotalMemory     uint64 // 系统总内存(字节)
	AvailableMemory uint64 // 可用内存(字节)
	SafetyReserve   int64  // 安全保留内存(字节)
	MemoryPressure  string // 内存压力等级
}

// NewResourceMonitor 创建资源监控器实例
func NewResourceMonitor(config models.ResourceConfig) *ResourceMonitor {
	if config.TabMemoryMB <= 0 {
		config.TabMemoryMB = 100
	}
	if config.SafetyReserveMB < 0 {
		config.SafetyReserveMB = 0
	}
	return &ResourceMonitor{
		config:        config,
		virtualMemory: mem.VirtualMemory,
	}
}

// GetMemoryStatus 获取当前内存状态
func (rm *ResourceMonitor) GetMemoryStatus() (MemoryStatus, error) {
	vm, err := rm.virtualMemory()
	if err != nil {
		return MemoryStatus{}, err
	}

	usable := int64(vm.Available) - rm.config.SafetyReserveMB*mb
	var pressure string
	switch usableMB := usable / mb; {
	case usableMB < 200:
		pressure = "emergency"
	case usableMB < 300:
		pressure = "critical"
	case usableMB < 500:
		pressure = "warning"
	default:
		pressure = "normal"
	}

	return MemoryStatus{
		TotalMemory:     vm.Total,
		AvailableMemory: vm.Available,
		SafetyReserve:   rm.config.SafetyReserveMB * mb,
		MemoryPressure:  pressure,
	}, nil
}

// SafeCeiling 返回不超过configured的安全标签页上限,至少为1
// 读取内存失败或检查被禁用时原样返回configured
func (rm *ResourceMonitor) SafeCeiling(configured int) int {
	if !rm.config.Enabled || configured <= 1 {
		return configured
	}

	status, err := rm.GetMemoryStatus()
	if err != nil {
		log.Warn().Err(err).Msg("获取系统内存失败,使用配置的并发上限")
		return configured
	}

	usable := int64(status.AvailableMemory) - status.SafetyReserve
	byMemory := int(usable / (rm.config.TabMemoryMB * mb))
	if byMemory < 1 {
		byMemory = 1
	}
	if byMemory >= configured {
		return configured
	}

	log.Warn().
		Str("pressure", status.MemoryPressure).
		Uint64("available_mb", status.AvailableMemory/mb).
		Msgf("可用内存不足,并发标签页上限从 %d 降为 %d", configured, byMemory)
	return byMemory
}
