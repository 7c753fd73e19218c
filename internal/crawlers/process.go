package crawlers

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/process"
)

// Process 由本程序启动的浏览器进程
type Process interface {
	PID() int
	Kill()
}

// waitProcessExit 轮询直到进程退出或超时
func waitProcessExit(ctx context.Context, pid int, timeout time.Duration) error {
	if pid <= 0 {
		return nil
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		exists, err := process.PidExists(int32(pid))
		if err != nil {
			return fmt.Errorf("检查进程 %d 状态失败: %w", pid, err)
		}
		if !exists {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("等待进程 %d 退出超时(%s)", pid, timeout)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// runningProcesses 返回可执行文件名与exe相同的正在运行的进程PID
func runningProcesses(exe string) ([]int32, error) {
	name := strings.ToLower(filepath.Base(exe))
	if name == "" || name == "." {
		return nil, nil
	}

	procs, err := process.Processes()
	if err != nil {
		return nil, err
	}

	var pids []int32
	for _, p := range procs {
		pname, err := p.Name()
		if err != nil {
			continue
		}
		if strings.ToLower(pname) == name {
			pids = append(pids, p.Pid)
		}
	}
	return pids, nil
}
