package models

import "time"

type RunStatus string

const (
	// 表示frpc进程正在运行
	StatusRunning RunStatus = "running"
	// 表示未运行，包括用户主动停止和进程自行退出
	StatusStopped RunStatus = "stopped"
	// 表示启动失败
	StatusError RunStatus = "error"
)

// ProcessDetail describes a live frpc process owned by the registry.
type ProcessDetail struct {
	ConfigID  string    `json:"configId"`  //所属配置ID
	Pid       int       `json:"pid"`       //进程PID
	Command   string    `json:"command"`   //进程启动命令
	Args      []string  `json:"args"`      //进程参数
	WorkDir   string    `json:"workDir"`   //工作目录
	StartTime time.Time `json:"startTime"` //启动时间
	LogChunks int       `json:"logChunks"` //缓冲区中的日志块数
	Alive     bool      `json:"alive"`     //操作系统中进程是否仍存在
}
