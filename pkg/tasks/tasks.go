// Package tasks defines the structure for tasks that are sent to Kafka.
package tasks

// FolderRenameTask 是档案展示名更新后投递的目录改名任务。
// 改名与触发它的数据库事务刻意解耦：任务结果只通过日志观察，
// 失败不会回滚也不会阻塞展示名的更新。
type FolderRenameTask struct {
	Category string `json:"category"`
	OwnerID  uint   `json:"owner_id"`
	OldName  string `json:"old_name"`
	NewName  string `json:"new_name"`
}
