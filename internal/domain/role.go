package domain

type Role string

const (
	RoleOperator Role = "operator" // 可以提交优化任务
	RoleViewer   Role = "viewer"   // 只能查看目录和结果
)
