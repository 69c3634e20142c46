package errcode

// 导出任务与通知中使用的错误码：
// 0 表示成功；4xxx 表示流程可以继续或输入本身有问题；5xxx 表示需要重试或人工介入。
const (
	OK = 0
	// InvalidDocument 表示导出文件未通过导入检查，重试不会成功。
	InvalidDocument = 4000
	// ResourceMissing 表示图标或头像被省略，PDF 仍然生成。
	ResourceMissing = 4004
	SystemError     = 5000
	// RendererUnavailable 表示无头浏览器无法启动或连接。
	RendererUnavailable = 5003
)

// Retryable 判断该错误码对应的失败是否值得重试。
func Retryable(code int) bool {
	return code >= SystemError
}
