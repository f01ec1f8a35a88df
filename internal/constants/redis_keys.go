package constants

// Redis Key 前缀和格式常量
// 使用统一的命名规范: app:{module}:{entity}:{unique_id}
const (
	// AppPrefix 是所有Redis Key的统一应用前缀
	AppPrefix = "app"

	// ScreeningModulePrefix 筛选对话模块
	ScreeningModulePrefix = "screening"

	// EntityMemory 对话记录实体
	EntityMemory = "memory"

	// KeyChatMemoryPrefix 会话对话记录 (LIST)，后接会话句柄
	// 格式: app:screening:memory:{conversationID}
	KeyChatMemoryPrefix = AppPrefix + ":" + ScreeningModulePrefix + ":" + EntityMemory + ":"
)
