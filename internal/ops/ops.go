package ops

// User-facing messages set on the session after an action.
const (
	MsgImported          = "已导入 %d 个文件"
	MsgRecognized        = "识别完成"
	MsgPreviewed         = "命名预览已生成"
	MsgUpdated           = "已更新"
	MsgSynced            = "已同步 %d 项修改"
	MsgRemoved           = "已从列表移除 %d 项"
	MsgCleared           = "列表已清空"
	MsgPlanned           = "计划生成完成：%d 项"
	MsgRenamed           = "改名执行完成：%s"
	MsgTemplateSaved     = "命名模板已保存"
	MsgMappingSaved      = "关键词映射已保存"
	MsgSettingsSaved     = "设置已保存"
	MsgNoTask            = "请先导入发票"
	MsgNoPaths           = "请先选择要导入的文件或文件夹"
	MsgSelectToRecognize = "请先勾选需要识别的发票"
	MsgSelectToRemove    = "请先勾选要移除的发票"
	MsgSelectToRename    = "请先勾选要改名的发票"
	MsgEmptyTargetName   = "选中项存在新文件名为空，请先识别后再改名"
	MsgItemNotFound      = "发票不存在: %s"
)

// BridgeNoResult is the message synthesized when the bridge returns nothing for an item.
const BridgeNoResult = "bridge_no_result"
