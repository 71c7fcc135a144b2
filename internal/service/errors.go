package service

import "errors"

var (
	ErrSessionNotFound   = errors.New("向导会话不存在或已过期")
	ErrNoCarrierSelected = errors.New("未选择承运商")
	ErrUnknownCarrier    = errors.New("承运商未启用")
	ErrRowNotFound       = errors.New("选项不存在，请刷新后重试")
	ErrBusy              = errors.New("请求处理中，请勿重复提交")
	ErrAlreadyDone       = errors.New("操作已完成")
	ErrNotApplicable     = errors.New("当前状态下不可执行该操作")
	ErrVoidNotConfirmed  = errors.New("请先确认取消运单")
	ErrShipmentNotFound  = errors.New("运单记录不存在")
	ErrStaleContext      = errors.New("承运商或计费方式已变更，请重新操作")
)
