package wizard

import "errors"

var (
	// ErrValidationIncomplete 当前页缺少必选项，Next 禁用
	ErrValidationIncomplete = errors.New("当前页面尚未完成")
	// ErrBackDisabled 第一页不能后退
	ErrBackDisabled = errors.New("当前页面不能后退")
	// ErrPageOutOfRange 页面序号越界
	ErrPageOutOfRange = errors.New("页面序号越界")
	// ErrInvalidDirection 未知翻页方向
	ErrInvalidDirection = errors.New("无效的翻页方向")
)
