package cart

import (
	apperrors "github.com/yilin/bookshop/pkg/errors"
)

// 购物车领域错误定义
var (
	// ErrInvalidQuantity 数量不合法
	ErrInvalidQuantity = apperrors.New(apperrors.ErrCodeInvalidParams, "数量必须大于0")
)
