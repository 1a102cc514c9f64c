package order

import (
	"context"

	"go.uber.org/zap"

	"github.com/yilin/bookshop/internal/domain/order"
)

// UpdateStatusUseCase 订单状态更新用例
// 状态流转规则由领域实体的状态机保证:
// pending→processing→shipped→delivered,pending/processing可取消
type UpdateStatusUseCase struct {
	orderRepo order.Repository
	logger    *zap.Logger
}

// NewUpdateStatusUseCase 创建状态更新用例
func NewUpdateStatusUseCase(orderRepo order.Repository, logger *zap.Logger) *UpdateStatusUseCase {
	return &UpdateStatusUseCase{
		orderRepo: orderRepo,
		logger:    logger,
	}
}

// UpdateStatusRequest 状态更新请求DTO
type UpdateStatusRequest struct {
	OrderID uint
	Status  string // 目标状态(pending/processing/shipped/delivered/cancelled)
}

// UpdateStatusResponse 状态更新响应DTO
type UpdateStatusResponse struct {
	OrderID   uint   `json:"order_id"`
	OrderNo   string `json:"order_no"`
	Status    string `json:"status"`
	UpdatedAt string `json:"updated_at"`
}

// Execute 执行状态更新
// 目标状态不合法返回ErrInvalidStatus,
// 当前状态不允许转换返回ErrInvalidStatusTransition
func (uc *UpdateStatusUseCase) Execute(ctx context.Context, req UpdateStatusRequest) (*UpdateStatusResponse, error) {
	// 1. 解析目标状态
	target, err := order.ParseStatus(req.Status)
	if err != nil {
		return nil, err
	}

	// 2. 查询订单
	o, err := uc.orderRepo.FindByID(ctx, req.OrderID)
	if err != nil {
		return nil, err
	}

	// 3. 状态机校验并转换
	if err := o.TransitionTo(target); err != nil {
		return nil, err
	}

	// 4. 持久化
	if err := uc.orderRepo.Update(ctx, o); err != nil {
		return nil, err
	}

	uc.logger.Info("订单状态已更新",
		zap.String("order_no", o.OrderNo),
		zap.String("status", o.Status.String()))

	return &UpdateStatusResponse{
		OrderID:   o.ID,
		OrderNo:   o.OrderNo,
		Status:    o.Status.String(),
		UpdatedAt: o.UpdatedAt.Format("2006-01-02 15:04:05"),
	}, nil
}
