package grpc

import (
	"context"

	"github.com/shopspring/decimal"
	"google.golang.org/grpc"

	"github.com/dmehra2102/restaurant-pos/internal/inventory/domain"
)

const serviceName = "pos.inventory.v1.StockService"

type GetStockRequest struct {
	EntityType domain.EntityType `json:"entityType"`
	EntityID   string            `json:"entityId"`
}

type ListStockRequest struct {
	EntityType domain.EntityType `json:"entityType,omitempty"`
	LowOnly    bool              `json:"lowOnly,omitempty"`
}

type ListStockResponse struct {
	Levels []domain.StockLevel `json:"levels"`
}

type AdjustStockRequest struct {
	EntityType domain.EntityType `json:"entityType"`
	EntityID   string            `json:"entityId"`
	Delta      decimal.Decimal   `json:"delta"`
	Type       domain.TxType     `json:"type,omitempty"`
	Reason     string            `json:"reason"`
}

type AdjustStockResponse struct {
	Level       domain.StockLevel       `json:"level"`
	Transaction domain.StockTransaction `json:"transaction"`
	Alert       *domain.Alert           `json:"alert,omitempty"`
}

type ListUnreadAlertsRequest struct{}

type ListUnreadAlertsResponse struct {
	Alerts []domain.Alert `json:"alerts"`
}

// StockServiceServer is the server API for pos.inventory.v1.StockService.
type StockServiceServer interface {
	GetStock(context.Context, *GetStockRequest) (*domain.StockLevel, error)
	ListStock(context.Context, *ListStockRequest) (*ListStockResponse, error)
	AdjustStock(context.Context, *AdjustStockRequest) (*AdjustStockResponse, error)
	ListUnreadAlerts(context.Context, *ListUnreadAlertsRequest) (*ListUnreadAlertsResponse, error)
}

func RegisterStockServiceServer(s grpc.ServiceRegistrar, srv StockServiceServer) {
	s.RegisterService(&StockServiceDesc, srv)
}

// unary builds a method handler that decodes Req and dispatches to call.
func unary[Req any](method string, call func(StockServiceServer, context.Context, *Req) (any, error)) grpc.MethodDesc {
	full := "/" + serviceName + "/" + method
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(StockServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: full}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(StockServiceServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

var StockServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*StockServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("GetStock", func(s StockServiceServer, ctx context.Context, in *GetStockRequest) (any, error) {
			return s.GetStock(ctx, in)
		}),
		unary("ListStock", func(s StockServiceServer, ctx context.Context, in *ListStockRequest) (any, error) {
			return s.ListStock(ctx, in)
		}),
		unary("AdjustStock", func(s StockServiceServer, ctx context.Context, in *AdjustStockRequest) (any, error) {
			return s.AdjustStock(ctx, in)
		}),
		unary("ListUnreadAlerts", func(s StockServiceServer, ctx context.Context, in *ListUnreadAlertsRequest) (any, error) {
			return s.ListUnreadAlerts(ctx, in)
		}),
	},
	Streams: []grpc.StreamDesc{},
}
