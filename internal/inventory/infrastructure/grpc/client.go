package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"

	"github.com/dmehra2102/restaurant-pos/internal/inventory/domain"
	"github.com/dmehra2102/restaurant-pos/pkg/actor"
)

// Client calls StockService over the json content-subtype.
type Client struct {
	cc *grpc.ClientConn
}

func NewClient(addr string, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(codecName)),
	}, opts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, err
	}
	return &Client{cc: conn}, nil
}

func (c *Client) Close() error { return c.cc.Close() }

func (c *Client) invoke(ctx context.Context, method string, in, out any) error {
	if a, ok := actor.FromContext(ctx); ok {
		ctx = metadata.AppendToOutgoingContext(ctx, ActorIDKey, a.ID, ActorKindKey, string(a.Kind))
	}
	return c.cc.Invoke(ctx, "/"+serviceName+"/"+method, in, out)
}

func (c *Client) GetStock(ctx context.Context, key domain.StockKey) (domain.StockLevel, error) {
	var out domain.StockLevel
	err := c.invoke(ctx, "GetStock", &GetStockRequest{EntityType: key.EntityType, EntityID: key.EntityID}, &out)
	return out, err
}

func (c *Client) ListStock(ctx context.Context, req ListStockRequest) ([]domain.StockLevel, error) {
	var out ListStockResponse
	if err := c.invoke(ctx, "ListStock", &req, &out); err != nil {
		return nil, err
	}
	return out.Levels, nil
}

func (c *Client) AdjustStock(ctx context.Context, req AdjustStockRequest) (AdjustStockResponse, error) {
	var out AdjustStockResponse
	err := c.invoke(ctx, "AdjustStock", &req, &out)
	return out, err
}

func (c *Client) ListUnreadAlerts(ctx context.Context) ([]domain.Alert, error) {
	var out ListUnreadAlertsResponse
	if err := c.invoke(ctx, "ListUnreadAlerts", &ListUnreadAlertsRequest{}, &out); err != nil {
		return nil, err
	}
	return out.Alerts, nil
}
