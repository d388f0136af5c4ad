package grpc

import (
	"context"
	"log/slog"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/dmehra2102/restaurant-pos/internal/inventory/application"
	"github.com/dmehra2102/restaurant-pos/internal/inventory/domain"
	"github.com/dmehra2102/restaurant-pos/pkg/actor"
	"github.com/dmehra2102/restaurant-pos/pkg/apperr"
)

// Metadata keys carrying the calling actor.
const (
	ActorIDKey   = "x-actor-id"
	ActorKindKey = "x-actor-kind"
)

type Server struct {
	log *slog.Logger
	svc *application.Service
}

func NewServer(log *slog.Logger, svc *application.Service) *Server {
	return &Server{log: log, svc: svc}
}

func (s *Server) GetStock(ctx context.Context, req *GetStockRequest) (*domain.StockLevel, error) {
	level, err := s.svc.GetStock(ctx, domain.StockKey{EntityType: req.EntityType, EntityID: req.EntityID})
	if err != nil {
		return nil, toStatus(err)
	}
	return &level, nil
}

func (s *Server) ListStock(ctx context.Context, req *ListStockRequest) (*ListStockResponse, error) {
	levels, err := s.svc.Snapshot(ctx, application.StockFilter{EntityType: req.EntityType, LowOnly: req.LowOnly})
	if err != nil {
		return nil, toStatus(err)
	}
	return &ListStockResponse{Levels: levels}, nil
}

func (s *Server) AdjustStock(ctx context.Context, req *AdjustStockRequest) (*AdjustStockResponse, error) {
	res, err := s.svc.AdjustStock(ctx, application.AdjustStockInput{
		Key:    domain.StockKey{EntityType: req.EntityType, EntityID: req.EntityID},
		Delta:  req.Delta,
		Type:   req.Type,
		Reason: req.Reason,
	})
	if err != nil {
		s.log.Warn("grpc adjust stock failed", "entity_id", req.EntityID, "err", err)
		return nil, toStatus(err)
	}
	return &AdjustStockResponse{Level: res.Level, Transaction: res.Transaction, Alert: res.Alert}, nil
}

func (s *Server) ListUnreadAlerts(ctx context.Context, _ *ListUnreadAlertsRequest) (*ListUnreadAlertsResponse, error) {
	alerts, err := s.svc.UnreadAlerts(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	return &ListUnreadAlertsResponse{Alerts: alerts}, nil
}

// ActorInterceptor lifts the caller identity out of request metadata.
func ActorInterceptor(ctx context.Context, req any, _ *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if ids := md.Get(ActorIDKey); len(ids) > 0 && ids[0] != "" {
			kind := actor.KindStaff
			if kinds := md.Get(ActorKindKey); len(kinds) > 0 && kinds[0] != "" {
				kind = actor.Kind(kinds[0])
			}
			ctx = actor.WithActor(ctx, actor.Actor{ID: ids[0], Kind: kind})
		}
	}
	return handler(ctx, req)
}

func toStatus(err error) error {
	code := codes.Internal
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		code = codes.InvalidArgument
	case apperr.KindNotFound:
		code = codes.NotFound
	case apperr.KindInsufficientStock, apperr.KindInvalidTransition:
		code = codes.FailedPrecondition
	case apperr.KindConcurrencyConflict:
		code = codes.Aborted
	}
	return status.Error(code, err.Error())
}

// NewGRPCServer builds a grpc.Server with the stock service registered.
func NewGRPCServer(srv *Server) *grpc.Server {
	gs := grpc.NewServer(grpc.ChainUnaryInterceptor(ActorInterceptor))
	RegisterStockServiceServer(gs, srv)
	return gs
}

func Run(addr string, srv *Server) (*grpc.Server, error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	gs := NewGRPCServer(srv)
	go func() {
		if err := gs.Serve(lis); err != nil {
			srv.log.Error("grpc server stopped", "err", err)
		}
	}()
	return gs, nil
}
