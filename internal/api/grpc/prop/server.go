package prop

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	domain "github.com/oshokin/ghost-host/internal/domain/performance"
	"github.com/oshokin/ghost-host/internal/logger"
)

// Service abstracts the orchestrator operations the transport layer depends on.
type Service interface {
	Trigger(ctx context.Context, req domain.TriggerRequest) error
	ForceStop(ctx context.Context) bool
	ForceEndCooldown(ctx context.Context) bool
	Status(ctx context.Context) domain.Status
}

// Server implements the PropService gRPC API.
type Server struct {
	// service provides the performance operations.
	service Service
}

var _ PropServiceServer = (*Server)(nil)

// NewServer wires the provided service implementation into a gRPC handler.
func NewServer(service Service) *Server {
	return &Server{
		service: service,
	}
}

// Trigger asks for a performance. Rejections are answers, not errors.
func (s *Server) Trigger(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	triggerReq, err := ParseTriggerRequest(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	err = s.service.Trigger(ctx, triggerReq)

	if reason, rejected := domain.ReasonOf(err); rejected {
		return toProtoTriggerReply(TriggerReply{Reason: reason.String()}), nil
	}

	switch {
	case err == nil:
	case errors.Is(err, domain.ErrAborted):
		return toProtoTriggerReply(TriggerReply{Reason: reasonAborted}), nil
	case errors.Is(err, domain.ErrUnknownSource):
		return nil, status.Error(codes.InvalidArgument, err.Error())
	default:
		logger.ErrorKV(ctx, "Trigger failed", "source", triggerReq.Source.String(), "error", err)

		return nil, status.Error(codes.Internal, "unable to start performance")
	}

	reply := TriggerReply{Accepted: true}
	if session := s.service.Status(ctx).Session; session != nil {
		reply.SessionID = session.ID
	}

	return toProtoTriggerReply(reply), nil
}

// ForceStop ends the current performance, if any.
func (s *Server) ForceStop(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return toProtoFlag(fieldStopped, s.service.ForceStop(ctx)), nil
}

// EndCooldown clears a running cooldown.
func (s *Server) EndCooldown(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return toProtoFlag(fieldCleared, s.service.ForceEndCooldown(ctx)), nil
}

// GetStatus returns the current status snapshot.
func (s *Server) GetStatus(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return ToProtoStatus(s.service.Status(ctx)), nil
}
