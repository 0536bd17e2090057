package arena

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"

	"agent-arena/pkg/logger"
	"agent-arena/pkg/models"
	"agent-arena/pkg/scoring"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// ScoringServiceName is the fully qualified gRPC service name.
const ScoringServiceName = "arena.v1.Scoring"

// ScoringServer exposes stateless scoring to external agent runners.
// Messages are google.protobuf.Struct values shaped like the JSON API.
type ScoringServer interface {
	Score(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CoachReport(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// ScoringServiceDesc describes arena.v1.Scoring for grpc.Server.RegisterService.
var ScoringServiceDesc = grpc.ServiceDesc{
	ServiceName: ScoringServiceName,
	HandlerType: (*ScoringServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Score", Handler: scoreHandler},
		{MethodName: "CoachReport", Handler: coachReportHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "arena/v1/scoring.proto",
}

func scoreHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ScoringServer).Score(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ScoringServiceName + "/Score"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ScoringServer).Score(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func coachReportHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ScoringServer).CoachReport(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ScoringServiceName + "/CoachReport"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ScoringServer).CoachReport(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// grpcServer adapts the service to ScoringServer.
type grpcServer struct {
	svc *Service
}

// coachReportRequest is the CoachReport input.
type coachReportRequest struct {
	ChallengeType  string            `json:"challenge_type"`
	InputText      string            `json:"input_text"`
	OutputText     string            `json:"output_text"`
	ScoreBreakdown scoring.Breakdown `json:"score_breakdown"`
}

func (g *grpcServer) Score(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req models.ScoreRequest
	if err := fromStruct(in, &req); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	resp, err := g.svc.Score(req)
	if err != nil {
		return nil, grpcError(err)
	}
	return toStruct(resp)
}

func (g *grpcServer) CoachReport(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req coachReportRequest
	if err := fromStruct(in, &req); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	report, err := g.svc.CoachReport(req.ChallengeType, req.ScoreBreakdown, req.InputText, req.OutputText)
	if err != nil {
		return nil, grpcError(err)
	}
	return toStruct(report)
}

func grpcError(err error) error {
	if errors.Is(err, ErrInvalidInput) {
		return status.Error(codes.InvalidArgument, err.Error())
	}
	return status.Error(codes.Internal, err.Error())
}

func fromStruct(in *structpb.Struct, v any) error {
	data, err := json.Marshal(in.AsMap())
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("invalid request: %w", err)
	}
	return nil
}

func toStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

// loggingInterceptor logs every unary call with its duration and status code.
func loggingInterceptor(lg zerolog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)

		var event *zerolog.Event
		if err != nil {
			event = lg.Warn().Err(err)
		} else {
			event = lg.Info()
		}
		event.
			Str("method", info.FullMethod).
			Str("code", status.Code(err).String()).
			Dur("duration", time.Since(start)).
			Msg("gRPC call")

		return resp, err
	}
}

// NewGRPCServer builds a gRPC server with the scoring service registered.
func NewGRPCServer(s *Service, lg zerolog.Logger) *grpc.Server {
	srv := grpc.NewServer(grpc.UnaryInterceptor(loggingInterceptor(lg)))
	srv.RegisterService(&ScoringServiceDesc, &grpcServer{svc: s})
	return srv
}

// StartGRPCBridge starts the scoring gRPC service on addr, e.g. ":9090".
// Returns a shutdown function.
func StartGRPCBridge(s *Service, addr string, logLevel string, toFile bool) (func(context.Context) error, error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	lg := logger.NewCategoryLogger(logLevel, logger.Arena, logger.GRPC, toFile)
	srv := NewGRPCServer(s, lg)

	go func() {
		lg.Info().Str("addr", addr).Msg("Scoring gRPC bridge listening")
		if err := srv.Serve(lis); err != nil {
			lg.Error().Err(err).Msg("gRPC server stopped")
		}
	}()

	stop := func(ctx context.Context) error {
		done := make(chan struct{})
		go func() {
			srv.GracefulStop()
			close(done)
		}()
		select {
		case <-done:
			return nil
		case <-ctx.Done():
			srv.Stop()
			return ctx.Err()
		}
	}
	return stop, nil
}

// ScoringClient calls arena.v1.Scoring.
type ScoringClient struct {
	cc grpc.ClientConnInterface
}

// NewScoringClient wraps a client connection.
func NewScoringClient(cc grpc.ClientConnInterface) *ScoringClient {
	return &ScoringClient{cc: cc}
}

// Score calls Scoring/Score.
func (c *ScoringClient) Score(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ScoringServiceName+"/Score", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// CoachReport calls Scoring/CoachReport.
func (c *ScoringClient) CoachReport(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ScoringServiceName+"/CoachReport", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
