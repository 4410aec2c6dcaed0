package rpc

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/satfarm/farmcarbon/internal/analysis"
	"github.com/satfarm/farmcarbon/internal/carbon"
	"github.com/satfarm/farmcarbon/internal/logging"
	"github.com/satfarm/farmcarbon/internal/ndvi"
)

// TraceIDMetadataKey carries the trace ID in request and response metadata.
const TraceIDMetadataKey = "x-trace-id"

// Analyzer is the part of analysis.Service used by the gRPC service.
type Analyzer interface {
	Analyze(ctx context.Context, farmerID string, refresh bool) (*analysis.Report, error)
	Estimate(ctx context.Context, input carbon.MonthlyCarbonInput) (carbon.MonthlyCarbonResult, error)
}

// Service implements CarbonServiceServer on top of an Analyzer.
type Service struct {
	analyzer Analyzer
	logger   zerolog.Logger
}

// NewService creates a Service.
func NewService(analyzer Analyzer, logger zerolog.Logger) *Service {
	return &Service{analyzer: analyzer, logger: logger}
}

// Estimate implements CarbonServiceServer.
func (s *Service) Estimate(ctx context.Context, in *carbon.MonthlyCarbonInput) (*carbon.MonthlyCarbonResult, error) {
	if in == nil {
		return nil, status.Error(codes.InvalidArgument, "missing request")
	}
	if err := analysis.ValidateInput(*in); err != nil {
		return nil, s.toStatus(ctx, "Estimate", err)
	}
	res, err := s.analyzer.Estimate(ctx, *in)
	if err != nil {
		return nil, s.toStatus(ctx, "Estimate", err)
	}
	return &res, nil
}

// Analyze implements CarbonServiceServer.
func (s *Service) Analyze(ctx context.Context, in *AnalyzeRequest) (*analysis.Report, error) {
	if in == nil {
		return nil, status.Error(codes.InvalidArgument, "missing request")
	}
	rep, err := s.analyzer.Analyze(ctx, in.FarmerID, in.Refresh)
	if err != nil {
		return nil, s.toStatus(ctx, "Analyze", err)
	}
	return rep, nil
}

// toStatus maps service errors onto gRPC codes.
func (s *Service) toStatus(ctx context.Context, operation string, err error) error {
	code := codes.Internal
	switch {
	case errors.Is(err, analysis.ErrNoSnapshot),
		errors.Is(err, analysis.ErrBadClassification),
		errors.Is(err, ndvi.ErrUpstream):
		code = codes.Unavailable
	case errors.Is(err, carbon.ErrInvalidPercentages),
		errors.Is(err, analysis.ErrInvalidRequest),
		errors.Is(err, analysis.ErrInvalidFarmerID):
		code = codes.InvalidArgument
	case errors.Is(err, context.Canceled):
		code = codes.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		code = codes.DeadlineExceeded
	}

	if code == codes.Internal || code == codes.Unavailable {
		s.logger.Error().
			Str(logging.FieldTraceID, logging.TraceIDFromContext(ctx)).
			Str(logging.FieldOperation, operation).
			Str("grpc_code", code.String()).
			Err(err).
			Msg("request failed")
	}
	return status.Error(code, err.Error())
}

// traceIDFromMetadata returns the incoming trace ID, or a new UUID.
func traceIDFromMetadata(ctx context.Context) string {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if values := md.Get(TraceIDMetadataKey); len(values) > 0 && strings.TrimSpace(values[0]) != "" {
			return values[0]
		}
	}
	return uuid.New().String()
}

// TraceInterceptor puts the request trace ID on the context, returns it in
// the response header and logs each call.
func TraceInterceptor(logger zerolog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		traceID := traceIDFromMetadata(ctx)
		ctx = logging.WithTraceID(ctx, traceID)
		if err := grpc.SetHeader(ctx, metadata.Pairs(TraceIDMetadataKey, traceID)); err != nil {
			logger.Debug().Err(err).Msg("failed to set trace header")
		}

		resp, err := handler(ctx, req)

		logger.Info().
			Str(logging.FieldTraceID, traceID).
			Str("method", info.FullMethod).
			Str("grpc_code", status.Code(err).String()).
			Int64(logging.FieldDurationMs, time.Since(start).Milliseconds()).
			Msg("rpc handled")
		return resp, err
	}
}

// NewServer returns a gRPC server with the carbon service, the standard
// health service and the trace interceptor.
func NewServer(analyzer Analyzer, logger zerolog.Logger, opts ...grpc.ServerOption) *grpc.Server {
	opts = append([]grpc.ServerOption{grpc.ChainUnaryInterceptor(TraceInterceptor(logger))}, opts...)
	s := grpc.NewServer(opts...)

	RegisterCarbonServiceServer(s, NewService(analyzer, logger))

	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(s, hs)

	return s
}
