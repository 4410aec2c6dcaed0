package rpc

import (
	"context"
	"fmt"
	"net"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/satfarm/farmcarbon/internal/analysis"
	"github.com/satfarm/farmcarbon/internal/carbon"
	"github.com/satfarm/farmcarbon/internal/logging"
	"github.com/satfarm/farmcarbon/internal/ndvi"
)

type stubFetcher map[string]*ndvi.ChangeResult

func (s stubFetcher) Fetch(_ context.Context, farmerID string) (*ndvi.ChangeResult, error) {
	r, ok := s[farmerID]
	if !ok {
		return nil, fmt.Errorf("%w after 3 attempts: HTTP 503", ndvi.ErrUpstream)
	}
	return r.Clone(), nil
}

// traceRecorder captures the trace ID seen by the service.
type traceRecorder struct {
	Analyzer
	seen string
}

func (r *traceRecorder) Estimate(ctx context.Context, in carbon.MonthlyCarbonInput) (carbon.MonthlyCarbonResult, error) {
	r.seen = logging.TraceIDFromContext(ctx)
	return r.Analyzer.Estimate(ctx, in)
}

func startServer(t *testing.T, a Analyzer) *grpc.ClientConn {
	t.Helper()
	lis := bufconn.Listen(1 << 20)

	srv := NewServer(a, zerolog.Nop())
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func newAnalyzer() *analysis.Service {
	fetcher := stubFetcher{
		"farmer-1": {
			TotalAreaHa: 2.0,
			Classes: map[string]ndvi.ClassChange{
				ndvi.ClassBare:     {BeforePerc: 10, AfterPerc: 5},
				ndvi.ClassSparse:   {BeforePerc: 30, AfterPerc: 15},
				ndvi.ClassModerate: {BeforePerc: 40, AfterPerc: 40},
				ndvi.ClassDense:    {BeforePerc: 20, AfterPerc: 40},
			},
		},
		"farmer-empty": {TotalAreaHa: 2.0},
	}
	return analysis.NewService(fetcher, nil, carbon.DefaultCoefficients(), zerolog.Nop(), nil)
}

func demoInput() *carbon.MonthlyCarbonInput {
	return &carbon.MonthlyCarbonInput{
		AreaHa:                2.0,
		Month:                 "2025-09",
		Percentages:           carbon.VegetationPercentages{Bare: 5, Sparse: 15, Moderate: 40, Dense: 40},
		PrevMonthStockTCPerHa: 1.6,
	}
}

func TestEstimate(t *testing.T) {
	rec := &traceRecorder{Analyzer: newAnalyzer()}
	client := NewClient(startServer(t, rec))

	ctx := metadata.AppendToOutgoingContext(context.Background(), TraceIDMetadataKey, "trace-rpc")
	var header metadata.MD
	res, err := client.Estimate(ctx, demoInput(), grpc.Header(&header))
	require.NoError(t, err)

	assert.Equal(t, "2025-09", res.Month)
	assert.InDelta(t, 4275.0, res.AGBKgPerHa, 1e-9)
	assert.InDelta(t, 3.974685, res.CreditsT, 1e-6)
	assert.Equal(t, carbon.NDVIMidpoints(), res.Assumptions.NDVIMidpoints)

	assert.Equal(t, "trace-rpc", rec.seen)
	assert.Equal(t, []string{"trace-rpc"}, header.Get(TraceIDMetadataKey))
}

func TestEstimate_GeneratesTraceID(t *testing.T) {
	rec := &traceRecorder{Analyzer: newAnalyzer()}
	client := NewClient(startServer(t, rec))

	_, err := client.Estimate(context.Background(), demoInput())
	require.NoError(t, err)

	_, err = uuid.Parse(rec.seen)
	assert.NoError(t, err)
}

func TestEstimate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(in *carbon.MonthlyCarbonInput)
		wantMsg string
	}{
		{
			name:    "percentages",
			mutate:  func(in *carbon.MonthlyCarbonInput) { in.Percentages.Dense = 30 },
			wantMsg: "Percentages must sum to 100 (got 90.000)",
		},
		{
			name:    "negative area",
			mutate:  func(in *carbon.MonthlyCarbonInput) { in.AreaHa = -2 },
			wantMsg: "areaHa must not be negative",
		},
		{
			name:    "negative baseline",
			mutate:  func(in *carbon.MonthlyCarbonInput) { in.PrevMonthStockTCPerHa = -1 },
			wantMsg: "prevMonthStock_tC_perHa must not be negative",
		},
	}

	client := NewClient(startServer(t, newAnalyzer()))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := demoInput()
			tt.mutate(in)

			_, err := client.Estimate(context.Background(), in)
			require.Error(t, err)
			st, ok := status.FromError(err)
			require.True(t, ok)
			assert.Equal(t, codes.InvalidArgument, st.Code())
			assert.Contains(t, st.Message(), tt.wantMsg)
		})
	}
}

func TestAnalyze(t *testing.T) {
	client := NewClient(startServer(t, newAnalyzer()))

	rep, err := client.Analyze(context.Background(), &AnalyzeRequest{FarmerID: "farmer-1"})
	require.NoError(t, err)
	assert.Equal(t, "farmer-1", rep.FarmerID)
	assert.Equal(t, analysis.SourceLive, rep.Source)
	assert.InDelta(t, 2.499255, rep.Result.CreditsT, 1e-9)
	assert.NotEmpty(t, rep.TraceID)
}

func TestAnalyze_Errors(t *testing.T) {
	client := NewClient(startServer(t, newAnalyzer()))

	tests := []struct {
		name     string
		req      *AnalyzeRequest
		wantCode codes.Code
	}{
		{"unknown farm", &AnalyzeRequest{FarmerID: "unknown", Refresh: true}, codes.Unavailable},
		{"empty farmer id", &AnalyzeRequest{}, codes.InvalidArgument},
		{"unusable classification", &AnalyzeRequest{FarmerID: "farmer-empty"}, codes.Unavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := client.Analyze(context.Background(), tt.req)
			assert.Equal(t, tt.wantCode, status.Code(err))
		})
	}
}

func TestHealth(t *testing.T) {
	conn := startServer(t, newAnalyzer())

	resp, err := healthpb.NewHealthClient(conn).Check(context.Background(), &healthpb.HealthCheckRequest{Service: ServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())
}

func TestJSONCodec(t *testing.T) {
	c := jsonCodec{}
	assert.Equal(t, "json", c.Name())

	data, err := c.Marshal(&AnalyzeRequest{FarmerID: "f1", Refresh: true})
	require.NoError(t, err)
	assert.JSONEq(t, `{"farmerId":"f1","refresh":true}`, string(data))

	var out AnalyzeRequest
	require.NoError(t, c.Unmarshal(data, &out))
	assert.Equal(t, AnalyzeRequest{FarmerID: "f1", Refresh: true}, out)
}
