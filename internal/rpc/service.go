// Package rpc serves the estimator and farm analyses over gRPC using a JSON
// codec and a hand-written service descriptor.
package rpc

import (
	"context"

	"google.golang.org/grpc"

	"github.com/satfarm/farmcarbon/internal/analysis"
	"github.com/satfarm/farmcarbon/internal/carbon"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "farmcarbon.v1.CarbonService"

// Full method names.
const (
	EstimateMethod = "/" + ServiceName + "/Estimate"
	AnalyzeMethod  = "/" + ServiceName + "/Analyze"
)

// AnalyzeRequest selects the farm to analyse.
type AnalyzeRequest struct {
	FarmerID string `json:"farmerId"`
	Refresh  bool   `json:"refresh"`
}

// CarbonServiceServer is the server API of farmcarbon.v1.CarbonService.
type CarbonServiceServer interface {
	Estimate(ctx context.Context, in *carbon.MonthlyCarbonInput) (*carbon.MonthlyCarbonResult, error)
	Analyze(ctx context.Context, in *AnalyzeRequest) (*analysis.Report, error)
}

// RegisterCarbonServiceServer registers srv with s.
func RegisterCarbonServiceServer(s grpc.ServiceRegistrar, srv CarbonServiceServer) {
	s.RegisterService(&serviceDesc, srv)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*CarbonServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Estimate", Handler: estimateHandler},
		{MethodName: "Analyze", Handler: analyzeHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "farmcarbon/v1/carbon.json",
}

func estimateHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(carbon.MonthlyCarbonInput)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CarbonServiceServer).Estimate(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: EstimateMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(CarbonServiceServer).Estimate(ctx, req.(*carbon.MonthlyCarbonInput))
	}
	return interceptor(ctx, in, info, handler)
}

func analyzeHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(AnalyzeRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CarbonServiceServer).Analyze(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: AnalyzeMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(CarbonServiceServer).Analyze(ctx, req.(*AnalyzeRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// Client calls farmcarbon.v1.CarbonService.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps cc. Calls use the JSON codec.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Estimate calls CarbonService.Estimate.
func (c *Client) Estimate(ctx context.Context, in *carbon.MonthlyCarbonInput, opts ...grpc.CallOption) (*carbon.MonthlyCarbonResult, error) {
	out := new(carbon.MonthlyCarbonResult)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := c.cc.Invoke(ctx, EstimateMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// Analyze calls CarbonService.Analyze.
func (c *Client) Analyze(ctx context.Context, in *AnalyzeRequest, opts ...grpc.CallOption) (*analysis.Report, error) {
	out := new(analysis.Report)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := c.cc.Invoke(ctx, AnalyzeMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
