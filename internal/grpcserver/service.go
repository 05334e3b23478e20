package grpcserver

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "jobalert.JobQuery"

const (
	methodRecentJobs     = "/" + ServiceName + "/RecentJobs"
	methodJobsBySource   = "/" + ServiceName + "/JobsBySource"
	methodStats          = "/" + ServiceName + "/Stats"
	methodProfileMatches = "/" + ServiceName + "/ProfileMatches"
)

// JobQueryServer is the server API for the JobQuery service. Requests and
// responses are google.protobuf.Struct documents:
//
//	RecentJobs      {days}          → {count, jobs}
//	JobsBySource    {source}        → {count, jobs}
//	Stats           Empty           → {total_jobs, recent_jobs, jobs_by_source}
//	ProfileMatches  {email?, days}  → {count, jobs}
type JobQueryServer interface {
	RecentJobs(context.Context, *structpb.Struct) (*structpb.Struct, error)
	JobsBySource(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Stats(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	ProfileMatches(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// Register mounts srv on s.
func Register(s grpc.ServiceRegistrar, srv JobQueryServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// ServiceDesc describes JobQuery for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*JobQueryServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "RecentJobs", Handler: structHandler(methodRecentJobs, JobQueryServer.RecentJobs)},
		{MethodName: "JobsBySource", Handler: structHandler(methodJobsBySource, JobQueryServer.JobsBySource)},
		{MethodName: "Stats", Handler: statsHandler},
		{MethodName: "ProfileMatches", Handler: structHandler(methodProfileMatches, JobQueryServer.ProfileMatches)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "jobalert/job_query.proto",
}

type structMethod func(JobQueryServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func structHandler(fullMethod string, call structMethod) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(JobQueryServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(JobQueryServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

func statsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(JobQueryServer).Stats(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodStats}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(JobQueryServer).Stats(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

// JobQueryClient calls a JobQuery server.
type JobQueryClient struct {
	cc grpc.ClientConnInterface
}

func NewJobQueryClient(cc grpc.ClientConnInterface) *JobQueryClient {
	return &JobQueryClient{cc: cc}
}

func (c *JobQueryClient) RecentJobs(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, methodRecentJobs, in, opts...)
}

func (c *JobQueryClient) JobsBySource(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, methodJobsBySource, in, opts...)
}

func (c *JobQueryClient) Stats(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, methodStats, &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *JobQueryClient) ProfileMatches(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, methodProfileMatches, in, opts...)
}

func (c *JobQueryClient) invoke(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
