// Package grpcserver implements the JobQuery gRPC server.
//
// It delegates to the job and profile stores and handles only the gRPC
// transport concerns: argument extraction, error mapping and conversion
// between domain types and google.protobuf.Struct messages.
package grpcserver

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"jobmate/jobalert-service/internal/gate"
	"jobmate/jobalert-service/internal/logger"
	"jobmate/jobalert-service/internal/model"
	"jobmate/jobalert-service/internal/profilestore"
)

const (
	defaultDays = 7
	maxDays     = 365
)

// JobReader is the read side of the job store.
type JobReader interface {
	QueryRecent(ctx context.Context, days int) ([]model.Job, error)
	QueryBySource(ctx context.Context, source string) ([]model.Job, error)
	Stats(ctx context.Context) (model.Stats, error)
}

// ProfileReader looks up a profile by email.
type ProfileReader interface {
	GetByEmail(ctx context.Context, email string) (*model.Profile, error)
}

// Server implements JobQueryServer.
type Server struct {
	jobs     JobReader
	profiles ProfileReader
}

// NewServer constructs a Server. profiles may be nil when user profiles
// are disabled.
func NewServer(jobs JobReader, profiles ProfileReader) *Server {
	return &Server{jobs: jobs, profiles: profiles}
}

// ─── RPC implementations ─────────────────────────────────────────────────────

// RecentJobs returns active jobs seen in the last req.days days.
func (s *Server) RecentJobs(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	days, err := daysArg(req)
	if err != nil {
		return nil, err
	}
	jobs, err := s.jobs.QueryRecent(ctx, days)
	if err != nil {
		return nil, toGRPCError(err)
	}
	return jobsStruct(jobs)
}

// JobsBySource returns active jobs from req.source.
func (s *Server) JobsBySource(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	source := strings.TrimSpace(req.GetFields()["source"].GetStringValue())
	if source == "" {
		return nil, status.Error(codes.InvalidArgument, "source is required")
	}
	jobs, err := s.jobs.QueryBySource(ctx, source)
	if err != nil {
		return nil, toGRPCError(err)
	}
	return jobsStruct(jobs)
}

// Stats summarises the job store.
func (s *Server) Stats(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	st, err := s.jobs.Stats(ctx)
	if err != nil {
		return nil, toGRPCError(err)
	}
	return toStruct(st)
}

// ProfileMatches returns the recent jobs the profile would be alerted
// about, best match first. The email comes from req.email or, failing
// that, the x-user-email metadata forwarded by the Gateway.
func (s *Server) ProfileMatches(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if s.profiles == nil {
		return nil, status.Error(codes.FailedPrecondition, "user profiles are disabled")
	}
	email, err := emailArg(ctx, req)
	if err != nil {
		return nil, err
	}
	days, err := daysArg(req)
	if err != nil {
		return nil, err
	}

	p, err := s.profiles.GetByEmail(ctx, email)
	if err != nil {
		return nil, toGRPCError(err)
	}
	jobs, err := s.jobs.QueryRecent(ctx, days)
	if err != nil {
		return nil, toGRPCError(err)
	}
	return jobsStruct(gate.FilterForProfile(p, jobs))
}

// ─── Interceptors ────────────────────────────────────────────────────────────

// LoggingInterceptor logs every unary call with its duration and status code.
func LoggingInterceptor(log *logger.Logger) grpc.UnaryServerInterceptor {
	log = log.With("component", "grpc")
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		code := status.Code(err)
		if code == codes.OK || code == codes.NotFound || code == codes.InvalidArgument {
			log.Debug("rpc", "method", info.FullMethod, "code", code.String(), "duration", time.Since(start))
		} else {
			log.Warn("rpc failed", "method", info.FullMethod, "code", code.String(), "duration", time.Since(start), "error", err)
		}
		return resp, err
	}
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

func daysArg(req *structpb.Struct) (int, error) {
	v, ok := req.GetFields()["days"]
	if !ok {
		return defaultDays, nil
	}
	n := v.GetNumberValue()
	if n != math.Trunc(n) || n < 1 || n > maxDays {
		return 0, status.Errorf(codes.InvalidArgument, "days must be an integer between 1 and %d", maxDays)
	}
	return int(n), nil
}

func emailArg(ctx context.Context, req *structpb.Struct) (string, error) {
	if email := strings.TrimSpace(req.GetFields()["email"].GetStringValue()); email != "" {
		return email, nil
	}
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if vals := md.Get("x-user-email"); len(vals) > 0 && vals[0] != "" {
			return vals[0], nil
		}
	}
	return "", status.Error(codes.InvalidArgument, "email is required")
}

// toGRPCError maps domain errors to gRPC status errors.
func toGRPCError(err error) error {
	if errors.Is(err, profilestore.ErrNotFound) {
		return status.Error(codes.NotFound, err.Error())
	}
	var ve *profilestore.ValidationError
	if errors.As(err, &ve) {
		return status.Error(codes.InvalidArgument, ve.Msg)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return status.FromContextError(err).Err()
	}
	return status.Error(codes.Internal, "internal server error")
}

func jobsStruct(jobs []model.Job) (*structpb.Struct, error) {
	if jobs == nil {
		jobs = []model.Job{}
	}
	return toStruct(struct {
		Count int         `json:"count"`
		Jobs  []model.Job `json:"jobs"`
	}{len(jobs), jobs})
}

// toStruct converts v to a Struct through its JSON form, so field names
// match the REST API.
func toStruct(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, status.Error(codes.Internal, "encode response")
	}
	out := new(structpb.Struct)
	if err := protojson.Unmarshal(raw, out); err != nil {
		return nil, status.Error(codes.Internal, "encode response")
	}
	return out, nil
}
