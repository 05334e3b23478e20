package grpcserver

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"jobmate/jobalert-service/internal/logger"
	"jobmate/jobalert-service/internal/model"
	"jobmate/jobalert-service/internal/profilestore"
)

type fakeJobs struct {
	recent   []model.Job
	bySource map[string][]model.Job
	err      error
	days     int
}

func (f *fakeJobs) QueryRecent(_ context.Context, days int) ([]model.Job, error) {
	f.days = days
	return f.recent, f.err
}

func (f *fakeJobs) QueryBySource(_ context.Context, source string) ([]model.Job, error) {
	return f.bySource[source], f.err
}

func (f *fakeJobs) Stats(context.Context) (model.Stats, error) {
	return model.Stats{TotalActive: 4, RecentCount: 1, BySource: map[string]int{"Adzuna": 4}}, f.err
}

type fakeProfiles map[string]model.Profile

func (f fakeProfiles) GetByEmail(_ context.Context, email string) (*model.Profile, error) {
	p, ok := f[email]
	if !ok {
		return nil, profilestore.ErrNotFound
	}
	return &p, nil
}

func dial(t *testing.T, srv *Server) *JobQueryClient {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	s := grpc.NewServer(grpc.UnaryInterceptor(LoggingInterceptor(logger.Nop())))
	Register(s, srv)
	go func() { _ = s.Serve(lis) }()
	t.Cleanup(s.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return NewJobQueryClient(conn)
}

func args(t *testing.T, m map[string]any) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(m)
	require.NoError(t, err)
	return s
}

func TestRecentJobs(t *testing.T) {
	jobs := &fakeJobs{recent: []model.Job{{URL: "u1", Title: "Go Dev", JobScore: 80}}}
	c := dial(t, NewServer(jobs, nil))

	out, err := c.RecentJobs(context.Background(), args(t, map[string]any{"days": 3}))
	require.NoError(t, err)
	assert.Equal(t, 3, jobs.days)
	assert.Equal(t, 1.0, out.Fields["count"].GetNumberValue())
	first := out.Fields["jobs"].GetListValue().Values[0].GetStructValue()
	assert.Equal(t, "u1", first.Fields["url"].GetStringValue())
	assert.Equal(t, 80.0, first.Fields["job_score"].GetNumberValue())

	_, err = c.RecentJobs(context.Background(), &structpb.Struct{})
	require.NoError(t, err)
	assert.Equal(t, defaultDays, jobs.days)

	for _, bad := range []any{0, 1.5, 400} {
		_, err := c.RecentJobs(context.Background(), args(t, map[string]any{"days": bad}))
		assert.Equal(t, codes.InvalidArgument, status.Code(err), "days=%v", bad)
	}
}

func TestJobsBySource(t *testing.T) {
	jobs := &fakeJobs{bySource: map[string][]model.Job{"Adzuna": {{URL: "a"}, {URL: "b"}}}}
	c := dial(t, NewServer(jobs, nil))

	out, err := c.JobsBySource(context.Background(), args(t, map[string]any{"source": "Adzuna"}))
	require.NoError(t, err)
	assert.Equal(t, 2.0, out.Fields["count"].GetNumberValue())

	out, err = c.JobsBySource(context.Background(), args(t, map[string]any{"source": "None"}))
	require.NoError(t, err)
	assert.Empty(t, out.Fields["jobs"].GetListValue().GetValues())

	_, err = c.JobsBySource(context.Background(), &structpb.Struct{})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestStats(t *testing.T) {
	c := dial(t, NewServer(&fakeJobs{}, nil))
	out, err := c.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4.0, out.Fields["total_jobs"].GetNumberValue())
	assert.Equal(t, 4.0, out.Fields["jobs_by_source"].GetStructValue().Fields["Adzuna"].GetNumberValue())
}

func TestStoreErrorsAreInternal(t *testing.T) {
	c := dial(t, NewServer(&fakeJobs{err: errors.New("pool closed")}, nil))
	_, err := c.Stats(context.Background())
	assert.Equal(t, codes.Internal, status.Code(err))
	assert.NotContains(t, err.Error(), "pool closed")
}

func TestProfileMatches(t *testing.T) {
	p := model.NewProfile("dev@example.com", "Dev")
	p.MinJobScore = 0
	p.MinMatchScore = 25
	p.PreferredLocations = []string{"Pune"}
	jobs := &fakeJobs{recent: []model.Job{
		{URL: "far", Location: "Chennai"},
		{URL: "near", Location: "Pune"},
	}}
	c := dial(t, NewServer(jobs, fakeProfiles{p.Email: p}))

	out, err := c.ProfileMatches(context.Background(), args(t, map[string]any{"email": "dev@example.com", "days": 30}))
	require.NoError(t, err)
	assert.Equal(t, 30, jobs.days)
	list := out.Fields["jobs"].GetListValue().Values
	require.Len(t, list, 1)
	assert.Equal(t, "near", list[0].GetStructValue().Fields["url"].GetStringValue())
	assert.Equal(t, 25.0, list[0].GetStructValue().Fields["match_score"].GetNumberValue())

	ctx := metadata.AppendToOutgoingContext(context.Background(), "x-user-email", "dev@example.com")
	_, err = c.ProfileMatches(ctx, &structpb.Struct{})
	require.NoError(t, err, "email from metadata")

	_, err = c.ProfileMatches(context.Background(), &structpb.Struct{})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = c.ProfileMatches(context.Background(), args(t, map[string]any{"email": "ghost@example.com"}))
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestProfileMatchesDisabled(t *testing.T) {
	c := dial(t, NewServer(&fakeJobs{}, nil))
	_, err := c.ProfileMatches(context.Background(), args(t, map[string]any{"email": "dev@example.com"}))
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))
}

func TestToGRPCError(t *testing.T) {
	tests := []struct {
		err  error
		want codes.Code
	}{
		{profilestore.ErrNotFound, codes.NotFound},
		{&profilestore.ValidationError{Msg: "bad"}, codes.InvalidArgument},
		{context.DeadlineExceeded, codes.DeadlineExceeded},
		{errors.New("boom"), codes.Internal},
	}
	for _, tt := range tests {
		if got := status.Code(toGRPCError(tt.err)); got != tt.want {
			t.Errorf("toGRPCError(%v) = %s, want %s", tt.err, got, tt.want)
		}
	}
}
