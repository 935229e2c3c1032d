package grpcserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/and161185/pet-keeper/internal/convert"
	"github.com/and161185/pet-keeper/internal/errs"
	"github.com/and161185/pet-keeper/internal/lifecycle"
	"github.com/and161185/pet-keeper/internal/locker"
	"github.com/and161185/pet-keeper/internal/model"
	"github.com/and161185/pet-keeper/internal/repository/memory"
	"github.com/and161185/pet-keeper/internal/service"
)

const bufSize = 1 << 20

var t0 = time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

func makeJWT(t *testing.T, sub string, key []byte, method jwt.SigningMethod, iat time.Time, ttl time.Duration) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:   sub,
		IssuedAt:  jwt.NewNumericDate(iat),
		NotBefore: jwt.NewNumericDate(iat),
		ExpiresAt: jwt.NewNumericDate(iat.Add(ttl)),
	}
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	if err != nil {
		t.Fatalf("SignedString: %v", err)
	}
	return s
}

func ctxWithAuth(token string) context.Context {
	md := metadata.New(map[string]string{
		"authorization": "Bearer " + token,
	})
	return metadata.NewIncomingContext(context.Background(), md)
}

func outgoing(token string) context.Context {
	return metadata.AppendToOutgoingContext(context.Background(), "authorization", "Bearer "+token)
}

func startBufGRPC(t *testing.T, srv PetCareServer, key []byte) *grpc.ClientConn {
	t.Helper()
	lis := bufconn.Listen(bufSize)
	gs := grpc.NewServer(grpc.ChainUnaryInterceptor(
		RecoverUnary(zaptest.NewLogger(t)),
		AuthUnary(key),
	))
	RegisterPetCareServer(gs, srv)
	go func() { _ = gs.Serve(lis) }()
	dialer := func(context.Context, string) (net.Conn, error) { return lis.Dial() }
	//nolint:staticcheck // DialContext is supported through 1.x; migrate when grpc.NewClient is stable
	cc, err := grpc.DialContext(context.Background(), "bufnet",
		grpc.WithContextDialer(dialer), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = cc.Close(); gs.Stop(); _ = lis.Close() })
	return cc
}

func call(ctx context.Context, cc *grpc.ClientConn, method string, req, reply any) error {
	in, err := convert.ToStruct(req)
	if err != nil {
		return err
	}
	out := new(structpb.Struct)
	if err := cc.Invoke(ctx, FullMethod(method), in, out); err != nil {
		return err
	}
	return convert.FromStruct(out, reply)
}

func newPetServer() *Server {
	pets := service.NewPetService(memory.NewPetRepo(), lifecycle.New(lifecycle.DefaultTuning()), locker.New(), service.Options{})
	return New(pets, func() time.Time { return t0 })
}

func TestServer_E2E_BasicFlow(t *testing.T) {
	t.Parallel()

	key := []byte("test-secret")
	cc := startBufGRPC(t, newPetServer(), key)

	owner := uuid.Must(uuid.NewV4())
	ctx := outgoing(makeJWT(t, owner.String(), key, jwt.SigningMethodHS256, time.Now().UTC(), time.Hour))

	var adopted convert.ActionReply
	require.NoError(t, call(ctx, cc, MethodAdopt, convert.PetRequest{Name: "Mochi"}, &adopted))
	require.Equal(t, "Mochi", adopted.Pet.Name)
	require.Equal(t, owner, adopted.Pet.UserID)
	petID := adopted.Pet.ID.String()

	var list convert.ListReply
	require.NoError(t, call(ctx, cc, MethodList, convert.PetRequest{}, &list))
	require.Equal(t, []string{petID}, list.PetIDs)

	var fed convert.ActionReply
	require.NoError(t, call(ctx, cc, MethodFeed, convert.PetRequest{PetID: petID}, &fed))
	require.Equal(t, string(lifecycle.TierTooSoon), fed.Tier)
	require.Equal(t, -10, fed.Delta.Health)
	require.Equal(t, 90, fed.Pet.Vitals.Health)

	var healed convert.ActionReply
	require.NoError(t, call(ctx, cc, MethodHeal, convert.PetRequest{PetID: petID}, &healed))
	require.Contains(t, healed.Cured, lifecycle.AfflictionIndigestion)

	var slept convert.ActionReply
	require.NoError(t, call(ctx, cc, MethodStartSleep, convert.PetRequest{PetID: petID}, &slept))
	require.True(t, slept.Pet.IsSleeping)

	var st convert.ActionReply
	require.NoError(t, call(ctx, cc, MethodStatus, convert.PetRequest{PetID: petID}, &st))
	require.Equal(t, model.MoodSleepy, st.Pet.Mood)

	var hist convert.HistoryReply
	require.NoError(t, call(ctx, cc, MethodHistory, convert.PetRequest{PetID: petID, Limit: 2}, &hist))
	require.Len(t, hist.Entries, 2)
	require.Equal(t, lifecycle.LogSleep, hist.Entries[1].Action)
}

func TestServer_E2E_ErrorCodes(t *testing.T) {
	t.Parallel()

	key := []byte("test-secret")
	cc := startBufGRPC(t, newPetServer(), key)

	owner := uuid.Must(uuid.NewV4())
	stranger := uuid.Must(uuid.NewV4())
	ctx := outgoing(makeJWT(t, owner.String(), key, jwt.SigningMethodHS256, time.Now().UTC(), time.Hour))
	strangerCtx := outgoing(makeJWT(t, stranger.String(), key, jwt.SigningMethodHS256, time.Now().UTC(), time.Hour))

	var adopted convert.ActionReply
	require.NoError(t, call(ctx, cc, MethodAdopt, convert.PetRequest{Name: "Mochi"}, &adopted))
	petID := adopted.Pet.ID.String()

	cases := []struct {
		name   string
		ctx    context.Context
		method string
		req    convert.PetRequest
		want   codes.Code
	}{
		{"no token", context.Background(), MethodFeed, convert.PetRequest{PetID: petID}, codes.Unauthenticated},
		{"bad pet id", ctx, MethodFeed, convert.PetRequest{PetID: "nope"}, codes.InvalidArgument},
		{"empty name", ctx, MethodAdopt, convert.PetRequest{Name: " "}, codes.InvalidArgument},
		{"unknown pet", ctx, MethodStatus, convert.PetRequest{PetID: uuid.Must(uuid.NewV4()).String()}, codes.NotFound},
		{"not owner", strangerCtx, MethodPlay, convert.PetRequest{PetID: petID}, codes.PermissionDenied},
		{"wake awake pet", ctx, MethodWake, convert.PetRequest{PetID: petID}, codes.FailedPrecondition},
		{"negative limit", ctx, MethodHistory, convert.PetRequest{PetID: petID, Limit: -1}, codes.InvalidArgument},
	}
	for _, tc := range cases {
		var out convert.ActionReply
		err := call(tc.ctx, cc, tc.method, tc.req, &out)
		require.Equal(t, tc.want, status.Code(err), tc.name)
	}
}

func TestServer_HandlersRequireCaller(t *testing.T) {
	t.Parallel()

	s := newPetServer()
	_, err := s.Feed(context.Background(), &structpb.Struct{})
	require.Equal(t, codes.Unauthenticated, status.Code(err))

	ctx := WithUserID(context.Background(), uuid.Must(uuid.NewV4()))
	bad, err := structpb.NewStruct(map[string]any{"pet_id": 42.0})
	require.NoError(t, err)
	_, err = s.Feed(ctx, bad)
	require.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestToStatus(t *testing.T) {
	t.Parallel()

	cases := []struct {
		err  error
		want codes.Code
	}{
		{fmt.Errorf("%w: empty name", errs.ErrValidation), codes.InvalidArgument},
		{errs.ErrNotFound, codes.NotFound},
		{errs.ErrForbidden, codes.PermissionDenied},
		{fmt.Errorf("%w: pet is dead", errs.ErrInvalidAction), codes.FailedPrecondition},
		{errs.ErrAlreadyExists, codes.AlreadyExists},
		{fmt.Errorf("save pet: %w: %w", errs.ErrStorage, errs.ErrVersionConflict), codes.Unavailable},
		{context.DeadlineExceeded, codes.DeadlineExceeded},
		{errors.New("boom"), codes.Internal},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, status.Code(toStatus("op", tc.err)), tc.err.Error())
	}
}

func Test_bearerTokenFromMD_OkAndErrors(t *testing.T) {
	t.Parallel()

	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", "Bearer abc.def.ghi"))
	got, err := bearerTokenFromMD(ctx)
	if err != nil || got != "abc.def.ghi" {
		t.Fatalf("ok: got=%q err=%v", got, err)
	}

	ctx = metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", "Basic foo"))
	if _, err := bearerTokenFromMD(ctx); err == nil {
		t.Fatalf("want error on non-bearer")
	}

	ctx = metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", "Bearer   "))
	if _, err := bearerTokenFromMD(ctx); err == nil {
		t.Fatalf("want error on empty token")
	}

	if _, err := bearerTokenFromMD(context.Background()); err == nil {
		t.Fatalf("want error on no metadata")
	}
}

func Test_userIDFromMD(t *testing.T) {
	t.Parallel()

	key := []byte("secret")
	sub := uuid.Must(uuid.NewV4()).String()
	now := time.Now().UTC()

	id, err := userIDFromMD(ctxWithAuth(makeJWT(t, sub, key, jwt.SigningMethodHS256, now.Add(-time.Minute), 10*time.Minute)), key)
	require.NoError(t, err)
	require.Equal(t, sub, id.String())

	bad := map[string]string{
		"expired":     makeJWT(t, sub, key, jwt.SigningMethodHS256, now.Add(-2*time.Hour), -time.Hour),
		"bad subject": makeJWT(t, "not-a-uuid", key, jwt.SigningMethodHS256, now, time.Hour),
		"wrong alg":   makeJWT(t, sub, key, jwt.SigningMethodHS384, now, time.Hour),
		"wrong key":   makeJWT(t, sub, []byte("other"), jwt.SigningMethodHS256, now, time.Hour),
		"garbage":     "this-is-not-a-jwt",
	}
	for name, tok := range bad {
		_, err := userIDFromMD(ctxWithAuth(tok), key)
		require.Error(t, err, name)
	}
}
