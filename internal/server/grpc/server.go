// Package grpcserver exposes the pet care gRPC API handlers.
package grpcserver

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/and161185/pet-keeper/internal/convert"
	"github.com/and161185/pet-keeper/internal/errs"
	"github.com/and161185/pet-keeper/internal/model"
	"github.com/and161185/pet-keeper/internal/service"
)

// Server wires the pet service into gRPC handlers.
type Server struct {
	pets  service.PetService
	clock func() time.Time
}

var _ PetCareServer = (*Server)(nil)

// New constructs a gRPC server. A nil clock means time.Now.
func New(pets service.PetService, clock func() time.Time) *Server {
	if clock == nil {
		clock = time.Now
	}
	return &Server{pets: pets, clock: clock}
}

// Adopt creates a pet for the caller.
func (s *Server) Adopt(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	userID, req, err := s.decode(ctx, in)
	if err != nil {
		return nil, err
	}
	p, err := s.pets.Adopt(ctx, userID, req.Name, s.clock())
	if err != nil {
		return nil, toStatus("adopt", err)
	}
	return reply(convert.ActionReply{Pet: *p, Message: "Welcome home, " + p.Name + "!"})
}

// List returns the caller's pet ids.
func (s *Server) List(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	userID, _, err := s.decode(ctx, in)
	if err != nil {
		return nil, err
	}
	ids, err := s.pets.List(ctx, userID)
	if err != nil {
		return nil, toStatus("list", err)
	}
	return reply(convert.ListReply{PetIDs: convert.IDStrings(ids)})
}

// Status refreshes and returns a pet.
func (s *Server) Status(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return s.act(ctx, in, "status", s.pets.Status)
}

// Feed feeds a pet.
func (s *Server) Feed(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return s.care(ctx, in, model.ActionFeed)
}

// Play plays with a pet.
func (s *Server) Play(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return s.care(ctx, in, model.ActionPlay)
}

// Bathe bathes a pet.
func (s *Server) Bathe(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return s.care(ctx, in, model.ActionBathe)
}

// Nap lets a pet take a quick nap.
func (s *Server) Nap(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return s.care(ctx, in, model.ActionSleep)
}

// Heal treats a pet and clears its afflictions.
func (s *Server) Heal(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return s.care(ctx, in, model.ActionHeal)
}

// Cuddle pets a pet.
func (s *Server) Cuddle(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return s.care(ctx, in, model.ActionPet)
}

// StartSleep puts a pet to bed.
func (s *Server) StartSleep(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return s.act(ctx, in, "start sleep", s.pets.StartSleep)
}

// Wake wakes a sleeping pet.
func (s *Server) Wake(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return s.act(ctx, in, "wake", s.pets.Wake)
}

// History returns the newest activity log entries.
func (s *Server) History(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	userID, req, err := s.decode(ctx, in)
	if err != nil {
		return nil, err
	}
	petID, err := req.PetUUID()
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, "bad pet_id")
	}
	if req.Limit < 0 {
		return nil, status.Error(codes.InvalidArgument, "negative limit")
	}
	entries, err := s.pets.History(ctx, petID, userID, req.Limit)
	if err != nil {
		return nil, toStatus("history", err)
	}
	return reply(convert.HistoryReply{Entries: entries})
}

type petCall func(ctx context.Context, petID, callerID uuid.UUID, now time.Time) (service.Result, error)

func (s *Server) care(ctx context.Context, in *structpb.Struct, kind model.ActionKind) (*structpb.Struct, error) {
	return s.act(ctx, in, string(kind), func(ctx context.Context, petID, callerID uuid.UUID, now time.Time) (service.Result, error) {
		return s.pets.Care(ctx, petID, callerID, kind, now)
	})
}

func (s *Server) act(ctx context.Context, in *structpb.Struct, op string, call petCall) (*structpb.Struct, error) {
	userID, req, err := s.decode(ctx, in)
	if err != nil {
		return nil, err
	}
	petID, err := req.PetUUID()
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, "bad pet_id")
	}
	res, err := call(ctx, petID, userID, s.clock())
	if err != nil {
		return nil, toStatus(op, err)
	}
	return reply(convert.ActionReply{
		Pet:     res.Pet,
		Message: res.Message,
		Delta:   res.Delta,
		Tier:    string(res.Tier),
		Cured:   res.Cured,
	})
}

func (s *Server) decode(ctx context.Context, in *structpb.Struct) (uuid.UUID, convert.PetRequest, error) {
	userID, ok := UserIDFromCtx(ctx)
	if !ok {
		return uuid.Nil, convert.PetRequest{}, status.Error(codes.Unauthenticated, "no auth")
	}
	var req convert.PetRequest
	if err := convert.FromStruct(in, &req); err != nil {
		return uuid.Nil, convert.PetRequest{}, status.Errorf(codes.InvalidArgument, "bad request: %v", err)
	}
	return userID, req, nil
}

func reply(v any) (*structpb.Struct, error) {
	out, err := convert.ToStruct(v)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode reply: %v", err)
	}
	return out, nil
}

// toStatus maps the service error taxonomy onto gRPC codes.
func toStatus(op string, err error) error {
	switch {
	case errors.Is(err, errs.ErrValidation):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, errs.ErrNotFound):
		return status.Error(codes.NotFound, "pet not found")
	case errors.Is(err, errs.ErrForbidden):
		return status.Error(codes.PermissionDenied, "not your pet")
	case errors.Is(err, errs.ErrInvalidAction):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, errs.ErrAlreadyExists):
		return status.Error(codes.AlreadyExists, "already exists")
	case errors.Is(err, errs.ErrStorage):
		return status.Errorf(codes.Unavailable, "%s: storage unavailable, retry later", op)
	case errors.Is(err, context.DeadlineExceeded):
		return status.Errorf(codes.DeadlineExceeded, "%s: deadline exceeded", op)
	case errors.Is(err, context.Canceled):
		return status.Errorf(codes.Canceled, "%s: canceled", op)
	default:
		return status.Errorf(codes.Internal, "%s: internal", op)
	}
}

// userIDFromMD extracts "authorization: Bearer <JWT>", verifies HS256 and returns sub as UUID.
func userIDFromMD(ctx context.Context, signKey []byte) (uuid.UUID, error) {
	tok, err := bearerTokenFromMD(ctx)
	if err != nil {
		return uuid.Nil, err
	}

	var claims jwt.RegisteredClaims
	parsed, err := jwt.ParseWithClaims(tok, &claims, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return signKey, nil
	})
	if err != nil || !parsed.Valid {
		return uuid.Nil, errors.New("invalid token")
	}

	v := jwt.NewValidator(jwt.WithLeeway(30 * time.Second))
	if err := v.Validate(&claims); err != nil {
		return uuid.Nil, errors.New("token expired or not valid yet")
	}

	id, err := uuid.FromString(claims.Subject)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, errors.New("bad subject")
	}
	return id, nil
}

func bearerTokenFromMD(ctx context.Context) (string, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", errors.New("no metadata")
	}
	for _, v := range md.Get("authorization") {
		v = strings.TrimSpace(v)
		if len(v) >= 7 && strings.EqualFold(v[:7], "bearer ") {
			t := strings.TrimSpace(v[7:])
			if t != "" {
				return t, nil
			}
		}
	}
	return "", errors.New("no bearer token")
}
