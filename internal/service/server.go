package service

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/auntor69/ewu-hub-3.0/internal/auth"
	"github.com/auntor69/ewu-hub-3.0/internal/calendar"
	"github.com/auntor69/ewu-hub-3.0/internal/logging"
)

// Services are described by hand: every method takes and returns a
// google.protobuf.Struct, so the default proto codec carries them without
// generated stubs.

type structHandler func(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)

func unaryMethod(service, name string, pick func(srv any) structHandler) grpc.MethodDesc {
	fullMethod := FullMethod(service, name)
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			h := pick(srv)
			if interceptor == nil {
				return h(ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return h(ctx, req.(*structpb.Struct))
			})
		},
	}
}

// FullMethod returns "/service/method" as seen by interceptors and clients.
func FullMethod(service, method string) string {
	return "/" + service + "/" + method
}

type ctxKey int

const (
	actorKey ctxKey = iota
	claimsKey
)

func withActor(ctx context.Context, a calendar.Actor) context.Context {
	return context.WithValue(ctx, actorKey, a)
}

// actorFrom returns the actor the auth interceptor resolved.
func actorFrom(ctx context.Context) (calendar.Actor, error) {
	a, ok := ctx.Value(actorKey).(calendar.Actor)
	if !ok {
		return calendar.Actor{}, status.Error(codes.Unauthenticated, "no actor")
	}
	return a, nil
}

func claimsFrom(ctx context.Context) (*auth.Claims, error) {
	c, ok := ctx.Value(claimsKey).(*auth.Claims)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "no token")
	}
	return c, nil
}

// AuthInterceptor validates the bearer token in the "authorization"
// metadata. Methods listed in tokenOnly get the claims alone; every other
// method also gets the stored account resolved into a calendar.Actor, so
// role changes and deactivation apply to tokens already issued.
func AuthInterceptor(tokens *auth.Tokens, accounts calendar.AccountStore, log zerolog.Logger, tokenOnly ...string) grpc.UnaryServerInterceptor {
	skipActor := make(map[string]bool, len(tokenOnly))
	for _, m := range tokenOnly {
		skipActor[m] = true
	}
	log = logging.For(log, "grpc")

	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		claims, err := bearerClaims(ctx, tokens)
		if err != nil {
			return nil, err
		}
		ctx = context.WithValue(ctx, claimsKey, claims)

		if !skipActor[info.FullMethod] {
			id, err := claims.UserID()
			if err != nil {
				return nil, status.Error(codes.Unauthenticated, err.Error())
			}
			actor, err := calendar.ValidateActor(ctx, accounts, id)
			if err != nil {
				if st := toStatus(err); status.Code(st) != codes.Internal {
					return nil, st
				}
				log.Error().Err(err).Str(logging.Method, info.FullMethod).Msg("resolve actor")
				return nil, status.Error(codes.Unavailable, "resolve actor")
			}
			ctx = withActor(ctx, actor)
		}

		resp, err := handler(ctx, req)
		if err != nil {
			log.Debug().Err(err).
				Str(logging.Method, info.FullMethod).
				Str(logging.Status, status.Code(err).String()).
				Msg("rpc failed")
		}
		return resp, err
	}
}

func bearerClaims(ctx context.Context, tokens *auth.Tokens) (*auth.Claims, error) {
	md, _ := metadata.FromIncomingContext(ctx)
	values := md.Get("authorization")
	if len(values) == 0 || !strings.HasPrefix(values[0], "Bearer ") {
		return nil, status.Error(codes.Unauthenticated, "missing bearer token")
	}
	claims, err := tokens.ParseValidate(strings.TrimPrefix(values[0], "Bearer "))
	if err != nil {
		return nil, status.Error(codes.Unauthenticated, "invalid token")
	}
	return claims, nil
}

// Register attaches all three services to s.
func Register(s *grpc.Server, res *ReservationService, id *IdentityService, adm *AdminService) {
	s.RegisterService(&ReservationServiceDesc, res)
	s.RegisterService(&IdentityServiceDesc, id)
	s.RegisterService(&AdminServiceDesc, adm)
}
