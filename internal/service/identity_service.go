package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/auntor69/ewu-hub-3.0/internal/auth"
	"github.com/auntor69/ewu-hub-3.0/internal/model"
	"github.com/auntor69/ewu-hub-3.0/internal/repository"
	"github.com/auntor69/ewu-hub-3.0/internal/reservation"
)

const IdentityServiceName = "ewuhub.identity.v1.IdentityService"

type IdentityServer interface {
	RegisterUser(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetProfile(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SetRole(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListUsers(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

func identityMethod(name string, h func(IdentityServer) structHandler) grpc.MethodDesc {
	return unaryMethod(IdentityServiceName, name, func(srv any) structHandler {
		return h(srv.(IdentityServer))
	})
}

var IdentityServiceDesc = grpc.ServiceDesc{
	ServiceName: IdentityServiceName,
	HandlerType: (*IdentityServer)(nil),
	Methods: []grpc.MethodDesc{
		identityMethod("RegisterUser", func(s IdentityServer) structHandler { return s.RegisterUser }),
		identityMethod("GetProfile", func(s IdentityServer) structHandler { return s.GetProfile }),
		identityMethod("SetRole", func(s IdentityServer) structHandler { return s.SetRole }),
		identityMethod("ListUsers", func(s IdentityServer) structHandler { return s.ListUsers }),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "ewuhub/identity/v1/identity.proto",
}

// RegisterUserMethod only needs a signed token carrying an email; the
// account it creates does not exist yet.
var RegisterUserMethod = FullMethod(IdentityServiceName, "RegisterUser")

// IdentityService registers campus accounts and manages their single role.
type IdentityService struct {
	users    repository.UserRepository
	admin    *reservation.Admin
	tokens   *auth.Tokens
	tokenTTL time.Duration
}

var _ IdentityServer = (*IdentityService)(nil)

func NewIdentityService(users repository.UserRepository, admin *reservation.Admin, tokens *auth.Tokens, tokenTTL time.Duration) *IdentityService {
	return &IdentityService{users: users, admin: admin, tokens: tokens, tokenTTL: tokenTTL}
}

// RegisterUser creates the account of the token's email or refreshes its
// profile, and returns it with an access token bound to the account id.
func (s *IdentityService) RegisterUser(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	claims, err := claimsFrom(ctx)
	if err != nil {
		return nil, err
	}
	if claims.Email == "" {
		return nil, status.Error(codes.InvalidArgument, "token carries no email")
	}
	r := newRequest(req)

	u, err := s.users.UpsertUser(ctx, claims.Email, r.str("full_name"), r.str("student_id"))
	if err != nil {
		return nil, status.Errorf(codes.Internal, "register user: %v", err)
	}
	if !u.Active {
		return nil, status.Error(codes.PermissionDenied, "user is inactive")
	}

	role, err := s.role(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	token, err := s.tokens.CreateAccessToken(u.ID, string(role), u.Email, s.tokenTTL)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "issue token: %v", err)
	}
	return reply(map[string]any{
		"user":         userFields(*u, role),
		"access_token": token,
	})
}

// role returns the user's role, assigning student on first registration.
func (s *IdentityService) role(ctx context.Context, userID uuid.UUID) (model.RoleCode, error) {
	role, err := s.users.GetRole(ctx, userID)
	if err == nil {
		return role, nil
	}
	if !repository.IsNotFound(err) {
		return "", status.Errorf(codes.Internal, "get role: %v", err)
	}
	if err := s.users.SetRole(ctx, userID, model.RoleStudent); err != nil {
		return "", status.Errorf(codes.Internal, "set role: %v", err)
	}
	return model.RoleStudent, nil
}

// GetProfile returns the caller's account.
func (s *IdentityService) GetProfile(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	u, err := s.users.FindByID(ctx, actor.UserID)
	if err != nil {
		return nil, status.Errorf(codes.NotFound, "user not found: %v", err)
	}
	return reply(map[string]any{"user": userFields(*u, model.RoleCode(actor.Role))})
}

// SetRole: {user_id, role}. Admins only.
func (s *IdentityService) SetRole(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	r := newRequest(req)
	id, err := r.id("user_id")
	if err != nil {
		return nil, err
	}
	role, err := r.required("role")
	if err != nil {
		return nil, err
	}

	u, err := s.admin.SetRole(ctx, actor, id, model.RoleCode(role))
	if err != nil {
		return nil, toStatus(err)
	}
	return reply(map[string]any{"user": userFields(*u, model.RoleCode(role))})
}

// ListUsers: {role?, page?, page_size?}. Admins only.
func (s *IdentityService) ListUsers(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	r := newRequest(req)
	page, size := r.page()
	p, err := s.admin.ListUsers(ctx, actor, model.RoleCode(r.str("role")), page, size)
	if err != nil {
		return nil, toStatus(err)
	}
	return reply(pageFields(p, userList(p.Items)))
}
