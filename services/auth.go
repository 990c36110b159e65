package services

import (
	"time"

	"github.com/alphabatem/common/context"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/worldplex-live/worldplex_api/dto"
	"github.com/worldplex-live/worldplex_api/model"
	"github.com/worldplex-live/worldplex_api/shared"
)

const AUTH_SVC = "auth_svc"

type AuthService struct {
	context.DefaultService

	store  *worldStore
	jwtSvc *JWTService
}

func (svc AuthService) Id() string {
	return AUTH_SVC
}

func (svc *AuthService) Configure(ctx *context.Context) error {
	svc.store = resolveWorldStore(ctx)
	svc.jwtSvc = ctx.Service(JWT_SVC).(*JWTService)
	return svc.DefaultService.Configure(ctx)
}

func (svc *AuthService) Start() error {
	return nil
}

func (svc *AuthService) Register(req dto.RegisterRequest) (*dto.RegisterResponse, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, shared.NewInternalError(err, "Failed to hash password")
	}

	id, _ := uuid.NewV7()
	user := &model.User{
		ID:       id.String(),
		Email:    req.Email,
		Username: req.Username,
		Password: string(hash),
		Role:     shared.RoleUser,
	}

	if err := svc.store.CreateUser(user); err != nil {
		if isDuplicateKey(err) {
			return nil, shared.NewConflictError(err, "Email or username already registered")
		}
		return nil, shared.NewInternalError(err, "Failed to create user")
	}

	log.WithField(shared.UserID, user.ID).Info("User registered")
	return &dto.RegisterResponse{
		UserID:    user.ID,
		Username:  user.Username,
		CreatedAt: user.CreatedAt,
	}, nil
}

func (svc *AuthService) Login(req dto.LoginRequest) (*dto.LoginResponse, error) {
	user, err := svc.store.GetUserByEmailOrUsername(req.EmailOrUsername)
	if err != nil {
		// Same response whether the account exists or not.
		return nil, shared.NewUnauthorizedError(err, "Invalid credentials")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, shared.NewUnauthorizedError(err, "Invalid credentials")
	}

	pair, err := svc.jwtSvc.GenerateTokenPair(user.ID, user.Role)
	if err != nil {
		return nil, shared.NewInternalError(err, "Failed to issue token")
	}

	if err := svc.store.UpdateUserLastLogin(user.ID, time.Now()); err != nil {
		log.WithError(err).WithField(shared.UserID, user.ID).Warn("Failed to record last login")
	}

	return &dto.LoginResponse{
		UserID:      user.ID,
		Username:    user.Username,
		AccessToken: pair.AccessToken,
		ExpiresIn:   pair.ExpiresIn,
	}, nil
}
