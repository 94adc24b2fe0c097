package service

import (
	"context"
	"strings"
	"time"

	"ai-textassist-be/internal/dto"
	"ai-textassist-be/internal/entity"
	"ai-textassist-be/internal/pkg/logger"
	"ai-textassist-be/internal/pkg/serverutils"
	"ai-textassist-be/internal/repository/specification"
	"ai-textassist-be/internal/repository/unitofwork"
	"ai-textassist-be/pkg/events"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type IAuthService interface {
	Register(ctx context.Context, req *dto.RegisterRequest) (*dto.RegisterResponse, error)
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.LoginResponse, error)
	Me(ctx context.Context, userId uuid.UUID) (*dto.MeResponse, error)
}

type authService struct {
	uowFactory     unitofwork.RepositoryFactory
	entitlements   EntitlementService
	eventPublisher events.Publisher
	logger         logger.ILogger
	jwtSecret      string
	tokenExpiry    time.Duration
}

func NewAuthService(
	uowFactory unitofwork.RepositoryFactory,
	entitlements EntitlementService,
	eventPublisher events.Publisher,
	log logger.ILogger,
	jwtSecret string,
	tokenExpiry time.Duration,
) IAuthService {
	if tokenExpiry <= 0 {
		tokenExpiry = 24 * time.Hour
	}
	return &authService{
		uowFactory:     uowFactory,
		entitlements:   entitlements,
		eventPublisher: eventPublisher,
		logger:         log,
		jwtSecret:      jwtSecret,
		tokenExpiry:    tokenExpiry,
	}
}

func (s *authService) Register(ctx context.Context, req *dto.RegisterRequest) (*dto.RegisterResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	uow := s.uowFactory.NewUnitOfWork(ctx)

	// 1. Check for existing user
	existing, err := uow.UserRepository().FindOne(ctx, specification.ByEmail{Email: email})
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, dto.NewConflictError("Email already registered")
	}

	// 2. Hash password
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	// 3. Save
	user := &entity.User{
		Id:           uuid.New(),
		Email:        email,
		PasswordHash: string(hash),
		FullName:     req.FullName,
		Role:         entity.UserRoleUser,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	if err := uow.UserRepository().Create(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("AUTH", "User registered", map[string]interface{}{"user_id": user.Id.String()})

	if s.eventPublisher != nil {
		go func() {
			pubCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := s.eventPublisher.Publish(pubCtx, events.NewUserRegistered(user.Id.String(), user.Email)); err != nil {
				s.logger.Warn("AUTH", "Failed to publish event", map[string]interface{}{"error": err.Error()})
			}
		}()
	}

	return &dto.RegisterResponse{Id: user.Id, Email: user.Email}, nil
}

func (s *authService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.LoginResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	user, err := uow.UserRepository().FindOne(ctx, specification.ByEmail{Email: strings.ToLower(strings.TrimSpace(req.Email))})
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, dto.NewUnauthorizedError("Invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, dto.NewUnauthorizedError("Invalid credentials")
	}

	token, err := serverutils.GenerateToken(s.jwtSecret, user.Id, string(user.Role), s.tokenExpiry)
	if err != nil {
		return nil, err
	}

	status, err := s.entitlements.GetStatus(ctx, user.Id)
	if err != nil {
		return nil, err
	}

	return &dto.LoginResponse{
		AccessToken: token,
		User:        toUserDTO(user),
		Entitlement: *status,
	}, nil
}

func (s *authService) Me(ctx context.Context, userId uuid.UUID) (*dto.MeResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	user, err := uow.UserRepository().FindOne(ctx, specification.ByID{ID: userId})
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, dto.NewUnauthorizedError("User no longer exists")
	}

	status, err := s.entitlements.GetStatus(ctx, userId)
	if err != nil {
		return nil, err
	}

	return &dto.MeResponse{User: toUserDTO(user), Entitlement: *status}, nil
}

func toUserDTO(user *entity.User) dto.UserDTO {
	return dto.UserDTO{
		Id:       user.Id,
		Email:    user.Email,
		FullName: user.FullName,
		Role:     string(user.Role),
	}
}
