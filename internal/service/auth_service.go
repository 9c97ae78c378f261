package service

import (
	"context"
	"strings"
	"time"

	"facturex/internal/dto"
	"facturex/internal/models"
	"facturex/pkg/auth"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// UserStore is the user repository surface the auth flow needs.
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// CompanyAccountStore creates the tenant a new account registers.
type CompanyAccountStore interface {
	Create(ctx context.Context, company *models.Company) error
	GetByCode(ctx context.Context, code string) (*models.Company, error)
}

type AuthService struct {
	users      UserStore
	companies  CompanyAccountStore
	jwtManager *auth.JWTManager
	logger     *zap.Logger
}

func NewAuthService(users UserStore, companies CompanyAccountStore, jwtManager *auth.JWTManager, logger *zap.Logger) *AuthService {
	return &AuthService{
		users:      users,
		companies:  companies,
		jwtManager: jwtManager,
		logger:     logger,
	}
}

// Register creates a company together with its first user, who becomes
// the company admin.
func (s *AuthService) Register(ctx context.Context, req *dto.RegisterRequest) (*dto.AuthResponse, error) {
	// Check if user exists
	existingUser, _ := s.users.GetByEmail(ctx, req.Email)
	if existingUser != nil {
		return nil, ErrUserExists
	}

	code := strings.ToUpper(strings.TrimSpace(req.CompanyCode))
	if code == "" {
		return nil, &ValidationError{Field: "company_code", Reason: "el código de empresa es obligatorio"}
	}
	existingCompany, _ := s.companies.GetByCode(ctx, code)
	if existingCompany != nil {
		return nil, ErrCompanyExists
	}

	// Hash password
	hashedPassword, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	company := &models.Company{
		ID:                 uuid.New(),
		Name:               strings.TrimSpace(req.CompanyName),
		Code:               code,
		DefaultFormat:      models.FormatZip,
		MaxExportDocuments: models.DefaultMaxExportDocuments,
		AllowDraftExport:   false,
		IncludeCreditNotes: true,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.companies.Create(ctx, company); err != nil {
		return nil, err
	}

	user := &models.User{
		ID:        uuid.New(),
		CompanyID: company.ID,
		Username:  req.Username,
		Email:     req.Email,
		Password:  hashedPassword,
		Role:      models.UserRoleAdmin,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("Company registered",
		zap.String("company_id", company.ID.String()),
		zap.String("company_code", company.Code),
	)

	return s.authResponse(user)
}

func (s *AuthService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.AuthResponse, error) {
	user, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	if !auth.CheckPasswordHash(req.Password, user.Password) {
		return nil, ErrInvalidCredentials
	}

	return s.authResponse(user)
}

func (s *AuthService) RefreshToken(ctx context.Context, refreshToken string) (*dto.AuthResponse, error) {
	userIDStr, err := s.jwtManager.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, ErrUserNotFound
	}

	return s.authResponse(user)
}

func (s *AuthService) authResponse(user *models.User) (*dto.AuthResponse, error) {
	accessToken, err := s.jwtManager.GenerateToken(
		user.ID.String(), user.CompanyID.String(), user.Username, user.Email, string(user.Role))
	if err != nil {
		return nil, err
	}

	refreshToken, err := s.jwtManager.GenerateRefreshToken(user.ID.String())
	if err != nil {
		return nil, err
	}

	return &dto.AuthResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.jwtManager.GetTokenDuration().Seconds()),
		User: dto.UserResponse{
			ID:        user.ID.String(),
			Username:  user.Username,
			Email:     user.Email,
			CompanyID: user.CompanyID.String(),
			Role:      string(user.Role),
		},
	}, nil
}
