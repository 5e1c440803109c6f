package services

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"swaad_backend/internal/models"
	"swaad_backend/internal/repositories"
	"swaad_backend/pkg/utils"
)

// LoginResult carries the signed token plus the identity it was minted for.
type LoginResult struct {
	Token string `json:"token"`
	UID   string `json:"uid"`
	Role  string `json:"role"`
	Name  string `json:"name"`
}

type AuthService interface {
	LoginRestaurant(email, password string) (*LoginResult, error)
	LoginCustomer(email, password string) (*LoginResult, error)
}

type authService struct {
	restaurantRepo repositories.RestaurantRepository
	customerRepo   repositories.CustomerRepository
}

// NewAuthService creates a new instance of AuthService.
func NewAuthService(restaurantRepo repositories.RestaurantRepository, customerRepo repositories.CustomerRepository) AuthService {
	return &authService{restaurantRepo: restaurantRepo, customerRepo: customerRepo}
}

func (s *authService) LoginRestaurant(email, password string) (*LoginResult, error) {
	if utils.IsEmpty(email) || utils.IsEmpty(password) {
		return nil, fmt.Errorf("%w: email and password are required", ErrValidation)
	}
	restaurant, err := s.restaurantRepo.GetByEmail(email)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to fetch restaurant by email: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(restaurant.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	return s.issue(restaurant.UID, models.RoleRestaurant, restaurant.Name)
}

func (s *authService) LoginCustomer(email, password string) (*LoginResult, error) {
	if utils.IsEmpty(email) || utils.IsEmpty(password) {
		return nil, fmt.Errorf("%w: email and password are required", ErrValidation)
	}
	customer, err := s.customerRepo.GetByEmail(email)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to fetch customer by email: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(customer.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	return s.issue(customer.UID, models.RoleCustomer, customer.FullName)
}

func (s *authService) issue(uid, role, name string) (*LoginResult, error) {
	token, err := utils.GenerateAccessToken(uid, role)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}
	return &LoginResult{Token: token, UID: uid, Role: role, Name: name}, nil
}
