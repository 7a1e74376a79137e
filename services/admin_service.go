package services

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"bungalow-backend/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

type AdminService struct {
	DB *gorm.DB
}

func NewAdminService(db *gorm.DB) *AdminService {
	return &AdminService{DB: db}
}

func isBcryptHash(s string) bool {
	return strings.HasPrefix(s, "$2a$") || strings.HasPrefix(s, "$2b$") || strings.HasPrefix(s, "$2y$")
}

func (s *AdminService) Create(fullName, username, password, role string) (*models.Admin, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, fmt.Errorf("%w: username and password required", ErrValidation)
	}
	if role == "" {
		role = "admin"
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	admin := models.Admin{FullName: fullName, Username: username, Password: string(hash), Role: role}
	if err := s.DB.Create(&admin).Error; err != nil {
		if isDuplicateKey(err) {
			return nil, fmt.Errorf("%w: username %q already exists", ErrConflict, username)
		}
		return nil, fmt.Errorf("failed to create admin: %w", err)
	}
	return &admin, nil
}

// Authenticate checks a staff login. Accounts still holding a plain-text
// password are upgraded to bcrypt on their first successful login.
func (s *AdminService) Authenticate(username, password string) (*models.Admin, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, fmt.Errorf("%w: username and password required", ErrValidation)
	}

	var admin models.Admin
	if err := s.DB.Where("username = ?", username).First(&admin).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to load admin: %w", err)
	}

	stored := admin.Password
	if isBcryptHash(stored) {
		if bcrypt.CompareHashAndPassword([]byte(stored), []byte(password)) != nil {
			return nil, ErrInvalidCredentials
		}
		return &admin, nil
	}

	if stored != password {
		return nil, ErrInvalidCredentials
	}
	if hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost); err == nil {
		if err := s.DB.Model(&admin).Update("password", string(hash)).Error; err != nil {
			log.Printf("warning: failed to upgrade password hash for %s: %v", admin.Username, err)
		}
	}
	return &admin, nil
}
