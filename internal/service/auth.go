package service

import (
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/diario-app/diario-back/internal/db"
)

var (
	ErrLoginUserNotFound         = errors.New("user not found")
	ErrLoginPasswordDoesNotMatch = errors.New("password does not match")
)

type Auth struct {
	db     *gorm.DB
	logger *zap.SugaredLogger
}

func NewAuth(db *gorm.DB, l *zap.SugaredLogger) *Auth {
	return &Auth{
		db:     db,
		logger: l,
	}
}

func (s *Auth) Register(email, pass string) (string, error) {
	hash, err := s.bcryptGen(pass)
	if err != nil {
		return "", errors.Wrap(err, "bcryptGen")
	}
	token := uuid.New().String()
	res := s.db.Create(&db.User{
		Email:    email,
		Password: hash,
		Token:    token,
	})
	if res.Error != nil {
		return "", res.Error
	}
	return token, nil
}

func (s *Auth) Login(email, pass string) (string, error) {
	user := db.User{}
	res := s.db.Where("email = ?", email).First(&user)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrRecordNotFound) {
			return "", ErrLoginUserNotFound
		}
		return "", res.Error
	}

	if err := s.bcryptCheck(user.Password, pass); err != nil {
		return "", ErrLoginPasswordDoesNotMatch
	}

	token := uuid.New().String()
	res = s.db.Model(&user).Update("token", token)
	if res.Error != nil {
		return "", errors.Wrap(res.Error, "update token")
	}

	return token, nil
}

// Logout rotates the token to a value nobody holds, invalidating the session.
func (s *Auth) Logout(token string) error {
	user := db.User{}
	res := s.db.Where("token = ?", token).First(&user)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrRecordNotFound) {
			return nil
		}
		return res.Error
	}

	res = s.db.Model(&user).Update("token", uuid.New().String())
	if res.Error != nil {
		return errors.Wrap(res.Error, "rotate token")
	}
	return nil
}

func (s *Auth) bcryptGen(pass string) (string, error) {
	passwordHashB, err := bcrypt.GenerateFromPassword([]byte(pass), 14)
	if err != nil {
		return "", errors.Wrap(err, "generate password hash")
	}
	return string(passwordHashB), nil
}

func (s *Auth) bcryptCheck(hash, pass string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pass))
}
