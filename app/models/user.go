package models

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	ROLE_MEMBER = "member"
	ROLE_ADMIN  = "admin"

	STATUS_ACTIVE   = "active"
	STATUS_INACTIVE = "inactive"
	STATUS_DISABLED = "disabled"
)

const (
	// emailChangeTokenTTL bounds how long a confirmation link stays usable
	emailChangeTokenTTL   = 24 * time.Hour
	emailChangeTokenBytes = 16
)

type User struct {
	ID                 uint           `gorm:"primaryKey" json:"id"`
	Name               string         `gorm:"type:varchar(150)" json:"name" validate:"required,min=3,max=150"`
	Email              string         `gorm:"uniqueIndex;type:varchar(200) CHARACTER SET utf8 COLLATE utf8_bin" json:"email" validate:"required,email,min=5,max=200"`
	Password           string         `gorm:"type:text" json:"-" validate:"omitempty,min=8"` // empty for members, set for staff sign-in
	Role               string         `gorm:"type:varchar(50);default:'member'" json:"role" validate:"oneof=member admin"`
	Status             string         `gorm:"type:varchar(50);default:'inactive'" json:"status" validate:"oneof=active inactive disabled"`
	AvatarPath         string         `gorm:"type:varchar(255);default:null" json:"avatar_path" validate:"max=255"`
	GraduationYear     int            `gorm:"default:0" json:"graduation_year" validate:"omitempty,min=1900,max=2100"`
	Street             string         `gorm:"type:varchar(200);default:null" json:"street" validate:"max=200"`
	City               string         `gorm:"type:varchar(100);default:null" json:"city" validate:"max=100"`
	Zip                string         `gorm:"type:varchar(20);default:null" json:"zip" validate:"max=20"`
	Country            string         `gorm:"type:varchar(100);default:null" json:"country" validate:"max=100"`
	EmailVerifiedAt    *time.Time     `gorm:"type:timestamp;default:null" json:"-"`
	ProfileCompletedAt *time.Time     `gorm:"type:timestamp;default:null" json:"-"`
	SetupCompletedAt   *time.Time     `gorm:"type:timestamp;default:null" json:"-"`
	PendingEmail       string         `gorm:"type:varchar(200);default:null" json:"-"`       // New email waiting for verification
	EmailChangeToken   string         `gorm:"type:varchar(100);default:null;index" json:"-"` // Token for email change verification
	EmailChangeSentAt  *time.Time     `gorm:"type:timestamp;default:null" json:"-"`          // When email change token was sent
	LastLoginAt        *time.Time     `gorm:"type:timestamp;default:null" json:"last_login_at"`
	LoginCount         uint           `gorm:"default:0" json:"login_count"`
	MagicMailCount     uint           `gorm:"default:0" json:"-"`
	ProfileViewCount   uint           `gorm:"default:0" json:"-"`
	CreatedAt          time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"-"`
}

// Validate checks the struct against its validate tags.
func (u *User) Validate() error {
	return validator.New().Struct(u)
}

// CreateUser builds a passwordless member account. Members sign in through
// magic links only; the account stays inactive until the first link is used.
func CreateUser(name string, email string) (*User, error) {
	u := &User{
		Name:   name,
		Email:  email,
		Role:   ROLE_MEMBER,
		Status: STATUS_INACTIVE,
	}
	if err := u.Validate(); err != nil {
		return nil, err
	}
	return u, nil
}

// HashPassword bcrypt-hashes a staff password for storage.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPasswordHash reports whether password matches the stored bcrypt hash.
func CheckPasswordHash(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func (u *User) IsActive() bool {
	return u.Status == STATUS_ACTIVE
}

func (u *User) IsAdmin() bool {
	return u.Role == ROLE_ADMIN
}

// CanPasswordLogin reports whether a password is set for this account.
// Members never have one; staff accounts do.
func (u *User) CanPasswordLogin() bool {
	return u.Password != ""
}

// CheckPassword verifies the given password against the stored hash. Accounts
// without a password always fail.
func (u *User) CheckPassword(password string) bool {
	if u.Password == "" {
		return false
	}
	return CheckPasswordHash(password, u.Password)
}

// SetPassword hashes and stores a new password.
func (u *User) SetPassword(password string) error {
	hash, err := HashPassword(password)
	if err != nil {
		return err
	}
	u.Password = hash
	return nil
}

// MarkVerified activates the account after the first magic link is used.
func (u *User) MarkVerified() {
	now := time.Now()
	if u.EmailVerifiedAt == nil {
		u.EmailVerifiedAt = &now
	}
	if u.Status == STATUS_INACTIVE {
		u.Status = STATUS_ACTIVE
	}
}

// HasCompletedSetup reports whether the onboarding wizard was finished.
func (u *User) HasCompletedSetup() bool {
	return u.SetupCompletedAt != nil
}

// BeginEmailChange stores the requested address and issues the confirmation
// token mailed to it.
func (u *User) BeginEmailChange(newEmail string) error {
	buf := make([]byte, emailChangeTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return err
	}

	now := time.Now()
	u.PendingEmail = newEmail
	u.EmailChangeToken = hex.EncodeToString(buf)
	u.EmailChangeSentAt = &now
	return nil
}

// HasPendingEmailChange reports whether a change is waiting for confirmation.
func (u *User) HasPendingEmailChange() bool {
	return u.PendingEmail != "" && u.EmailChangeToken != ""
}

// IsEmailChangeTokenValid matches the token and enforces its TTL.
func (u *User) IsEmailChangeTokenValid(token string) bool {
	if token == "" || u.EmailChangeToken == "" || u.EmailChangeSentAt == nil {
		return false
	}
	if token != u.EmailChangeToken {
		return false
	}
	return time.Since(*u.EmailChangeSentAt) < emailChangeTokenTTL
}

// ClearEmailChangeRequest drops the pending address and its token, after a
// confirmation or a conflict.
func (u *User) ClearEmailChangeRequest() {
	u.PendingEmail = ""
	u.EmailChangeToken = ""
	u.EmailChangeSentAt = nil
}
