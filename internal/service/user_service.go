package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"tourhub/internal/apperr"
	"tourhub/internal/domain"
	"tourhub/internal/models"
	"tourhub/internal/repository"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type CreateUserInput struct {
	Email         string
	Password      string
	Name          string
	ContactNumber string
	Address       string
	Bio           string
}

type UpdateProfileInput struct {
	Name            *string
	ContactNumber   *string
	Address         *string
	Bio             *string
	PayoutAccountID *string // host only
}

type UserService struct {
	db       *gorm.DB
	users    *repository.UserRepository
	hosts    *repository.HostRepository
	tourists *repository.TouristRepository
	admins   *repository.AdminRepository
	media    *Media
}

func NewUserService(db *gorm.DB, media *Media) *UserService {
	return &UserService{
		db:       db,
		users:    repository.NewUserRepository(db),
		hosts:    repository.NewHostRepository(db),
		tourists: repository.NewTouristRepository(db),
		admins:   repository.NewAdminRepository(db),
		media:    media,
	}
}

// CreateAccount registers a user with the role's profile row in one transaction.
func (s *UserService) CreateAccount(ctx context.Context, role string, in CreateUserInput, photo *Upload) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	exists, err := s.users.EmailExists(email)
	if err != nil {
		return nil, dbErr(err)
	}
	if exists {
		return nil, ErrEmailExists
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperr.Internal("could not hash password", err)
	}
	photoURL, err := s.media.UploadOne(ctx, "profiles", photo)
	if err != nil {
		return nil, err
	}
	profile := models.Profile{
		Name:          in.Name,
		Email:         email,
		ProfilePhoto:  photoURL,
		ContactNumber: in.ContactNumber,
		Address:       in.Address,
		Bio:           in.Bio,
	}
	u := &models.User{Email: email, PasswordHash: string(hash), Role: role, Status: domain.UserStatusActive}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.users.WithTx(tx).Create(u); err != nil {
			return err
		}
		switch role {
		case domain.RoleAdmin:
			u.Admin = &models.Admin{UserID: u.ID, Profile: profile}
			return s.admins.WithTx(tx).Create(u.Admin)
		case domain.RoleHost:
			u.Host = &models.Host{UserID: u.ID, Profile: profile, TourLimit: domain.FreeTourLimit, BlogLimit: intPtr(domain.FreeBlogLimit)}
			return s.hosts.WithTx(tx).Create(u.Host)
		case domain.RoleTourist:
			u.Tourist = &models.Tourist{UserID: u.ID, Profile: profile}
			return s.tourists.WithTx(tx).Create(u.Tourist)
		}
		return apperr.BadRequestf("unknown role %q", role)
	})
	if err != nil {
		s.media.Delete(context.Background(), photoURL)
		return nil, dbErr(err)
	}
	return u, nil
}

// Me returns the user with the role profile loaded.
func (s *UserService) Me(userID uint) (*models.User, error) {
	u, err := s.users.GetWithProfile(userID)
	if err != nil {
		return nil, notFound(err, "User not found")
	}
	if !u.IsActive() {
		return nil, apperr.Forbidden("Your account is not active")
	}
	return u, nil
}

// UpdateProfile changes the caller's profile fields and optionally the photo.
func (s *UserService) UpdateProfile(ctx context.Context, userID uint, in UpdateProfileInput, photo *Upload) (*models.User, error) {
	u, err := s.Me(userID)
	if err != nil {
		return nil, err
	}
	fields := map[string]interface{}{}
	if in.Name != nil {
		fields["name"] = *in.Name
	}
	if in.ContactNumber != nil {
		fields["contact_number"] = *in.ContactNumber
	}
	if in.Address != nil {
		fields["address"] = *in.Address
	}
	if in.Bio != nil {
		fields["bio"] = *in.Bio
	}
	if in.PayoutAccountID != nil {
		if u.Host == nil {
			return nil, apperr.BadRequest("Only hosts can set a payout account")
		}
		fields["payout_account_id"] = strings.TrimSpace(*in.PayoutAccountID)
	}
	var oldPhoto string
	if photo != nil {
		url, err := s.media.UploadOne(ctx, "profiles", photo)
		if err != nil {
			return nil, err
		}
		fields["profile_photo"] = url
	}
	if len(fields) == 0 {
		return u, nil
	}
	var model interface{}
	switch {
	case u.Admin != nil:
		model, oldPhoto = &models.Admin{ID: u.Admin.ID}, u.Admin.ProfilePhoto
	case u.Host != nil:
		model, oldPhoto = &models.Host{ID: u.Host.ID}, u.Host.ProfilePhoto
	case u.Tourist != nil:
		model, oldPhoto = &models.Tourist{ID: u.Tourist.ID}, u.Tourist.ProfilePhoto
	default:
		return nil, apperr.NotFound("Profile not found")
	}
	if err := s.db.WithContext(ctx).Model(model).Updates(fields).Error; err != nil {
		return nil, dbErr(err)
	}
	if photo != nil {
		s.media.Delete(context.Background(), oldPhoto)
	}
	return s.Me(userID)
}

func (s *UserService) List(f repository.UserFilter, p repository.Page) ([]models.User, int64, error) {
	list, total, err := s.users.List(f, p)
	return list, total, dbErr(err)
}

// ChangeStatus lets an admin block or re-activate an account.
func (s *UserService) ChangeStatus(actor Actor, id uint, status string) (*models.User, error) {
	if status != domain.UserStatusActive && status != domain.UserStatusBlocked && status != domain.UserStatusDeleted {
		return nil, apperr.BadRequest("Invalid status")
	}
	if actor.UserID == id {
		return nil, apperr.BadRequest("You cannot change your own status")
	}
	if _, err := s.users.GetByID(id); err != nil {
		return nil, notFound(err, "User not found")
	}
	if err := s.users.UpdateFields(id, map[string]interface{}{"status": status}); err != nil {
		return nil, dbErr(err)
	}
	u, err := s.users.GetWithProfile(id)
	return u, dbErr(err)
}

// Delete marks the account DELETED and soft deletes the user and its profile.
func (s *UserService) Delete(actor Actor, id uint) error {
	if actor.UserID == id {
		return apperr.BadRequest("You cannot delete your own account")
	}
	u, err := s.users.GetByID(id)
	if err != nil {
		return notFound(err, "User not found")
	}
	return dbErr(s.db.Transaction(func(tx *gorm.DB) error {
		users := s.users.WithTx(tx)
		if err := users.UpdateFields(u.ID, map[string]interface{}{"status": domain.UserStatusDeleted}); err != nil {
			return err
		}
		var profile interface{}
		switch u.Role {
		case domain.RoleAdmin:
			profile = &models.Admin{}
		case domain.RoleHost:
			profile = &models.Host{}
		default:
			profile = &models.Tourist{}
		}
		if err := tx.Where("user_id = ?", u.ID).Delete(profile).Error; err != nil {
			return err
		}
		return users.Delete(u.ID)
	}))
}

func (s *UserService) SetFCMToken(userID uint, token string) error {
	return dbErr(s.users.UpdateFields(userID, map[string]interface{}{"fcm_token": token}))
}

// hostFor resolves the host profile of a user.
func hostFor(hosts *repository.HostRepository, userID uint) (*models.Host, error) {
	h, err := hosts.GetByUserID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("Host not found")
		}
		return nil, dbErr(err)
	}
	return h, nil
}

// touristFor resolves the tourist profile of a user.
func touristFor(tourists *repository.TouristRepository, userID uint) (*models.Tourist, error) {
	t, err := tourists.GetByUserID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("Tourist not found")
		}
		return nil, dbErr(err)
	}
	return t, nil
}

func intPtr(v int) *int { return &v }

func now() time.Time { return time.Now().UTC() }
