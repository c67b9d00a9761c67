package user

import (
	"context"
	"net/mail"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/cinetwork/cin/backend/core"
	"github.com/cinetwork/cin/backend/core/capability"
)

var (
	NowFunc = time.Now // mockable

	// errors
	ErrNotFound            = errors.New("user not found")
	ErrEmailExists         = errors.New("a user with this email already exists")
	ErrUsernameExists      = errors.New("a user with this username already exists")
	ErrUnknownOrganization = errors.New("organization not found")
	errInvalidValue        = errors.New("invalid value")
)

type (
	Repository interface {
		// CheckUniqueness returns ErrUsernameExists or ErrEmailExists if another User (not `excludedID`) uses them.
		CheckUniqueness(ctx context.Context, username, email, excludedID string) error
		OrganizationExists(ctx context.Context, id string) (bool, error)
		CreateUser(ctx context.Context, usr User) (User, error)
		// QueryUsers applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of User.Name, User.Username or User.Email.
		QueryUsers(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]User, error)
		GetUser(ctx context.Context, filter GetFilter) (User, error)
		// UpdateUser saves the profile, role and credentials of the User. Points & badges are left untouched.
		UpdateUser(ctx context.Context, usr User) (User, error)
		DeleteUsers(ctx context.Context, ids ...string) error
	}

	Service struct {
		repo     Repository
		mailSvc  core.EmailService
		validate *validator.Validate
	}
)

func NewService(repo Repository, mailSvc core.EmailService, validate *validator.Validate, conf *core.Config) *Service {
	secretKey = []byte(conf.SecretKey)
	if conf.Server.PasswordResetTimeoutDelta > 0 {
		passwordResetTimeoutDelta = conf.Server.PasswordResetTimeoutDelta
	}
	return &Service{repo: repo, mailSvc: mailSvc, validate: validate}
}

func (svc *Service) checkUniqueness(ctx context.Context, uname, email, excludedID string) error {
	if err := svc.repo.CheckUniqueness(ctx, uname, email, excludedID); err != nil {
		switch errors.Cause(err) {
		case ErrUsernameExists:
			return core.NewFieldError("username", ErrUsernameExists)
		case ErrEmailExists:
			return core.NewFieldError("email", ErrEmailExists)
		default:
			return errors.Wrap(err, "checking uniqueness")
		}
	}
	return nil
}

func (svc *Service) checkOrganization(ctx context.Context, orgID string) error {
	if orgID == "" {
		return nil
	}
	exists, err := svc.repo.OrganizationExists(ctx, orgID)
	if err != nil {
		return errors.Wrap(err, "checking organization")
	}
	if !exists {
		return core.NewFieldError("organization_id", ErrUnknownOrganization)
	}
	return nil
}

func (svc *Service) Create(ctx context.Context, nu NewUser) (User, error) {
	if err := nu.Validate(svc.validate); err != nil {
		return User{}, err
	}
	if err := svc.checkUniqueness(ctx, nu.Username, nu.Email, ""); err != nil {
		return User{}, err
	}
	if err := svc.checkOrganization(ctx, nu.OrganizationID); err != nil {
		return User{}, err
	}

	now := NowFunc().UTC()
	usr := User{
		Name:           nu.Name,
		Username:       nu.Username,
		Email:          nu.Email,
		Role:           capability.Role(nu.Role),
		OrganizationID: nu.OrganizationID,
		Badges:         []string{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	usr.SetActive(true)
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, errors.Wrap(err, "setting password")
	}
	return svc.repo.CreateUser(ctx, usr)
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]User, error) {
	return svc.repo.QueryUsers(ctx, filter, ordering)
}

func (svc *Service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{ID: id})
}

func (svc *Service) GetByUsernameOrEmail(ctx context.Context, uname string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{UsernameOrEmail: []string{core.CleanString(uname, true /* lower */)}})
}

func (svc *Service) Update(ctx context.Context, id string, uu UpdateUser) (User, error) {
	usr, err := svc.GetByID(ctx, id)
	if err != nil {
		return User{}, err
	}
	if err = uu.Validate(usr, svc.validate); err != nil {
		return User{}, err
	}
	if err = svc.checkUniqueness(ctx, uu.Username, uu.Email, usr.ID); err != nil {
		return User{}, err
	}
	if uu.OrganizationID != usr.OrganizationID {
		if err = svc.checkOrganization(ctx, uu.OrganizationID); err != nil {
			return User{}, err
		}
	}

	usr.Name = uu.Name
	usr.Username = uu.Username
	usr.Email = uu.Email
	usr.Role = capability.Role(uu.Role)
	usr.OrganizationID = uu.OrganizationID
	if uu.IsActive != nil {
		usr.SetActive(*uu.IsActive)
	}
	if uu.Password != "" {
		if err = usr.SetPassword(uu.Password); err != nil {
			return User{}, errors.Wrap(err, "setting password")
		}
	}
	usr.UpdatedAt = NowFunc().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *Service) Delete(ctx context.Context, ids ...string) error {
	return svc.repo.DeleteUsers(ctx, ids...)
}

// UserPoints returns the points balance of the User.
func (svc *Service) UserPoints(ctx context.Context, id string) (int, error) {
	usr, err := svc.GetByID(ctx, id)
	if err != nil {
		return 0, err
	}
	return usr.Points, nil
}

func (svc *Service) SetLastLogin(ctx context.Context, usr User) (User, error) {
	usr.LastLogin = NowFunc().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

// RequestPasswordReset mails a password reset link to the active User with the given email.
func (svc *Service) RequestPasswordReset(ctx context.Context, email string) error {
	usr, err := svc.repo.GetUser(ctx, GetFilter{UsernameOrEmail: []string{core.CleanString(email, true /* lower */)}})
	if err != nil {
		return err
	}
	if !usr.Active() || usr.Email == "" {
		return ErrNotFound
	}
	svc.sendPasswordResetMail(usr)
	return nil
}

func (svc *Service) sendPasswordResetMail(usr User) {
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:      "Password Reset",
		TemplateName: "password_reset",
		TemplateData: map[string]interface{}{
			"Name":     usr.Name,
			"Username": usr.Username,
			"UID":      EncodeUID(usr),
			"Token":    MakeToken(usr),
		},
	})
}

// ResetPassword sets a new password for the User identified by a valid (uid, token) pair.
func (svc *Service) ResetPassword(ctx context.Context, data ResetUserPassword) error {
	if err := data.Validate(svc.validate); err != nil {
		return err
	}

	id, err := decodeUID(data.UID)
	if err != nil {
		return core.NewFieldError("uid", errInvalidValue)
	}
	usr, err := svc.GetByID(ctx, id)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return core.NewFieldError("uid", errInvalidValue)
		}
		return errors.Wrap(err, "finding user by ID")
	}
	if err = verifyToken(usr, data.Token); err != nil {
		return core.NewFieldError("token", errInvalidValue)
	}

	if err = usr.SetPassword(data.Password); err != nil {
		return errors.Wrap(err, "setting password")
	}
	usr.UpdatedAt = NowFunc().UTC()
	_, err = svc.repo.UpdateUser(ctx, usr)
	return err
}
