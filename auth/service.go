package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"bloodbank/apperr"
	"bloodbank/globals"
	"bloodbank/models"
	"bloodbank/utils"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrNotFound   = errors.New("account not found")
	ErrEmailTaken = errors.New("email already registered")
)

const minPasswordLen = 6

// Accounts stores donors, facilities and admins in their own collections.
type Accounts interface {
	DonorByEmail(ctx context.Context, email string) (*models.Donor, error)
	FacilityByEmail(ctx context.Context, email string) (*models.Facility, error)
	AdminByEmail(ctx context.Context, email string) (*models.Admin, error)
	DonorByID(ctx context.Context, id string) (*models.Donor, error)
	FacilityByID(ctx context.Context, id string) (*models.Facility, error)
	AdminByID(ctx context.Context, id string) (*models.Admin, error)
	InsertDonor(ctx context.Context, d *models.Donor) error
	InsertFacility(ctx context.Context, f *models.Facility) error
	InsertAdmin(ctx context.Context, a *models.Admin) error
}

// Issuer signs session tokens.
type Issuer interface {
	Issue(userID, role, facilityType string) (string, error)
}

type Service struct {
	accounts Accounts
	tokens   Issuer
	cost     int
	now      func() time.Time
}

func NewService(accounts Accounts, tokens Issuer) *Service {
	return &Service{
		accounts: accounts,
		tokens:   tokens,
		cost:     bcrypt.DefaultCost,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// RegisterInput covers both donor and facility sign-up; Role picks which fields apply.
type RegisterInput struct {
	Role     string         `json:"role"`
	Email    string         `json:"email"`
	Password string         `json:"password"`
	Phone    string         `json:"phone"`
	Address  models.Address `json:"address"`

	FullName    string            `json:"fullName"`
	BloodGroup  models.BloodGroup `json:"bloodGroup"`
	Gender      string            `json:"gender"`
	DateOfBirth string            `json:"dateOfBirth"`

	Name               string              `json:"name"`
	FacilityType       models.FacilityType `json:"facilityType"`
	RegistrationNumber string              `json:"registrationNumber"`
	OperatingHours     string              `json:"operatingHours"`
}

// Session is what a successful login or donor sign-up returns.
type Session struct {
	Token string `json:"token,omitempty"`
	Role  string `json:"role"`
	User  any    `json:"user"`
}

func (s *Service) hash(password string) (string, error) {
	if len(password) < minPasswordLen {
		return "", apperr.Validationf("Password must be at least %d characters", minPasswordLen)
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return "", apperr.Internal("hash password", err)
	}
	return string(h), nil
}

func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}

// Register signs up a donor (logged in immediately) or a facility (pending approval).
func (s *Service) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	in.Email = utils.NormalizeEmail(in.Email)
	if !validEmail(in.Email) {
		return nil, apperr.Validation("A valid email is required")
	}
	switch in.Role {
	case "", globals.RoleDonor:
		return s.registerDonor(ctx, in)
	case globals.RoleFacility:
		return s.registerFacility(ctx, in)
	default:
		return nil, apperr.Validation("Role must be donor or facility")
	}
}

func (s *Service) registerDonor(ctx context.Context, in RegisterInput) (*Session, error) {
	in.FullName = strings.TrimSpace(in.FullName)
	if in.FullName == "" {
		return nil, apperr.Validation("Full name is required")
	}
	in.BloodGroup = models.BloodGroup(strings.ToUpper(strings.TrimSpace(string(in.BloodGroup))))
	if !in.BloodGroup.Valid() {
		return nil, apperr.Validation("Invalid blood group")
	}
	var dob *time.Time
	if in.DateOfBirth != "" {
		d, ok := utils.ParseDate(in.DateOfBirth)
		if !ok {
			return nil, apperr.Validation("Invalid date of birth")
		}
		dob = &d
	}
	hash, err := s.hash(in.Password)
	if err != nil {
		return nil, err
	}

	now := s.now()
	d := &models.Donor{
		ID:           utils.NewID(),
		FullName:     in.FullName,
		Email:        in.Email,
		PasswordHash: hash,
		Phone:        strings.TrimSpace(in.Phone),
		BloodGroup:   in.BloodGroup,
		Gender:       in.Gender,
		DateOfBirth:  dob,
		Address:      in.Address,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.accounts.InsertDonor(ctx, d); err != nil {
		return nil, insertError(err)
	}
	return s.session(d.ID, globals.RoleDonor, "", d)
}

func (s *Service) registerFacility(ctx context.Context, in RegisterInput) (*Session, error) {
	in.Name = strings.TrimSpace(in.Name)
	switch {
	case in.Name == "":
		return nil, apperr.Validation("Facility name is required")
	case !in.FacilityType.Valid():
		return nil, apperr.Validation("Facility type must be hospital or blood-lab")
	case strings.TrimSpace(in.Address.City) == "" || strings.TrimSpace(in.Address.State) == "":
		return nil, apperr.Validation("Address needs a city and state")
	}
	hash, err := s.hash(in.Password)
	if err != nil {
		return nil, err
	}

	now := s.now()
	f := &models.Facility{
		ID:                 utils.NewID(),
		Name:               in.Name,
		Email:              in.Email,
		PasswordHash:       hash,
		FacilityType:       in.FacilityType,
		RegistrationNumber: strings.TrimSpace(in.RegistrationNumber),
		Phone:              strings.TrimSpace(in.Phone),
		Address:            in.Address,
		OperatingHours:     strings.TrimSpace(in.OperatingHours),
		Status:             models.FacilityPending,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.accounts.InsertFacility(ctx, f); err != nil {
		return nil, insertError(err)
	}
	return &Session{Role: globals.RoleFacility, User: f}, nil
}

func insertError(err error) error {
	if errors.Is(err, ErrEmailTaken) {
		return apperr.Conflict("An account with this email already exists")
	}
	return apperr.Internal("insert account", err)
}

func (s *Service) session(id, role, facilityType string, user any) (*Session, error) {
	tok, err := s.tokens.Issue(id, role, facilityType)
	if err != nil {
		return nil, apperr.Internal("issue token", err)
	}
	return &Session{Token: tok, Role: role, User: user}, nil
}

type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

var errBadCredentials = apperr.Unauthorized("Invalid email or password")

// Login checks credentials for the given role. Facilities must be approved.
func (s *Service) Login(ctx context.Context, in LoginInput) (*Session, error) {
	email := utils.NormalizeEmail(in.Email)
	if email == "" || in.Password == "" {
		return nil, apperr.Validation("Email and password are required")
	}

	switch in.Role {
	case "", globals.RoleDonor:
		d, err := s.accounts.DonorByEmail(ctx, email)
		hash := ""
		if d != nil {
			hash = d.PasswordHash
		}
		if err := s.check(err, hash, in.Password); err != nil {
			return nil, err
		}
		return s.session(d.ID, globals.RoleDonor, "", d)

	case globals.RoleFacility:
		f, err := s.accounts.FacilityByEmail(ctx, email)
		hash := ""
		if f != nil {
			hash = f.PasswordHash
		}
		if err := s.check(err, hash, in.Password); err != nil {
			return nil, err
		}
		if f.Status != models.FacilityApproved {
			return nil, apperr.Forbidden(fmt.Sprintf("Facility account is %s approval", statusPhrase(f.Status)))
		}
		return s.session(f.ID, globals.RoleFacility, string(f.FacilityType), f)

	case globals.RoleAdmin:
		a, err := s.accounts.AdminByEmail(ctx, email)
		hash := ""
		if a != nil {
			hash = a.PasswordHash
		}
		if err := s.check(err, hash, in.Password); err != nil {
			return nil, err
		}
		return s.session(a.ID, globals.RoleAdmin, "", a)

	default:
		return nil, apperr.Validation("Role must be donor, facility or admin")
	}
}

func statusPhrase(st models.FacilityStatus) string {
	if st == models.FacilityRejected {
		return "rejected for"
	}
	return "pending"
}

func (s *Service) check(lookupErr error, hash, password string) error {
	if errors.Is(lookupErr, ErrNotFound) {
		return errBadCredentials
	}
	if lookupErr != nil {
		return apperr.Internal("find account", lookupErr)
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return errBadCredentials
	}
	return nil
}

// Profile returns the account behind a token.
func (s *Service) Profile(ctx context.Context, id, role string) (any, error) {
	var (
		user any
		err  error
	)
	switch role {
	case globals.RoleDonor:
		user, err = s.accounts.DonorByID(ctx, id)
	case globals.RoleFacility:
		user, err = s.accounts.FacilityByID(ctx, id)
	case globals.RoleAdmin:
		user, err = s.accounts.AdminByID(ctx, id)
	default:
		return nil, apperr.Forbidden("Access denied")
	}
	if errors.Is(err, ErrNotFound) {
		return nil, apperr.NotFound("Account not found")
	}
	if err != nil {
		return nil, apperr.Internal("find account", err)
	}
	return user, nil
}

// CreateAdmin provisions an administrator; there is no public sign-up for admins.
func (s *Service) CreateAdmin(ctx context.Context, name, email, password string) (*models.Admin, error) {
	email = utils.NormalizeEmail(email)
	if !validEmail(email) {
		return nil, apperr.Validation("A valid email is required")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = "Administrator"
	}
	hash, err := s.hash(password)
	if err != nil {
		return nil, err
	}
	a := &models.Admin{ID: utils.NewID(), Name: name, Email: email, PasswordHash: hash, CreatedAt: s.now()}
	if err := s.accounts.InsertAdmin(ctx, a); err != nil {
		return nil, insertError(err)
	}
	return a, nil
}
