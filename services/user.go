package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/meinhoongagan/hospital-booking/auth"
	"github.com/meinhoongagan/hospital-booking/models"
	"github.com/meinhoongagan/hospital-booking/store"
)

const (
	defaultPage  = 1
	defaultLimit = 10
	maxLimit     = 100
)

// ImageUploader stores a profile image and returns its public URL.
type ImageUploader interface {
	UploadImage(ctx context.Context, r io.Reader, publicID string) (string, error)
}

type UserService struct {
	store    store.Store
	secret   string
	ttl      time.Duration
	uploader ImageUploader
}

// NewUserService builds the service. uploader may be nil when image hosting
// is not configured.
func NewUserService(s store.Store, secret string, ttl time.Duration, uploader ImageUploader) *UserService {
	return &UserService{store: s, secret: secret, ttl: ttl, uploader: uploader}
}

type RegisterInput struct {
	Name     string `json:"name" validate:"required,min=2,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Phone    string `json:"phone" validate:"max=20"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type CreateUserInput struct {
	Name       string      `json:"name" validate:"required,min=2,max=100"`
	Email      string      `json:"email" validate:"required,email"`
	Password   string      `json:"password" validate:"required,min=6"`
	Phone      string      `json:"phone" validate:"max=20"`
	Role       models.Role `json:"role" validate:"required,oneof=patient doctor admin"`
	Specialty  string      `json:"specialty"`
	Department string      `json:"department"`
	Experience string      `json:"experience"`
	Available  *bool       `json:"available"`
}

type UpdateUserInput struct {
	Name       *string `json:"name" validate:"omitempty,min=2,max=100"`
	Email      *string `json:"email" validate:"omitempty,email"`
	Phone      *string `json:"phone" validate:"omitempty,max=20"`
	Specialty  *string `json:"specialty"`
	Department *string `json:"department"`
	Experience *string `json:"experience"`
	Available  *bool   `json:"available"`
}

type AuthResult struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

type Pagination struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
	Pages int   `json:"pages"`
}

type UserPage struct {
	Users      []models.User `json:"users"`
	Pagination Pagination    `json:"pagination"`
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Register creates a patient account and signs the caller in.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = normalizeEmail(in.Email)
	if in.Name == "" || in.Email == "" || in.Password == "" {
		return nil, fail(ErrInvalidInput, "Name, email and password are required")
	}
	u, err := s.create(ctx, &models.User{
		Name:  in.Name,
		Email: in.Email,
		Phone: strings.TrimSpace(in.Phone),
		Role:  models.RolePatient,
	}, in.Password)
	if err != nil {
		return nil, err
	}
	return s.issue(u)
}

func (s *UserService) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	u, err := s.store.UserByEmail(ctx, normalizeEmail(in.Email))
	if errors.Is(err, store.ErrNotFound) {
		return nil, fail(ErrUnauthenticated, "Invalid credentials")
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if !auth.CheckPassword(u.Password, in.Password) {
		return nil, fail(ErrUnauthenticated, "Invalid credentials")
	}
	if !u.IsActive {
		return nil, fail(ErrUnauthenticated, "Account is deactivated")
	}
	return s.issue(u)
}

// Current resolves the user behind a verified token. Deleted or deactivated
// accounts are rejected even while their token is still valid.
func (s *UserService) Current(ctx context.Context, id string) (*models.User, error) {
	u, err := s.store.UserByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fail(ErrUnauthenticated, "Token is not valid")
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if !u.IsActive {
		return nil, fail(ErrUnauthenticated, "Account is deactivated")
	}
	return u, nil
}

func (s *UserService) Doctors(ctx context.Context) ([]models.User, error) {
	doctors, err := s.store.ListDoctors(ctx)
	if err != nil {
		return nil, fmt.Errorf("list doctors: %w", err)
	}
	if doctors == nil {
		doctors = []models.User{}
	}
	return doctors, nil
}

// List pages through all users, newest first. Admin only.
func (s *UserService) List(ctx context.Context, actor Actor, role string, page, limit int) (*UserPage, error) {
	if !actor.IsAdmin() {
		return nil, fail(ErrAccessDenied, msgAccessDenied)
	}
	if role != "" && !models.Role(role).Valid() {
		return nil, fail(ErrInvalidInput, "Invalid role")
	}
	if page < 1 {
		page = defaultPage
	}
	if limit < 1 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	users, total, err := s.store.ListUsers(ctx, store.UserFilter{Role: models.Role(role), Page: page, Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	if users == nil {
		users = []models.User{}
	}
	return &UserPage{
		Users: users,
		Pagination: Pagination{
			Page:  page,
			Limit: limit,
			Total: total,
			Pages: int(math.Ceil(float64(total) / float64(limit))),
		},
	}, nil
}

func (s *UserService) Get(ctx context.Context, actor Actor, id string) (*models.User, error) {
	if !actor.IsAdmin() && actor.ID != id {
		return nil, fail(ErrAccessDenied, msgAccessDenied)
	}
	return s.load(ctx, id)
}

// Create adds an account of any role. Admin only; this is how doctors are
// onboarded.
func (s *UserService) Create(ctx context.Context, actor Actor, in CreateUserInput) (*models.User, error) {
	if !actor.IsAdmin() {
		return nil, fail(ErrAccessDenied, msgAccessDenied)
	}
	if !in.Role.Valid() {
		return nil, fail(ErrInvalidInput, "Invalid role")
	}
	u := &models.User{
		Name:  strings.TrimSpace(in.Name),
		Email: normalizeEmail(in.Email),
		Phone: strings.TrimSpace(in.Phone),
		Role:  in.Role,
	}
	if u.Name == "" || u.Email == "" || in.Password == "" {
		return nil, fail(ErrInvalidInput, "Name, email and password are required")
	}
	if in.Role == models.RoleDoctor {
		u.Specialty = strings.TrimSpace(in.Specialty)
		u.Department = strings.TrimSpace(in.Department)
		u.Experience = strings.TrimSpace(in.Experience)
		u.Available = true
		if in.Available != nil {
			u.Available = *in.Available
		}
		if u.Department == "" {
			return nil, fail(ErrInvalidInput, "Department is required for doctors")
		}
	}
	return s.create(ctx, u, in.Password)
}

// Update edits a profile. Admins may edit anyone, users only themselves.
// Doctor-only fields are rejected for other roles.
func (s *UserService) Update(ctx context.Context, actor Actor, id string, in UpdateUserInput) (*models.User, error) {
	if !actor.IsAdmin() && actor.ID != id {
		return nil, fail(ErrAccessDenied, msgAccessDenied)
	}
	u, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	doctorFields := in.Specialty != nil || in.Department != nil || in.Experience != nil || in.Available != nil
	if doctorFields && u.Role != models.RoleDoctor {
		return nil, fail(ErrInvalidInput, "Only doctor profiles have specialty, department, experience or availability")
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, fail(ErrInvalidInput, "Name cannot be empty")
		}
		u.Name = name
	}
	if in.Email != nil {
		email := normalizeEmail(*in.Email)
		if email == "" {
			return nil, fail(ErrInvalidInput, "Email cannot be empty")
		}
		u.Email = email
	}
	if in.Phone != nil {
		u.Phone = strings.TrimSpace(*in.Phone)
	}
	if in.Specialty != nil {
		u.Specialty = strings.TrimSpace(*in.Specialty)
	}
	if in.Department != nil {
		u.Department = strings.TrimSpace(*in.Department)
	}
	if in.Experience != nil {
		u.Experience = strings.TrimSpace(*in.Experience)
	}
	if in.Available != nil {
		u.Available = *in.Available
	}

	if err := s.save(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// SetActive soft-deletes or restores an account. Admin only.
func (s *UserService) SetActive(ctx context.Context, actor Actor, id string, active bool) (*models.User, error) {
	if !actor.IsAdmin() {
		return nil, fail(ErrAccessDenied, msgAccessDenied)
	}
	if !active && actor.ID == id {
		return nil, fail(ErrInvalidInput, "You cannot deactivate your own account")
	}
	u, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if u.IsActive == active {
		return u, nil
	}
	u.IsActive = active
	if err := s.save(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *UserService) Stats(ctx context.Context, actor Actor) (*models.UserStats, error) {
	if !actor.IsAdmin() {
		return nil, fail(ErrAccessDenied, msgAccessDenied)
	}
	stats, err := s.store.UserStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("user stats: %w", err)
	}
	return stats, nil
}

// UploadImage replaces a doctor's profile image.
func (s *UserService) UploadImage(ctx context.Context, actor Actor, id string, r io.Reader) (*models.User, error) {
	if !actor.IsAdmin() && actor.ID != id {
		return nil, fail(ErrAccessDenied, msgAccessDenied)
	}
	if s.uploader == nil {
		return nil, fail(ErrInvalidInput, "Image uploads are not configured")
	}
	u, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if u.Role != models.RoleDoctor {
		return nil, fail(ErrInvalidInput, "Only doctor profiles have images")
	}

	url, err := s.uploader.UploadImage(ctx, r, "doctor_"+u.ID)
	if err != nil {
		return nil, fmt.Errorf("upload image: %w", err)
	}
	u.Image = url
	if err := s.save(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

type seedDoctor struct {
	name, email, phone, specialty, department, experience string
}

var defaultDoctors = []seedDoctor{
	{"Dr. Sarah Johnson", "sarah.johnson@hospital.com", "+1-555-0101", "Cardiology", "Heart Care", "15 years"},
	{"Dr. Michael Chen", "michael.chen@hospital.com", "+1-555-0102", "Orthopedics", "Bone & Joint", "12 years"},
	{"Dr. Emily Rodriguez", "emily.rodriguez@hospital.com", "+1-555-0103", "Pediatrics", "Child Care", "10 years"},
}

const defaultDoctorPassword = "doctor123"

// Seed creates the default admin and doctors when they do not exist yet.
func (s *UserService) Seed(ctx context.Context, adminEmail, adminPassword string) error {
	admin := &models.User{
		Name:  "Hospital Administrator",
		Email: normalizeEmail(adminEmail),
		Phone: "+1-555-0001",
		Role:  models.RoleAdmin,
	}
	if err := s.seedOne(ctx, admin, adminPassword); err != nil {
		return err
	}
	for _, d := range defaultDoctors {
		doctor := &models.User{
			Name:       d.name,
			Email:      d.email,
			Phone:      d.phone,
			Role:       models.RoleDoctor,
			Specialty:  d.specialty,
			Department: d.department,
			Experience: d.experience,
			Available:  true,
		}
		if err := s.seedOne(ctx, doctor, defaultDoctorPassword); err != nil {
			return err
		}
	}
	return nil
}

func (s *UserService) seedOne(ctx context.Context, u *models.User, password string) error {
	_, err := s.store.UserByEmail(ctx, u.Email)
	if err == nil {
		return nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("seed %s: %w", u.Email, err)
	}
	if _, err := s.create(ctx, u, password); err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			return nil
		}
		return fmt.Errorf("seed %s: %w", u.Email, err)
	}
	log.Printf("services: seeded %s account %s", u.Role, u.Email)
	return nil
}

func (s *UserService) create(ctx context.Context, u *models.User, password string) (*models.User, error) {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u.ID = uuid.NewString()
	u.Password = hash
	u.IsActive = true
	if err := s.store.CreateUser(ctx, u); err != nil {
		if errors.Is(err, store.ErrDuplicateEmail) {
			return nil, fail(ErrDuplicateEmail, "User already exists with this email")
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

func (s *UserService) issue(u *models.User) (*AuthResult, error) {
	tok, err := auth.MakeToken(u, s.secret, s.ttl)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &AuthResult{Token: tok, User: u}, nil
}

func (s *UserService) load(ctx context.Context, id string) (*models.User, error) {
	u, err := s.store.UserByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fail(ErrNotFound, "User not found")
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	return u, nil
}

func (s *UserService) save(ctx context.Context, u *models.User) error {
	err := s.store.UpdateUser(ctx, u)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrDuplicateEmail):
		return fail(ErrDuplicateEmail, "Email is already in use")
	case errors.Is(err, store.ErrNotFound):
		return fail(ErrNotFound, "User not found")
	}
	return fmt.Errorf("update user: %w", err)
}
