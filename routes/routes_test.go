package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"

	"github.com/meinhoongagan/hospital-booking/auth"
	"github.com/meinhoongagan/hospital-booking/middleware"
	"github.com/meinhoongagan/hospital-booking/models"
	"github.com/meinhoongagan/hospital-booking/notify"
	"github.com/meinhoongagan/hospital-booking/services"
	"github.com/meinhoongagan/hospital-booking/store"
	"github.com/meinhoongagan/hospital-booking/utils"
)

const testSecret = "test-secret"

type testEnv struct {
	app   *fiber.App
	store *store.Memory
	queue *notify.LocalQueue
}

type fakeUploader struct{ got []byte }

func (f *fakeUploader) UploadImage(ctx context.Context, r io.Reader, publicID string) (string, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	f.got = b
	return "https://cdn.example.com/" + publicID + ".png", nil
}

func newEnv(t *testing.T, limiter *middleware.RateLimiter) *testEnv {
	t.Helper()
	return newEnvWith(t, limiter, nil)
}

func newEnvWith(t *testing.T, limiter *middleware.RateLimiter, uploader services.ImageUploader) *testEnv {
	t.Helper()
	mem := store.NewMemory()
	q := notify.NewLocalQueue(100)
	app := NewApp(Deps{
		Appointments: services.NewAppointmentService(mem, q),
		Users:        services.NewUserService(mem, testSecret, time.Hour, uploader),
		Health:       mem,
		Limiter:      limiter,
		JWTSecret:    testSecret,
		Quiet:        true,
	})
	return &testEnv{app: app, store: mem, queue: q}
}

// seedUser stores an account directly and returns a signed token for it.
func (e *testEnv) seedUser(t *testing.T, role models.Role, name, email string, active bool) (*models.User, string) {
	t.Helper()
	hash, err := auth.HashPassword("secret123")
	if err != nil {
		t.Fatal(err)
	}
	u := &models.User{
		ID:         uuid.NewString(),
		Name:       name,
		Email:      email,
		Password:   hash,
		Role:       role,
		Department: "General Medicine",
		Available:  true,
		IsActive:   active,
	}
	if err := e.store.CreateUser(context.Background(), u); err != nil {
		t.Fatal(err)
	}
	token, err := auth.MakeToken(u, testSecret, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	return u, token
}

func (e *testEnv) do(t *testing.T, method, path, token string, body interface{}) (int, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := e.app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	out := map[string]interface{}{}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("%s %s: decode body: %v", method, path, err)
	}
	return resp.StatusCode, out
}

func nextWeek() string {
	return utils.Today().AddDate(0, 0, 7).Format(utils.DateLayout)
}

func TestHealth(t *testing.T) {
	e := newEnv(t, nil)
	status, body := e.do(t, http.MethodGet, "/api/health", "", nil)
	if status != fiber.StatusOK || body["status"] != "OK" {
		t.Fatalf("health: %d %v", status, body)
	}
}

func TestUnknownRoute(t *testing.T) {
	e := newEnv(t, nil)
	status, body := e.do(t, http.MethodGet, "/api/nothing-here", "", nil)
	if status != fiber.StatusNotFound || body["success"] != false {
		t.Fatalf("got %d %v", status, body)
	}
}

func TestRegisterAndLogin(t *testing.T) {
	e := newEnv(t, nil)

	status, body := e.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": "Jane Patient", "email": "Jane@Example.com", "password": "secret123",
	})
	if status != fiber.StatusCreated || body["token"] == "" {
		t.Fatalf("register: %d %v", status, body)
	}
	user := body["user"].(map[string]interface{})
	if user["role"] != "patient" || user["email"] != "jane@example.com" {
		t.Errorf("registered user = %v", user)
	}
	if _, ok := user["password"]; ok {
		t.Error("password hash leaked in response")
	}

	status, body = e.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": "Jane Again", "email": "jane@example.com", "password": "secret123",
	})
	if status != fiber.StatusBadRequest {
		t.Errorf("duplicate register: %d %v", status, body)
	}

	tests := []struct {
		name     string
		body     map[string]string
		status   int
		wantBody string
	}{
		{"ok", map[string]string{"email": "jane@example.com", "password": "secret123"}, fiber.StatusOK, ""},
		{"wrong password", map[string]string{"email": "jane@example.com", "password": "nope"}, fiber.StatusUnauthorized, "Invalid credentials"},
		{"unknown email", map[string]string{"email": "who@example.com", "password": "secret123"}, fiber.StatusUnauthorized, "Invalid credentials"},
		{"bad email", map[string]string{"email": "not-an-email", "password": "secret123"}, fiber.StatusBadRequest, "Please provide a valid email"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := e.do(t, http.MethodPost, "/api/auth/login", "", tt.body)
			if status != tt.status {
				t.Fatalf("status = %d, want %d (%v)", status, tt.status, body)
			}
			if tt.wantBody != "" && body["message"] != tt.wantBody {
				t.Errorf("message = %v, want %q", body["message"], tt.wantBody)
			}
			if tt.status == fiber.StatusOK {
				token, _ := body["token"].(string)
				status, me := e.do(t, http.MethodGet, "/api/auth/me", token, nil)
				if status != fiber.StatusOK || me["user"].(map[string]interface{})["name"] != "Jane Patient" {
					t.Errorf("me: %d %v", status, me)
				}
			}
		})
	}
}

func TestAuthRequired(t *testing.T) {
	e := newEnv(t, nil)
	_, inactive := e.seedUser(t, models.RolePatient, "Gone", "gone@example.com", false)
	active, _ := e.seedUser(t, models.RoleAdmin, "Root", "root@example.com", true)

	claims := auth.Claims{UserID: active.ID, Role: active.Role, Email: active.Email}
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatal(err)
	}
	foreign, err := auth.MakeToken(active, "not-"+testSecret, time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		token string
		msg   string
	}{
		{"missing token", "", "No token, authorization denied"},
		{"garbage token", "abc.def.ghi", "Token is not valid"},
		{"unsigned token", unsigned, "Token is not valid"},
		{"foreign secret", foreign, "Token is not valid"},
		{"deactivated account", inactive, "Account is deactivated"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := e.do(t, http.MethodGet, "/api/appointments", tt.token, nil)
			if status != fiber.StatusUnauthorized || body["message"] != tt.msg {
				t.Errorf("got %d %v, want 401 %q", status, body, tt.msg)
			}
		})
	}
}

func TestAppointmentFlow(t *testing.T) {
	e := newEnv(t, nil)
	_, patient := e.seedUser(t, models.RolePatient, "Pat One", "p1@example.com", true)
	_, other := e.seedUser(t, models.RolePatient, "Pat Two", "p2@example.com", true)
	doctor, doctorToken := e.seedUser(t, models.RoleDoctor, "Dr. Sarah Johnson", "sarah@hospital.com", true)
	_, adminToken := e.seedUser(t, models.RoleAdmin, "Admin", "admin@hospital.com", true)
	date := nextWeek()

	booking := map[string]string{"doctorId": doctor.ID, "date": date, "time": "09:00", "symptoms": "chest pain"}
	status, body := e.do(t, http.MethodPost, "/api/appointments", patient, booking)
	if status != fiber.StatusCreated {
		t.Fatalf("book: %d %v", status, body)
	}
	appt := body["appointment"].(map[string]interface{})
	id := appt["id"].(string)
	if appt["status"] != "scheduled" || appt["department"] != "General Medicine" {
		t.Errorf("booked appointment = %v", appt)
	}

	status, body = e.do(t, http.MethodPost, "/api/appointments", other, booking)
	if status != fiber.StatusBadRequest || body["message"] != "This time slot is already booked" {
		t.Fatalf("double booking: %d %v", status, body)
	}

	status, _ = e.do(t, http.MethodPost, "/api/appointments", doctorToken, booking)
	if status != fiber.StatusForbidden {
		t.Errorf("doctor booking: %d, want 403", status)
	}

	status, body = e.do(t, http.MethodPost, "/api/appointments", patient, map[string]string{"date": date, "time": "10:00"})
	if status != fiber.StatusBadRequest || body["message"] != "doctorId is required" {
		t.Errorf("missing doctor: %d %v", status, body)
	}

	status, body = e.do(t, http.MethodGet, "/api/appointments/"+id, other, nil)
	if status != fiber.StatusNotFound || body["message"] != "Appointment not found" {
		t.Errorf("foreign get: %d %v", status, body)
	}
	status, _ = e.do(t, http.MethodDelete, "/api/appointments/"+id, other, nil)
	if status != fiber.StatusForbidden {
		t.Errorf("foreign cancel: %d, want 403", status)
	}

	status, body = e.do(t, http.MethodGet, "/api/appointments", doctorToken, nil)
	if status != fiber.StatusOK || body["count"] != float64(1) {
		t.Errorf("doctor list: %d %v", status, body)
	}
	status, body = e.do(t, http.MethodGet, "/api/appointments", other, nil)
	if status != fiber.StatusOK || body["count"] != float64(0) {
		t.Errorf("other patient list: %d %v", status, body)
	}

	status, body = e.do(t, http.MethodPut, "/api/appointments/"+id+"/status", patient, map[string]string{"status": "completed"})
	if status != fiber.StatusForbidden {
		t.Errorf("patient status change: %d %v", status, body)
	}
	status, body = e.do(t, http.MethodPut, "/api/appointments/"+id+"/status", doctorToken, map[string]string{"status": "completed", "notes": "all good"})
	if status != fiber.StatusOK {
		t.Fatalf("doctor status change: %d %v", status, body)
	}
	status, body = e.do(t, http.MethodPut, "/api/appointments/"+id+"/status", doctorToken, map[string]string{"status": "scheduled"})
	if status != fiber.StatusBadRequest {
		t.Errorf("terminal transition: %d %v", status, body)
	}

	status, body = e.do(t, http.MethodGet, "/api/appointments/stats/overview", adminToken, nil)
	if status != fiber.StatusOK {
		t.Fatalf("stats: %d %v", status, body)
	}
	stats := body["stats"].(map[string]interface{})
	if stats["total"] != float64(1) || stats["byStatus"].(map[string]interface{})["completed"] != float64(1) {
		t.Errorf("stats = %v", stats)
	}
	status, _ = e.do(t, http.MethodGet, "/api/appointments/stats/overview", patient, nil)
	if status != fiber.StatusForbidden {
		t.Errorf("patient stats: %d, want 403", status)
	}

	// booking confirmation, admin alert, status update
	if n := drain(e.queue); n != 3 {
		t.Errorf("queued %d notifications, want 3", n)
	}
}

func TestCancelFreesSlot(t *testing.T) {
	e := newEnv(t, nil)
	_, patient := e.seedUser(t, models.RolePatient, "Pat One", "p1@example.com", true)
	_, other := e.seedUser(t, models.RolePatient, "Pat Two", "p2@example.com", true)
	doctor, _ := e.seedUser(t, models.RoleDoctor, "Dr. Chen", "chen@hospital.com", true)
	booking := map[string]string{"doctorId": doctor.ID, "date": nextWeek(), "time": "14:00"}

	status, body := e.do(t, http.MethodPost, "/api/appointments", patient, booking)
	if status != fiber.StatusCreated {
		t.Fatalf("book: %d %v", status, body)
	}
	id := body["appointment"].(map[string]interface{})["id"].(string)

	status, body = e.do(t, http.MethodDelete, "/api/appointments/"+id, patient, nil)
	if status != fiber.StatusOK {
		t.Fatalf("cancel: %d %v", status, body)
	}
	status, body = e.do(t, http.MethodPost, "/api/appointments", other, booking)
	if status != fiber.StatusCreated {
		t.Errorf("rebook after cancel: %d %v", status, body)
	}
}

func TestUserAdministration(t *testing.T) {
	e := newEnv(t, nil)
	_, adminToken := e.seedUser(t, models.RoleAdmin, "Admin", "admin@hospital.com", true)
	p, patient := e.seedUser(t, models.RolePatient, "Pat One", "p1@example.com", true)
	e.seedUser(t, models.RoleDoctor, "Dr. Away", "away@hospital.com", false)

	status, body := e.do(t, http.MethodPost, "/api/users", adminToken, map[string]interface{}{
		"name": "Dr. Emily Davis", "email": "emily@hospital.com", "password": "doctor123",
		"role": "doctor", "specialty": "Pediatrics", "department": "Child Care",
	})
	if status != fiber.StatusCreated {
		t.Fatalf("create doctor: %d %v", status, body)
	}

	status, body = e.do(t, http.MethodGet, "/api/users/doctors", patient, nil)
	doctors, _ := body["doctors"].([]interface{})
	if status != fiber.StatusOK || len(doctors) != 1 {
		t.Errorf("doctors: %d %v", status, body)
	}

	status, body = e.do(t, http.MethodGet, "/api/users?page=1&limit=2", adminToken, nil)
	if status != fiber.StatusOK {
		t.Fatalf("list users: %d %v", status, body)
	}
	pg := body["pagination"].(map[string]interface{})
	if pg["total"] != float64(4) || pg["pages"] != float64(2) || len(body["users"].([]interface{})) != 2 {
		t.Errorf("pagination = %v", pg)
	}

	status, _ = e.do(t, http.MethodGet, "/api/users", patient, nil)
	if status != fiber.StatusForbidden {
		t.Errorf("patient list users: %d, want 403", status)
	}

	status, body = e.do(t, http.MethodGet, "/api/users/stats/overview", adminToken, nil)
	if status != fiber.StatusOK || body["stats"].(map[string]interface{})["totalDoctors"] != float64(1) {
		t.Errorf("user stats: %d %v", status, body)
	}

	status, body = e.do(t, http.MethodPut, "/api/users/"+p.ID, patient, map[string]string{"phone": "555-0100"})
	if status != fiber.StatusOK || body["user"].(map[string]interface{})["phone"] != "555-0100" {
		t.Errorf("self update: %d %v", status, body)
	}

	status, _ = e.do(t, http.MethodDelete, "/api/users/"+p.ID, adminToken, nil)
	if status != fiber.StatusOK {
		t.Fatalf("deactivate: %d", status)
	}
	status, body = e.do(t, http.MethodGet, "/api/auth/me", patient, nil)
	if status != fiber.StatusUnauthorized || body["message"] != "Account is deactivated" {
		t.Errorf("deactivated me: %d %v", status, body)
	}
	status, _ = e.do(t, http.MethodPost, "/api/users/"+p.ID+"/activate", adminToken, nil)
	if status != fiber.StatusOK {
		t.Errorf("activate: %d", status)
	}
}

func TestLoginRateLimited(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	e := newEnv(t, middleware.NewRateLimiter(ctx, 0.001, 2))

	creds := map[string]string{"email": "who@example.com", "password": "secret123"}
	for i := 0; i < 2; i++ {
		if status, _ := e.do(t, http.MethodPost, "/api/auth/login", "", creds); status != fiber.StatusUnauthorized {
			t.Fatalf("attempt %d: status %d", i, status)
		}
	}
	status, body := e.do(t, http.MethodPost, "/api/auth/login", "", creds)
	if status != fiber.StatusTooManyRequests {
		t.Errorf("third attempt: %d %v", status, body)
	}
}

func TestUploadDoctorImage(t *testing.T) {
	up := &fakeUploader{}
	e := newEnvWith(t, nil, up)
	doctor, doctorToken := e.seedUser(t, models.RoleDoctor, "Dr. Chen", "chen@hospital.com", true)
	_, patient := e.seedUser(t, models.RolePatient, "Pat One", "p1@example.com", true)

	upload := func(token, contentType string) (int, map[string]interface{}) {
		var buf bytes.Buffer
		w := multipart.NewWriter(&buf)
		h := textproto.MIMEHeader{}
		h.Set("Content-Disposition", `form-data; name="image"; filename="me.png"`)
		h.Set("Content-Type", contentType)
		part, err := w.CreatePart(h)
		if err != nil {
			t.Fatal(err)
		}
		part.Write([]byte("png-bytes"))
		w.Close()

		req := httptest.NewRequest(http.MethodPut, "/api/users/"+doctor.ID+"/image", &buf)
		req.Header.Set("Content-Type", w.FormDataContentType())
		req.Header.Set("Authorization", "Bearer "+token)
		resp, err := e.app.Test(req, -1)
		if err != nil {
			t.Fatal(err)
		}
		defer resp.Body.Close()
		out := map[string]interface{}{}
		json.NewDecoder(resp.Body).Decode(&out)
		return resp.StatusCode, out
	}

	status, body := upload(doctorToken, "image/png")
	if status != fiber.StatusOK {
		t.Fatalf("upload: %d %v", status, body)
	}
	if img := body["user"].(map[string]interface{})["image"]; img != "https://cdn.example.com/doctor_"+doctor.ID+".png" {
		t.Errorf("image = %v", img)
	}
	if string(up.got) != "png-bytes" {
		t.Errorf("uploaded %q", up.got)
	}

	if status, _ := upload(doctorToken, "text/plain"); status != fiber.StatusBadRequest {
		t.Errorf("non-image upload: %d, want 400", status)
	}
	if status, _ := upload(patient, "image/png"); status != fiber.StatusForbidden {
		t.Errorf("patient upload: %d, want 403", status)
	}
}

func drain(q *notify.LocalQueue) int {
	n := 0
	for {
		e, _ := q.Dequeue(context.Background(), 10*time.Millisecond)
		if e == nil {
			return n
		}
		n++
	}
}
