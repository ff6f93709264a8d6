package handler_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/praxis-api/internal/compliance"
	"github.com/noah-isme/praxis-api/internal/config"
	"github.com/noah-isme/praxis-api/internal/handler"
	"github.com/noah-isme/praxis-api/internal/middleware"
	"github.com/noah-isme/praxis-api/internal/models"
	"github.com/noah-isme/praxis-api/internal/repository"
	"github.com/noah-isme/praxis-api/internal/router"
	"github.com/noah-isme/praxis-api/internal/service"
)

type testActor struct {
	id   uint
	role string
}

var (
	anonymous  = testActor{}
	trainee    = testActor{id: 10, role: "trainee"}
	supervisor = testActor{id: 20, role: "supervisor"}
	admin      = testActor{id: 1, role: "admin"}
	stranger   = testActor{id: 11, role: "trainee"}
)

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Meta    json.RawMessage `json:"meta"`
	Details json.RawMessage `json:"details"`
}

type praxisEnv struct {
	app     *fiber.App
	db      *gorm.DB
	trainee models.Trainee
}

func setupPraxisApp(t *testing.T) *praxisEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&models.Trainee{},
		&models.SupervisorAssignment{},
		&models.Logbook{},
		&models.LogbookSection{},
		&models.PracticeEntry{},
		&models.ProfessionalDevelopmentEntry{},
		&models.SupervisionEntry{},
		&models.AuditEntry{},
		&models.Comment{},
	))

	record := models.Trainee{
		UserID:      trainee.id,
		Name:        "Ana Reyes",
		Email:       "ana@example.com",
		ProgramType: "five_plus_one",
		Track:       "general",
		StartDate:   time.Date(2024, time.July, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, db.Create(&record).Error)
	require.NoError(t, db.Create(&models.SupervisorAssignment{
		TraineeID:    record.ID,
		SupervisorID: supervisor.id,
		Role:         models.SupervisorRolePrincipal,
		Accepted:     true,
	}).Error)

	validate := validator.New()
	logger := zerolog.Nop()

	traineeRepo := repository.NewTraineeRepository(db)
	entryRepo := repository.NewEntryRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	catalog := compliance.DefaultCatalog()

	complianceService := service.NewComplianceService(traineeRepo, entryRepo, auditRepo, catalog, service.ComplianceServiceConfig{}, logger)
	events := service.NewNATSEventPublisher(nil, "praxis", logger)
	entryService := service.NewEntryService(traineeRepo, entryRepo, complianceService, events, validate, logger)
	logbookService := service.NewLogbookService(repository.NewLogbookRepository(db), entryRepo, traineeRepo, auditRepo,
		repository.NewCommentRepository(db), validate, service.LogbookServiceConfig{Compliance: complianceService, Events: events}, logger)

	app := fiber.New()
	router.Register(app, config.Config{AppName: "Praxis Test", AppEnv: "test"}, router.Dependencies{
		ComplianceHandler: handler.NewComplianceHandler(complianceService, validate, logger),
		EntryHandler:      handler.NewEntryHandler(entryService, logger),
		LogbookHandler:    handler.NewLogbookHandler(logbookService, logger),
		CatalogVersions:   []string{"five_plus_one/general@2024.1"},
		JWTMiddleware: func(c *fiber.Ctx) error {
			if raw := c.Get("X-Test-User"); raw != "" {
				id, err := strconv.ParseUint(raw, 10, 64)
				require.NoError(t, err)
				c.Locals(middleware.LocalUserID, uint(id))
			}
			if role := c.Get("X-Test-Role"); role != "" {
				c.Locals(middleware.LocalUserRole, role)
			}
			return c.Next()
		},
	})

	return &praxisEnv{app: app, db: db, trainee: record}
}

func (e *praxisEnv) call(t *testing.T, actor testActor, method, path string, body interface{}) (int, envelope) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if actor.id != 0 {
		req.Header.Set("X-Test-User", strconv.FormatUint(uint64(actor.id), 10))
	}
	if actor.role != "" {
		req.Header.Set("X-Test-Role", actor.role)
	}

	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)

	var out envelope
	decodeResponse(t, resp, &out)
	return resp.StatusCode, out
}

func decodeResponse(t *testing.T, resp *http.Response, target interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(target))
}

type logbookPayload struct {
	ID           uint     `json:"id"`
	Status       string   `json:"status"`
	TotalMinutes int64    `json:"total_minutes"`
	NextStatuses []string `json:"next_statuses"`
	Sections     []struct {
		Kind     string `json:"kind"`
		IsLocked bool   `json:"is_locked"`
	} `json:"sections"`
}

func (e *praxisEnv) recordWeek(t *testing.T, monday string) uint {
	t.Helper()

	status, body := e.call(t, trainee, http.MethodPost, "/api/v2/entries/practice", map[string]interface{}{
		"session_date": monday, "duration_minutes": 240, "activity_type": "client_contact",
	})
	require.Equal(t, fiber.StatusCreated, status, body.Message)
	var entry struct {
		Logbook logbookPayload `json:"logbook"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &entry))

	status, body = e.call(t, trainee, http.MethodPost, "/api/v2/entries/professional-development", map[string]interface{}{
		"activity_date": monday, "duration_minutes": 60, "title": "Ethics workshop",
	})
	require.Equal(t, fiber.StatusCreated, status, body.Message)

	status, body = e.call(t, trainee, http.MethodPost, "/api/v2/entries/supervision", map[string]interface{}{
		"session_date": monday, "duration_minutes": 60, "supervisor_id": supervisor.id, "mode": "individual",
	})
	require.Equal(t, fiber.StatusCreated, status, body.Message)

	return entry.Logbook.ID
}

func (e *praxisEnv) transition(t *testing.T, actor testActor, id uint, to string) (int, envelope) {
	t.Helper()
	return e.call(t, actor, http.MethodPost, fmt.Sprintf("/api/v2/logbooks/%d/transitions", id), map[string]string{"to": to})
}

func TestHealthReportsCatalogVersions(t *testing.T) {
	env := setupPraxisApp(t)

	status, body := env.call(t, anonymous, http.MethodGet, "/api/v1/health", nil)
	require.Equal(t, fiber.StatusOK, status)

	var health handler.HealthResponse
	require.NoError(t, json.Unmarshal(body.Data, &health))
	require.Equal(t, "ok", health.Status)
	require.Equal(t, "Praxis Test", health.Service)
	require.Equal(t, []string{"five_plus_one/general@2024.1"}, health.CatalogVersions)
}

func TestRoutesRequireAuthenticatedActor(t *testing.T) {
	env := setupPraxisApp(t)

	status, _ := env.call(t, anonymous, http.MethodGet, "/api/v2/compliance/catalog/five_plus_one", nil)
	require.Equal(t, fiber.StatusUnauthorized, status)

	status, _ = env.call(t, testActor{id: 5, role: "guest"}, http.MethodGet, "/api/v2/compliance/catalog/five_plus_one", nil)
	require.Equal(t, fiber.StatusForbidden, status)
}

func TestComplianceCatalogEndpoint(t *testing.T) {
	env := setupPraxisApp(t)

	status, body := env.call(t, supervisor, http.MethodGet, "/api/v2/compliance/catalog/registrar?track=masters", nil)
	require.Equal(t, fiber.StatusOK, status)

	var profile struct {
		Program      string `json:"program"`
		Track        string `json:"track"`
		Requirements []struct {
			ID        string `json:"id"`
			Threshold string `json:"threshold"`
		} `json:"requirements"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &profile))
	require.Equal(t, "registrar", profile.Program)
	require.Equal(t, "masters", profile.Track)
	require.Equal(t, "3000", profile.Requirements[0].Threshold)

	status, _ = env.call(t, supervisor, http.MethodGet, "/api/v2/compliance/catalog/residency", nil)
	require.Equal(t, fiber.StatusNotFound, status)
}

func TestComplianceReportEndpoints(t *testing.T) {
	env := setupPraxisApp(t)
	env.recordWeek(t, "2025-06-02")
	base := fmt.Sprintf("/api/v2/compliance/trainees/%d", env.trainee.ID)

	status, body := env.call(t, trainee, http.MethodGet, base+"/buckets?as_of=2025-06-30", nil)
	require.Equal(t, fiber.StatusOK, status)
	var buckets struct {
		AsOf  string            `json:"as_of"`
		Hours map[string]string `json:"hours"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &buckets))
	require.Equal(t, "2025-06-30", buckets.AsOf)
	require.Equal(t, "0", buckets.Hours["total_practice"])

	status, body = env.call(t, supervisor, http.MethodGet, base+"/buckets?as_of=2025-06-30&prior_hours=total_practice:40", nil)
	require.Equal(t, fiber.StatusOK, status)
	require.NoError(t, json.Unmarshal(body.Data, &buckets))
	require.Equal(t, "40", buckets.Hours["total_practice"])

	status, body = env.call(t, trainee, http.MethodGet, base+"/report?as_of=2025-06-30", nil)
	require.Equal(t, fiber.StatusOK, status)
	var report struct {
		IsValid bool `json:"is_valid"`
		Results []struct {
			RuleID   string `json:"rule_id"`
			Severity string `json:"severity"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &report))
	require.False(t, report.IsValid)
	ids := make([]string, 0, len(report.Results))
	for _, res := range report.Results {
		ids = append(ids, res.RuleID)
	}
	require.Contains(t, ids, "total_practice")
	require.Contains(t, ids, compliance.RuleSupervisionRecency)

	status, _ = env.call(t, trainee, http.MethodGet, base+"/report?as_of=30-06-2025", nil)
	require.Equal(t, fiber.StatusBadRequest, status)

	status, _ = env.call(t, trainee, http.MethodGet, base+"/buckets?prior_hours=total_practice", nil)
	require.Equal(t, fiber.StatusBadRequest, status)

	status, _ = env.call(t, stranger, http.MethodGet, base+"/report", nil)
	require.Equal(t, fiber.StatusForbidden, status)

	status, _ = env.call(t, admin, http.MethodGet, "/api/v2/compliance/trainees/999/report", nil)
	require.Equal(t, fiber.StatusNotFound, status)
}

func TestSimulatedCheckEndpoint(t *testing.T) {
	env := setupPraxisApp(t)
	require.NoError(t, env.db.Create(&models.PracticeEntry{
		TraineeID: env.trainee.ID, LogbookID: 1, SessionDate: time.Date(2025, time.March, 3, 0, 0, 0, 0, time.UTC),
		DurationMinutes: 55 * 60, ActivityType: "client_contact", Simulated: true,
	}).Error)
	path := fmt.Sprintf("/api/v2/compliance/trainees/%d/simulated-check", env.trainee.ID)

	status, body := env.call(t, trainee, http.MethodPost, path, map[string]int{"additional_minutes": 600})
	require.Equal(t, fiber.StatusOK, status)
	var check struct {
		Passed bool   `json:"passed"`
		Excess string `json:"excess"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &check))
	require.False(t, check.Passed)
	require.Equal(t, "5", check.Excess)

	status, _ = env.call(t, trainee, http.MethodPost, path, map[string]int{"additional_minutes": 0})
	require.Equal(t, fiber.StatusBadRequest, status)

	status, body = env.call(t, trainee, http.MethodPost, "/api/v2/entries/practice", map[string]interface{}{
		"session_date": "2025-06-02", "duration_minutes": 600, "activity_type": "client_contact", "simulated": true,
	})
	require.Equal(t, fiber.StatusUnprocessableEntity, status)
	require.Contains(t, string(body.Details), `"total_would_be":"65"`)
}

func TestEntryEndpointsValidateAndAuthorize(t *testing.T) {
	env := setupPraxisApp(t)

	status, body := env.call(t, trainee, http.MethodPost, "/api/v2/entries/practice", map[string]interface{}{
		"session_date": "2025-06-02", "duration_minutes": 2000, "activity_type": "client_contact",
	})
	require.Equal(t, fiber.StatusBadRequest, status)
	require.Contains(t, string(body.Details), "DurationMinutes")

	status, _ = env.call(t, supervisor, http.MethodPost, "/api/v2/entries/practice", map[string]interface{}{
		"session_date": "2025-06-02", "duration_minutes": 60, "activity_type": "client_contact",
	})
	require.Equal(t, fiber.StatusForbidden, status)

	status, _ = env.call(t, trainee, http.MethodPost, "/api/v2/entries/supervision", map[string]interface{}{
		"session_date": "2025-06-02", "duration_minutes": 60, "supervisor_id": 99, "mode": "individual",
	})
	require.Equal(t, fiber.StatusUnprocessableEntity, status)
}

func TestLogbookWorkflowEndpoints(t *testing.T) {
	env := setupPraxisApp(t)
	id := env.recordWeek(t, "2025-06-02")

	status, body := env.call(t, trainee, http.MethodGet, fmt.Sprintf("/api/v2/logbooks/%d", id), nil)
	require.Equal(t, fiber.StatusOK, status)
	var lb logbookPayload
	require.NoError(t, json.Unmarshal(body.Data, &lb))
	require.Equal(t, "draft", lb.Status)
	require.Equal(t, int64(360), lb.TotalMinutes)
	require.Equal(t, []string{"submitted"}, lb.NextStatuses)

	status, _ = env.transition(t, supervisor, id, "submitted")
	require.Equal(t, fiber.StatusForbidden, status)

	status, _ = env.transition(t, trainee, id, "approved")
	require.Equal(t, fiber.StatusConflict, status)

	status, _ = env.transition(t, trainee, id, "archived")
	require.Equal(t, fiber.StatusBadRequest, status)

	status, body = env.transition(t, trainee, id, "submitted")
	require.Equal(t, fiber.StatusOK, status)
	require.NoError(t, json.Unmarshal(body.Data, &lb))
	require.Equal(t, "submitted", lb.Status)
	for _, section := range lb.Sections {
		require.True(t, section.IsLocked, section.Kind)
	}

	status, _ = env.call(t, trainee, http.MethodPost, "/api/v2/entries/practice", map[string]interface{}{
		"session_date": "2025-06-03", "duration_minutes": 30, "activity_type": "client_contact",
	})
	require.Equal(t, fiber.StatusLocked, status)

	status, _ = env.transition(t, supervisor, id, "under_review")
	require.Equal(t, fiber.StatusOK, status)
	status, _ = env.transition(t, supervisor, id, "approved")
	require.Equal(t, fiber.StatusOK, status)

	status, body = env.call(t, stranger, http.MethodGet, fmt.Sprintf("/api/v2/logbooks/%d/audit", id), nil)
	require.Equal(t, fiber.StatusForbidden, status)

	status, body = env.call(t, admin, http.MethodGet, fmt.Sprintf("/api/v2/logbooks/%d/audit?page=1&page_size=2", id), nil)
	require.Equal(t, fiber.StatusOK, status)
	var items []struct {
		Action     string `json:"action"`
		FromStatus string `json:"from_status"`
		ToStatus   string `json:"to_status"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &items))
	require.Len(t, items, 2)
	require.Equal(t, "draft", items[0].FromStatus)
	var meta struct {
		Pagination struct {
			TotalItems int64 `json:"total_items"`
			TotalPages int   `json:"total_pages"`
		} `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(body.Meta, &meta))
	require.Equal(t, int64(3), meta.Pagination.TotalItems)
	require.Equal(t, 2, meta.Pagination.TotalPages)

	status, _ = env.transition(t, supervisor, id, "locked")
	require.Equal(t, fiber.StatusConflict, status)

	closePath := fmt.Sprintf("/api/v2/logbooks/%d/close", id)
	status, _ = env.call(t, trainee, http.MethodPost, closePath, map[string]interface{}{"note": "done"})
	require.Equal(t, fiber.StatusForbidden, status)

	status, body = env.call(t, supervisor, http.MethodPost, closePath, map[string]interface{}{"note": "week closed"})
	require.Equal(t, fiber.StatusOK, status)
	require.NoError(t, json.Unmarshal(body.Data, &lb))
	require.Equal(t, "locked", lb.Status)
	require.Empty(t, lb.NextStatuses)
	for _, section := range lb.Sections {
		require.True(t, section.IsLocked, section.Kind)
	}

	status, _ = env.call(t, supervisor, http.MethodPost, closePath, nil)
	require.Equal(t, fiber.StatusConflict, status)

	status, _ = env.call(t, trainee, http.MethodGet, "/api/v2/logbooks/999", nil)
	require.Equal(t, fiber.StatusNotFound, status)
}

func TestLogbookTransitionNotEligible(t *testing.T) {
	env := setupPraxisApp(t)

	status, body := env.call(t, trainee, http.MethodPost, "/api/v2/entries/practice", map[string]interface{}{
		"session_date": "2025-06-02", "duration_minutes": 60, "activity_type": "client_contact",
	})
	require.Equal(t, fiber.StatusCreated, status)
	var entry struct {
		Logbook logbookPayload `json:"logbook"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &entry))

	status, body = env.transition(t, trainee, entry.Logbook.ID, "submitted")
	require.Equal(t, fiber.StatusUnprocessableEntity, status)
	var details struct {
		To      string   `json:"to"`
		Reasons []string `json:"reasons"`
	}
	require.NoError(t, json.Unmarshal(body.Details, &details))
	require.Equal(t, "submitted", details.To)
	require.Len(t, details.Reasons, 2)
}

func TestLogbookCommentEndpoints(t *testing.T) {
	env := setupPraxisApp(t)
	id := env.recordWeek(t, "2025-06-02")
	path := fmt.Sprintf("/api/v2/logbooks/%d/comments", id)

	status, body := env.call(t, supervisor, http.MethodPost, path, map[string]interface{}{
		"scope": "supervision", "body": "<em>Good</em> reflection",
	})
	require.Equal(t, fiber.StatusCreated, status)
	var comment struct {
		ID   uint   `json:"id"`
		Body string `json:"body"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &comment))
	require.Equal(t, "Good reflection", comment.Body)

	status, body = env.call(t, trainee, http.MethodGet, path, nil)
	require.Equal(t, fiber.StatusOK, status)
	var comments []json.RawMessage
	require.NoError(t, json.Unmarshal(body.Data, &comments))
	require.Len(t, comments, 1)

	status, _ = env.call(t, supervisor, http.MethodPatch, fmt.Sprintf("%s/%d", path, comment.ID), map[string]string{"body": "edited"})
	require.Equal(t, fiber.StatusConflict, status)

	status, _ = env.call(t, supervisor, http.MethodPatch, fmt.Sprintf("%s/%d", path, 999), map[string]string{"body": "edited"})
	require.Equal(t, fiber.StatusNotFound, status)

	status, _ = env.call(t, trainee, http.MethodPost, path, map[string]interface{}{"scope": "nowhere", "body": "x"})
	require.Equal(t, fiber.StatusBadRequest, status)
}
