package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/auth-service/internal/observability"
	apperrors "github.com/spec-kit/auth-service/pkg/util"
)

func TestRejectedRequestsAreCountedWithFinalStatus(t *testing.T) {
	app := fiber.New()
	metrics := observability.NewMetrics()
	RegisterMiddlewares(app, zap.NewNop(), metrics, 0)

	app.Get("/denied", func(c *fiber.Ctx) error {
		return apperrors.NewUnauthorized("missing or invalid credentials")
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/denied", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
	if got := metrics.RequestCount("/denied", http.MethodGet, http.StatusUnauthorized); got != 1 {
		t.Errorf("expected 1 request counted as 401, got %d", got)
	}
	if got := metrics.RequestCount("/denied", http.MethodGet, http.StatusOK); got != 0 {
		t.Errorf("rejected request counted as 200 %d times", got)
	}
}

func TestPanicsAreTranslatedToInternalError(t *testing.T) {
	app := fiber.New()
	metrics := observability.NewMetrics()
	RegisterMiddlewares(app, zap.NewNop(), metrics, 0)

	app.Get("/boom", func(c *fiber.Ctx) error {
		panic("handler blew up")
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/boom", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", resp.StatusCode)
	}
}
