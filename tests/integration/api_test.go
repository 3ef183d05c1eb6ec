package integration

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gavv/httpexpect/v2"
	"github.com/go-chi/httplog/v2"
	"github.com/golang-migrate/migrate/v4"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	api "tinylink/internal/api/http"
	"tinylink/internal/cache"
	"tinylink/internal/config"
	"tinylink/internal/database"
	"tinylink/internal/database/postgres"
	"tinylink/internal/service"
	"tinylink/tests"

	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
)

const testBaseURL = "http://localhost:8080"

type APITestSuite struct {
	suite.Suite
	pgCont   testcontainers.Container
	cfg      config.Postgres
	db       *sqlx.DB
	linkRepo *postgres.LinkRepository
	server   *httptest.Server
	e        *httpexpect.Expect
}

func (suite *APITestSuite) SetupSuite() {
	ctx := context.Background()

	pgUser := "test"
	pgPassword := "test"
	pgDB := "tinylink"

	var err error
	suite.pgCont, err = testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image: "postgres:16-alpine",
			Env: map[string]string{
				"POSTGRES_USER":     pgUser,
				"POSTGRES_PASSWORD": pgPassword,
				"POSTGRES_DB":       pgDB,
			},
			ExposedPorts: []string{"5432/tcp"},
			WaitingFor:   wait.ForListeningPort("5432/tcp"),
		},
		Started: true,
	})
	if err != nil {
		suite.T().Fatalf("Failed to start postgres container: %v", err)
	}
	suite.T().Cleanup(func() {
		if err := suite.pgCont.Terminate(ctx); err != nil {
			suite.T().Fatalf("Failed to terminate postgres container: %v", err)
		}
	})

	pgHost, err := suite.pgCont.Host(ctx)
	if err != nil {
		suite.T().Fatalf("Failed to get postgres container host: %v", err)
	}

	pgPort, err := suite.pgCont.MappedPort(ctx, "5432")
	if err != nil {
		suite.T().Fatalf("Failed to get postgres container port: %v", err)
	}

	suite.cfg = config.Postgres{
		User:     pgUser,
		Password: pgPassword,
		Host:     pgHost,
		Port:     pgPort.Int(),
		DB:       pgDB,
		SSLMode:  "disable",
	}

	suite.db, err = sqlx.Connect("pgx", suite.cfg.DSN())
	if err != nil {
		suite.T().Fatalf("Failed to connect to database: %v", err)
	}
	suite.T().Cleanup(func() {
		if err := suite.db.Close(); err != nil {
			suite.T().Fatalf("Failed to close database: %v", err)
		}
	})

	root, err := tests.FindProjectRoot()
	if err != nil {
		suite.T().Fatalf("Failed to get project root: %v", err)
	}

	migrationsPath := filepath.Join("file://"+root, "/migrations")

	m, err := migrate.New(migrationsPath, suite.cfg.DSN())
	if err != nil {
		suite.T().Fatalf("Failed to initialize migrations: %v", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		suite.T().Fatalf("Failed to run migrations: %v", err)
	}
	suite.T().Cleanup(func() {
		if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			suite.T().Fatalf("Failed to rollback migrations: %v", err)
		}
	})

	suite.linkRepo = postgres.NewLinkRepository(suite.db)
	clickRepo := postgres.NewClickRepository(suite.db)
	userRepo := postgres.NewUserRepository(suite.db)

	svcLogger := slog.New(slog.NewTextHandler(io.Discard, nil))
	linkSvc := service.NewLinkService(suite.linkRepo, clickRepo, userRepo,
		(*cache.LinkCache)(nil), svcLogger, testBaseURL, 6)
	authSvc := service.NewAuthService(userRepo, "test-secret", time.Hour)
	qrSvc := service.NewQRCodeService(nil, linkSvc)

	logger := httplog.NewLogger("", httplog.Options{Writer: io.Discard})
	router := api.NewRouter(logger, linkSvc, authSvc, qrSvc,
		config.RateLimit{RPS: 1000, Burst: 1000, RedirectRPS: 1000, RedirectBurst: 1000})
	suite.server = httptest.NewServer(router)
	suite.T().Cleanup(suite.server.Close)

	suite.e = httpexpect.WithConfig(httpexpect.Config{
		TestName: suite.T().Name(),
		BaseURL:  suite.server.URL,
		Reporter: httpexpect.NewAssertReporter(suite.T()),
		Client: &http.Client{
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	})
}

func (suite *APITestSuite) TearDownSubTest() {
	_, err := suite.db.Exec(`TRUNCATE TABLE users, links, clicks RESTART IDENTITY CASCADE`)
	if err != nil {
		suite.T().Fatalf("Failed to clean tables: %v", err)
	}
}

func (suite *APITestSuite) registerAndLogin(email, username string) string {
	suite.e.POST("/api/v1/auth/register").
		WithJSON(map[string]string{
			"email":    email,
			"username": username,
			"password": "qwerty12345",
		}).
		Expect().
		Status(http.StatusCreated)

	return suite.e.POST("/api/v1/auth/login").
		WithJSON(map[string]string{
			"email":    email,
			"password": "qwerty12345",
		}).
		Expect().
		Status(http.StatusOK).
		JSON().Object().
		Value("data").Object().
		Value("token").String().Raw()
}

func (suite *APITestSuite) TestPing() {
	suite.Run("success", func() {
		suite.e.GET("/api/v1/ping").
			Expect().
			Status(http.StatusOK).
			Text().IsEqual("pong\n")
	})
}

func (suite *APITestSuite) TestShortenAndRedirect() {
	suite.Run("shortened link redirects and counts the hit", func() {
		resp := suite.e.POST("/api/v1/shorten").
			WithJSON(map[string]string{"url": "https://example.com"}).
			Expect().
			Status(http.StatusCreated).
			JSON().Object().
			Value("data").Object()

		shortCode := resp.Value("short_code").String().Raw()
		suite.Len(shortCode, 6)
		resp.HasValue("short_url", testBaseURL+"/r/"+shortCode)

		suite.e.GET("/r/"+shortCode).
			WithHeader("User-Agent", "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X)").
			Expect().
			Status(http.StatusFound).
			Header("Location").IsEqual("https://example.com")

		link, err := suite.linkRepo.GetByShortCode(context.Background(), shortCode)
		suite.Require().NoError(err)
		suite.Equal(int64(1), link.ClickCount)
		suite.NotNil(link.LastAccessed)

		var deviceType string
		err = suite.db.Get(&deviceType,
			`SELECT device_type FROM clicks WHERE link_id = $1`, link.ID)
		suite.Require().NoError(err)
		suite.Equal("mobile", deviceType)
	})

	suite.Run("unknown code renders the not found page", func() {
		suite.e.GET("/r/missing").
			Expect().
			Status(http.StatusNotFound).
			HasContentType("text/html").
			Body().Contains("404")
	})

	suite.Run("expired link is gone", func() {
		expiry := time.Now().Add(-time.Hour)
		_, err := suite.linkRepo.Create(context.Background(), database.CreateLinkParams{
			ShortCode:   "oldone",
			OriginalURL: "https://example.com",
			ExpiresAt:   &expiry,
		})
		suite.Require().NoError(err)

		suite.e.GET("/r/oldone").
			Expect().
			Status(http.StatusGone)
	})
}

func (suite *APITestSuite) TestCustomAlias() {
	suite.Run("alias conflict", func() {
		body := map[string]string{
			"url":          "https://example.com",
			"custom_alias": "my-link",
		}

		suite.e.POST("/api/v1/shorten").
			WithJSON(body).
			Expect().
			Status(http.StatusCreated)

		suite.e.POST("/api/v1/shorten").
			WithJSON(body).
			Expect().
			Status(http.StatusConflict)
	})

	suite.Run("reserved alias", func() {
		suite.e.POST("/api/v1/shorten").
			WithJSON(map[string]string{
				"url":          "https://example.com",
				"custom_alias": "swagger",
			}).
			Expect().
			Status(http.StatusBadRequest)
	})
}

func (suite *APITestSuite) TestAuthenticatedLinkManagement() {
	suite.Run("full lifecycle", func() {
		token := suite.registerAndLogin("john@example.com", "john")
		auth := "Bearer " + token

		shortCode := suite.e.POST("/api/v1/shorten").
			WithHeader("Authorization", auth).
			WithJSON(map[string]string{
				"url":   "https://example.com",
				"title": "Example",
			}).
			Expect().
			Status(http.StatusCreated).
			JSON().Object().
			Value("data").Object().
			Value("short_code").String().Raw()

		suite.e.GET("/api/v1/urls").
			WithHeader("Authorization", auth).
			Expect().
			Status(http.StatusOK).
			JSON().Object().
			Value("data").Array().Length().IsEqual(1)

		suite.e.GET("/api/v1/shorten/"+shortCode+"/stats").
			WithHeader("Authorization", auth).
			Expect().
			Status(http.StatusOK).
			JSON().Object().
			Value("data").Object().
			HasValue("click_count", 0).
			HasValue("last_accessed", nil)

		suite.e.PUT("/api/v1/shorten/"+shortCode).
			WithHeader("Authorization", auth).
			WithJSON(map[string]string{"url": "https://new-example.com"}).
			Expect().
			Status(http.StatusOK).
			JSON().Object().
			Value("data").Object().
			HasValue("url", "https://new-example.com")

		suite.e.GET("/api/v1/shorten/"+shortCode+"/analytics").
			WithHeader("Authorization", auth).
			Expect().
			Status(http.StatusOK).
			JSON().Object().
			Value("data").Object().
			HasValue("total_clicks", 0)

		suite.e.DELETE("/api/v1/shorten/"+shortCode).
			WithHeader("Authorization", auth).
			Expect().
			Status(http.StatusOK)

		suite.e.GET("/api/v1/urls").
			WithHeader("Authorization", auth).
			Expect().
			Status(http.StatusOK).
			JSON().Object().
			Value("data").Array().IsEmpty()
	})

	suite.Run("other users cannot touch the link", func() {
		ownerToken := suite.registerAndLogin("owner@example.com", "owner")

		shortCode := suite.e.POST("/api/v1/shorten").
			WithHeader("Authorization", "Bearer "+ownerToken).
			WithJSON(map[string]string{"url": "https://example.com"}).
			Expect().
			Status(http.StatusCreated).
			JSON().Object().
			Value("data").Object().
			Value("short_code").String().Raw()

		intruderToken := suite.registerAndLogin("intruder@example.com", "intruder")

		suite.e.DELETE("/api/v1/shorten/"+shortCode).
			WithHeader("Authorization", "Bearer "+intruderToken).
			Expect().
			Status(http.StatusNotFound)
	})

	suite.Run("duplicate registration conflicts", func() {
		suite.registerAndLogin("john@example.com", "john")

		suite.e.POST("/api/v1/auth/register").
			WithJSON(map[string]string{
				"email":    "john@example.com",
				"username": "john2",
				"password": "qwerty12345",
			}).
			Expect().
			Status(http.StatusConflict)
	})
}

func TestAPI(t *testing.T) {
	if testing.Short() {
		t.SkipNow()
	}

	suite.Run(t, new(APITestSuite))
}
