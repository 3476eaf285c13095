package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/edulane/edulane/internal/api"
	"github.com/edulane/edulane/internal/attempt"
	"github.com/edulane/edulane/internal/catalog"
	"github.com/edulane/edulane/internal/enrollment"
	"github.com/edulane/edulane/internal/event"
	"github.com/edulane/edulane/internal/grade"
	"github.com/edulane/edulane/internal/progress"
	"github.com/edulane/edulane/internal/submission"
	"github.com/edulane/edulane/internal/telemetry"
)

type Config struct {
	HTTP struct {
		Port int32
	}

	Redis struct {
		Pubsub struct {
			Addrs  []string
			Pass   string
			Prefix string
		}
	}

	Postgres struct {
		LMS struct {
			Addr string
			User string
			Pass string
			Name string
		}
	}
}

type Server struct {
	c Config

	eb *event.Bus

	infra struct {
		redis struct {
			pubsub redis.UniversalClient
		}

		postgres struct {
			lms *pgxpool.Pool
		}
	}

	service struct {
		catalog     *catalog.Service
		ledger      *attempt.Service
		enrollments *enrollment.Service
		grades      *grade.Service
		progress    *progress.Service
		submissions *submission.Service
	}

	http *http.Server
}

func Init(c Config) (*Server, error) {
	s := &Server{c: c}

	s.eb = event.NewBus()

	if err := s.initInfra(); err != nil {
		return nil, fmt.Errorf("server: init infra: %w", err)
	}

	s.initService()
	s.initAPI()
	return s, nil
}

func (s *Server) initInfra() error {
	if err := s.initRedis(); err != nil {
		return fmt.Errorf("redis: %w", err)
	}

	if err := s.initPostgres(); err != nil {
		return fmt.Errorf("postgres: %w", err)
	}

	return nil
}

func (s *Server) initRedis() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	r := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:    s.c.Redis.Pubsub.Addrs,
		Password: s.c.Redis.Pubsub.Pass,
	})

	if err := telemetry.MonitorRedis(r); err != nil {
		return err
	}

	if err := r.Ping(ctx).Err(); err != nil {
		return err
	}

	s.infra.redis.pubsub = r
	return nil
}

func (s *Server) initPostgres() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	c := s.c.Postgres.LMS
	cc, err := pgxpool.ParseConfig(fmt.Sprintf("postgres://%s:%s@%s/%s", c.User, c.Pass, c.Addr, c.Name))
	if err != nil {
		return err
	}

	db, err := pgxpool.NewWithConfig(ctx, cc)
	if err != nil {
		return err
	}

	if err := db.Ping(ctx); err != nil {
		return err
	}

	s.infra.postgres.lms = db
	return nil
}

func (s *Server) initService() {
	db := s.infra.postgres.lms

	s.service.catalog = catalog.NewService(catalog.Config{
		Store: catalog.NewSQLStore(db),
	})

	s.service.ledger = attempt.NewService(attempt.Config{
		Store: attempt.NewSQLStore(db),
	})

	s.service.enrollments = enrollment.NewService(enrollment.Config{
		Store: enrollment.NewSQLStore(db),
	})

	s.service.grades = grade.NewService(grade.Config{
		Catalog: s.service.catalog,
		Ledger:  s.service.ledger,
	})

	s.service.progress = progress.NewService(progress.Config{
		Catalog:     s.service.catalog,
		Ledger:      s.service.ledger,
		Enrollments: s.service.enrollments,
		EventBus:    s.eb,
	})

	s.service.submissions = submission.NewService(submission.Config{
		Catalog:  s.service.catalog,
		Ledger:   s.service.ledger,
		Grades:   s.service.grades,
		Progress: s.service.progress,
		EventBus: s.eb,
	})
}

func (s *Server) initAPI() {
	e := gin.New()
	e.GET("/metrics", gin.WrapH(promhttp.Handler()))
	pprof.Register(e, "/debug/pprof")
	e.Use(gin.Recovery())

	api.New(api.Config{
		Router:       e,
		EventBus:     s.eb,
		Catalog:      s.service.catalog,
		Enrollments:  s.service.enrollments,
		Grades:       s.service.grades,
		Progress:     s.service.progress,
		Submissions:  s.service.submissions,
		Redis:        s.infra.redis.pubsub,
		PubsubPrefix: s.c.Redis.Pubsub.Prefix,
	})

	s.http = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.c.HTTP.Port),
		Handler:           e,
		ReadHeaderTimeout: 60 * time.Second,
	}
}

func (s *Server) Start() {
	ctx := context.TODO()

	var eg errgroup.Group
	eg.Go(func() error {
		slog.InfoContext(ctx, fmt.Sprintf("server: HTTP listening on port %d", s.c.HTTP.Port))
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if err := eg.Wait(); err != nil {
		slog.ErrorContext(ctx, "server: shutdown with error", "error", err)
	}
}

func (s *Server) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.http.Shutdown(ctx); err != nil {
		slog.ErrorContext(ctx, "server: shutdown HTTP failed", "error", err)
	}

	s.eb.Stop()
	s.infra.postgres.lms.Close()

	slog.InfoContext(ctx, "server: shutdown completed")
}
