// Command server runs the ifc hub API. Grounded on the teacher's
// bootstrap.Init lifecycle (Lens/modules/jobs/pkg/bootstrap/bootstrap.go):
// init tracing, register a ctx.Done() cleanup goroutine, start the
// long-running workers, then serve.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"k8s.io/klog/v2"

	"github.com/ifcserve/hub/internal/authz"
	"github.com/ifcserve/hub/internal/blob"
	"github.com/ifcserve/hub/internal/catalog"
	"github.com/ifcserve/hub/internal/config"
	"github.com/ifcserve/hub/internal/correlation"
	"github.com/ifcserve/hub/internal/httpapi"
	"github.com/ifcserve/hub/internal/identity"
	"github.com/ifcserve/hub/internal/ifcengine"
	"github.com/ifcserve/hub/internal/jobqueue"
	"github.com/ifcserve/hub/internal/notify"
	"github.com/ifcserve/hub/internal/oauthserver"
	"github.com/ifcserve/hub/internal/pat"
	"github.com/ifcserve/hub/internal/ratelimit"
	"github.com/ifcserve/hub/internal/store"
	"github.com/ifcserve/hub/internal/store/memstore"
	"github.com/ifcserve/hub/internal/store/pgstore"
	"github.com/ifcserve/hub/internal/telemetry"
	"github.com/ifcserve/hub/internal/upload"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := telemetry.InitTracer(ctx, "ifc-hub", config.OTLPEndpoint()); err != nil {
		klog.ErrorS(err, "failed to init otel tracer, continuing without tracing")
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			klog.ErrorS(err, "failed to flush otel tracer")
		}
	}()

	db, err := openStore()
	if err != nil {
		klog.ErrorS(err, "failed to open store")
		os.Exit(1)
	}

	storage, err := openStorage(ctx)
	if err != nil {
		klog.ErrorS(err, "failed to open blob storage")
		os.Exit(1)
	}

	mailer := notify.NewMailerFromConfig()
	identitySvc := identity.NewService(db, mailer)
	gate := authz.NewGate(db, identitySvc)

	issuer, err := oauthserver.NewIssuerFromConfig()
	if err != nil {
		klog.ErrorS(err, "failed to build jwt issuer")
		os.Exit(1)
	}
	oauthSvc := oauthserver.NewService(db, issuer)
	patSvc := pat.NewService(db)
	uploadSvc := upload.NewService(db, storage)
	catalogSvc := catalog.NewService(db, storage)

	engine := buildIfcEngine()
	handlers := jobqueue.NewHandlers(db, storage, engine)
	queue := jobqueue.New(config.QueueCapacity())
	queue.Register(jobqueue.TypeIfcToWexBim, handlers.IfcToWexBim)
	queue.Register(jobqueue.TypeExtractProperties, handlers.ExtractProperties)
	queue.RegisterUnknownTypeHandler(handlers.FailUnknownJobType)
	queue.Start(ctx, config.WorkerCount())
	go func() {
		<-ctx.Done()
		queue.Stop()
	}()
	catalogSvc.SetQueue(queue)

	deps := &httpapi.Deps{
		Store:          db,
		Identity:       identitySvc,
		Gate:           gate,
		OAuth:          oauthSvc,
		Issuer:         issuer,
		PAT:            patSvc,
		Upload:         uploadSvc,
		Catalog:        catalogSvc,
		ReserveLimiter: ratelimit.NewLimiter("UploadReserve"),
		ContentLimiter: ratelimit.NewLimiter("UploadContent"),
		CommitLimiter:  ratelimit.NewLimiter("UploadCommit"),
		Checkers: map[string]correlation.Checker{
			"store": func(ctx context.Context) error {
				_, _, err := db.ListAudit(ctx, "healthcheck", "healthcheck", store.Filter{Page: 1, PageSize: 1})
				return err
			},
		},
	}

	router := httpapi.NewRouter(deps)
	srv := &http.Server{Addr: config.ServerAddr(), Handler: router}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			klog.ErrorS(err, "error during http server shutdown")
		}
	}()

	klog.InfoS("starting ifc hub", "addr", config.ServerAddr())
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		klog.ErrorS(err, "http server exited with error")
		os.Exit(1)
	}
}

func openStore() (store.Store, error) {
	if !config.IsDBEnabled() {
		klog.InfoS("database.dsn not set, using in-memory store")
		return memstore.New(), nil
	}
	return pgstore.Open(config.PostgresDSN())
}

func openStorage(ctx context.Context) (blob.Storage, error) {
	if config.StorageBucket() == "" {
		klog.InfoS("storage.bucket not set, using in-memory blob storage")
		return blob.NewMemStorage(), nil
	}
	return blob.NewS3Storage(ctx, blob.S3Config{
		Endpoint:        config.StorageEndpoint(),
		Region:          config.StorageRegion(),
		Bucket:          config.StorageBucket(),
		AccessKeyID:     config.StorageAccessKeyID(),
		SecretAccessKey: config.StorageSecretAccessKey(),
		UsePathStyle:    config.StorageUsePathStyle(),
	})
}

func buildIfcEngine() ifcengine.Engine {
	if endpoint := config.IfcEngineEndpoint(); endpoint != "" {
		return ifcengine.NewHTTPEngine(endpoint)
	}
	klog.InfoS("ifcengine.endpoint not set, using local stub engine")
	return ifcengine.StubEngine{}
}
