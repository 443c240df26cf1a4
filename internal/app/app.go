package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/niksmo/storefront/config"
	"github.com/niksmo/storefront/internal/adapter"
	"github.com/niksmo/storefront/internal/adapter/cache"
	"github.com/niksmo/storefront/internal/adapter/httphandler"
	"github.com/niksmo/storefront/internal/adapter/kafka"
	"github.com/niksmo/storefront/internal/adapter/mailer"
	"github.com/niksmo/storefront/internal/adapter/objectstore"
	"github.com/niksmo/storefront/internal/adapter/storage"
	"github.com/niksmo/storefront/internal/adapter/token"
	"github.com/niksmo/storefront/internal/core/port"
	"github.com/niksmo/storefront/internal/core/service"
	"github.com/niksmo/storefront/pkg/schema"
	"github.com/twmb/franz-go/pkg/sr"
)

type serdes struct {
	searchEvent schema.Serde
	orderEvent  schema.Serde
}

// events holds the broker backed components. All of them are nil when no
// seed brokers are configured.
type events struct {
	searchEmitter  *kafka.SearchEventsEmitter
	orderProducer  *kafka.OrderEventsProducer
	popularityProc *kafka.SearchPopularityProcessor
	popularityView *kafka.SearchPopularityView
	orderMailer    *kafka.OrderMailerConsumer
}

type outbound struct {
	sqldb    storage.SQLDB
	products storage.ProductsRepository
	users    storage.UsersRepository
	cache    *cache.ProductsCache
	images   *objectstore.Client
	tokens   *token.JWT
	mailer   port.Mailer
}

type coreService struct {
	catalog    *service.CatalogService
	auth       *service.AuthService
	orders     *service.OrderService
	background service.Background
}

type App struct {
	ctx        context.Context
	cfg        config.Config
	serdes     serdes
	outbound   outbound
	events     events
	service    coreService
	httpServer httphandler.HTTPServer
}

func New(ctx context.Context, cfg config.Config) *App {
	app := &App{ctx: ctx, cfg: cfg}

	app.initLogger()
	app.initOutboundAdapters()
	if cfg.Broker.Enabled() {
		app.initSerdes()
		app.initEvents()
	}
	app.initCoreService()
	app.initInboundAdapters()

	return app
}

func (app *App) initLogger() {
	opts := &slog.HandlerOptions{Level: app.cfg.LogLevel}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, opts))
	slog.SetDefault(logger)
}

func (app *App) initOutboundAdapters() {
	const op = "App.initOutboundAdapters"
	log := slog.With("op", op)

	ctx := app.ctx
	cfg := app.cfg

	sqldb, err := storage.NewSQLDB(ctx, cfg.SQLDB)
	if err != nil {
		app.fallDown(op, err)
	}
	app.outbound.sqldb = sqldb
	app.outbound.products = storage.NewProductsRepository(sqldb)
	app.outbound.users = storage.NewUsersRepository(sqldb)

	if cfg.Cache.RedisURL != "" {
		c, err := cache.NewProductsCache(ctx, cfg.Cache.RedisURL, cfg.Cache.TTL)
		if err != nil {
			app.fallDown(op, err)
		}
		app.outbound.cache = c
	} else {
		log.Info("products cache is disabled")
	}

	if cfg.ObjectStorage.Endpoint != "" {
		images, err := objectstore.NewClient(ctx, objectstore.Config{
			Endpoint:  cfg.ObjectStorage.Endpoint,
			AccessKey: cfg.ObjectStorage.AccessKey,
			SecretKey: cfg.ObjectStorage.SecretKey,
			Bucket:    cfg.ObjectStorage.Bucket,
			UseSSL:    cfg.ObjectStorage.UseSSL,
		})
		if err != nil {
			app.fallDown(op, err)
		}
		app.outbound.images = images
	} else {
		log.Info("image uploads are disabled")
	}

	tokens, err := token.NewJWT(cfg.Auth.TokenSecret, cfg.Auth.SessionTTL, cfg.Auth.VerifyTTL)
	if err != nil {
		app.fallDown(op, err)
	}
	app.outbound.tokens = tokens

	if cfg.Mailer.APIKey != "" {
		m, err := mailer.NewResendMailer(cfg.Mailer.APIURL, cfg.Mailer.APIKey, cfg.Mailer.From)
		if err != nil {
			app.fallDown(op, err)
		}
		app.outbound.mailer = m
	} else {
		log.Warn("mailer api key is not set, emails are logged only")
		app.outbound.mailer = mailer.LogMailer{}
	}
}

func (app *App) brokerSecurity() kafka.Security {
	const op = "App.brokerSecurity"

	b := app.cfg.Broker
	sec := kafka.Security{User: b.SASL.User, Pass: b.SASL.Pass}
	if b.TLS.Enabled() {
		tlsCfg, err := adapter.MakeTLSConfig(b.TLS.CAFile, b.TLS.CertFile, b.TLS.KeyFile)
		if err != nil {
			app.fallDown(op, err)
		}
		sec.TLS = tlsCfg
	}
	return sec
}

func (app *App) initSerdes() {
	const op = "App.initSerdes"

	ctx := app.ctx
	b := app.cfg.Broker

	srOpts := []sr.ClientOpt{sr.URLs(b.SchemaRegistryURLs...)}
	if b.TLS.Enabled() {
		srOpts = append(srOpts, sr.DialTLSConfig(app.brokerSecurity().TLS))
	}
	srClient, err := sr.NewClient(srOpts...)
	if err != nil {
		app.fallDown(op, err)
	}

	schemaCreater := schema.NewSchemaCreater(srClient)

	searchEventSerde, err := schema.NewSerdeSearchEventV1(
		ctx,
		schema.SubjectOpt(schema.ValueSubject(b.Topics.SearchEvents)),
		schema.SchemaIdentifierOpt(schemaCreater),
	)
	if err != nil {
		app.fallDown(op, err)
	}

	orderEventSerde, err := schema.NewSerdeOrderEventV1(
		ctx,
		schema.SubjectOpt(schema.ValueSubject(b.Topics.OrderEvents)),
		schema.SchemaIdentifierOpt(schemaCreater),
	)
	if err != nil {
		app.fallDown(op, err)
	}

	app.serdes.searchEvent = searchEventSerde
	app.serdes.orderEvent = orderEventSerde
}

func (app *App) initEvents() {
	const op = "App.initEvents"

	ctx := app.ctx
	b := app.cfg.Broker
	sec := app.brokerSecurity()

	// goka reads its sarama config from a global
	kafka.ApplySASLTLS(sec)

	searchEmitter, err := kafka.NewSearchEventsEmitter(
		b.SeedBrokers, b.Topics.SearchEvents, app.serdes.searchEvent,
	)
	if err != nil {
		app.fallDown(op, err)
	}

	orderProducer, err := kafka.NewOrderEventsProducer(
		kafka.ProducerClientOpt(ctx, b.SeedBrokers, b.Topics.OrderEvents, sec),
		kafka.ProducerEncoderOpt(app.serdes.orderEvent),
	)
	if err != nil {
		app.fallDown(op, err)
	}

	popularityProc, err := kafka.NewSearchPopularityProc(
		b.SeedBrokers, b.Topics.SearchEvents, b.Groups.SearchPopularity, app.serdes.searchEvent,
	)
	if err != nil {
		app.fallDown(op, err)
	}

	popularityView, err := kafka.NewSearchPopularityView(b.SeedBrokers, b.Groups.SearchPopularity)
	if err != nil {
		app.fallDown(op, err)
	}

	orderMailer, err := kafka.NewOrderMailerConsumer(
		kafka.ConsumerClientOpt(b.SeedBrokers, b.Topics.OrderEvents, b.Groups.OrderMailer, sec),
		kafka.ConsumerDecoderOpt(app.serdes.orderEvent),
		kafka.ConsumerNotifierOpt(app.outbound.mailer),
	)
	if err != nil {
		app.fallDown(op, err)
	}

	app.events = events{
		searchEmitter:  searchEmitter,
		orderProducer:  &orderProducer,
		popularityProc: popularityProc,
		popularityView: popularityView,
		orderMailer:    orderMailer,
	}
}

// initCoreService passes optional adapters only when they exist, so that
// a missing one is a nil interface rather than a typed nil pointer.
func (app *App) initCoreService() {
	const op = "App.initCoreService"

	cfg := app.cfg
	out := app.outbound
	ev := app.events

	catalogOpts := []service.CatalogOpt{
		service.CatalogPageSizeOpt(cfg.Catalog.PageSize, cfg.Catalog.MaxPageSize),
	}
	if out.cache != nil {
		catalogOpts = append(catalogOpts, service.CatalogCacheOpt(out.cache))
	}
	if out.images != nil {
		catalogOpts = append(catalogOpts, service.CatalogImagesOpt(out.images))
	}
	if ev.searchEmitter != nil {
		catalogOpts = append(catalogOpts,
			service.CatalogSearchEventsOpt(ev.searchEmitter),
			service.CatalogPopularityOpt(ev.popularityView),
		)
	}

	catalog, err := service.NewCatalogService(out.products, catalogOpts...)
	if err != nil {
		app.fallDown(op, err)
	}

	auth, err := service.NewAuthService(out.users, out.tokens, out.mailer, cfg.Auth.VerifyLinkBase)
	if err != nil {
		app.fallDown(op, err)
	}

	var orderOpts []service.OrderOpt
	if ev.orderProducer != nil {
		orderOpts = append(orderOpts, service.OrderEventsOpt(ev.orderProducer))
	}
	orders, err := service.NewOrderService(out.products, out.mailer, orderOpts...)
	if err != nil {
		app.fallDown(op, err)
	}

	var (
		popularityProc port.SearchPopularityProcessor
		popularityView port.SearchPopularityView
		orderMailer    port.OrderMailerConsumer
	)
	if ev.popularityProc != nil {
		popularityProc = ev.popularityProc
		popularityView = ev.popularityView
		orderMailer = ev.orderMailer
	}

	app.service = coreService{
		catalog:    catalog,
		auth:       auth,
		orders:     orders,
		background: service.NewBackground(popularityProc, popularityView, orderMailer),
	}
}

func (app *App) initInboundAdapters() {
	const op = "App.initInboundAdapters"

	handler, err := httphandler.NewRouter(httphandler.RouterConfig{
		Catalog:      app.service.catalog,
		Auth:         app.service.auth,
		Orders:       app.service.orders,
		ImageBaseURL: app.cfg.ObjectStorage.PublicBaseURL,
		RateLimiter:  httphandler.NewRateLimiter(app.cfg.RateLimit.RPS, app.cfg.RateLimit.Burst),
	})
	if err != nil {
		app.fallDown(op, err)
	}

	app.httpServer = httphandler.NewHTTPServer(app.cfg.HTTPServerAddr, handler)
}

// Run blocks until the background components are ready, then starts
// serving HTTP.
func (app *App) Run(stopFn context.CancelFunc) {
	app.service.background.Run(app.ctx, stopFn)
	go app.httpServer.Run(stopFn)

	slog.Info("application is running")
}

func (app *App) Close(ctx context.Context) {
	slog.Info("application is closing...")

	app.httpServer.Close(ctx)
	app.service.background.Close()

	if app.events.searchEmitter != nil {
		app.events.searchEmitter.Close()
		app.events.orderProducer.Close()
	}
	if app.outbound.cache != nil {
		app.outbound.cache.Close()
	}
	app.outbound.sqldb.Close()

	slog.Info("application is closed")
}

func (app *App) fallDown(op string, err error) {
	panic(fmt.Errorf("%s: %w", op, err))
}
