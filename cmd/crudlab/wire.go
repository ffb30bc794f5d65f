package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/go-redis/redis/v8"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/davicafu/crudlab/internal/config"
	sharedApp "github.com/davicafu/crudlab/internal/shared/application"
	sharedDomain "github.com/davicafu/crudlab/internal/shared/domain"
	sharedEvents "github.com/davicafu/crudlab/internal/shared/events"
	sharedCH "github.com/davicafu/crudlab/internal/shared/infra/analytics/clickhouse"
	infraEvents "github.com/davicafu/crudlab/internal/shared/infra/events"
	sharedBus "github.com/davicafu/crudlab/internal/shared/infra/platform/bus"
	sharedCache "github.com/davicafu/crudlab/internal/shared/infra/platform/cache"
	"github.com/davicafu/crudlab/internal/shared/infra/platform/db/memstore"
	"github.com/davicafu/crudlab/internal/shared/infra/platform/db/migrations"
	"github.com/davicafu/crudlab/internal/shared/infra/platform/db/mongostore"
	"github.com/davicafu/crudlab/internal/shared/infra/platform/db/sqlbuilder"
	"github.com/davicafu/crudlab/internal/shared/infra/platform/db/sqlstore"
	"github.com/davicafu/crudlab/internal/shared/infra/platform/metrics"
	"github.com/davicafu/crudlab/internal/shared/infra/relayer"
	sharedUtils "github.com/davicafu/crudlab/internal/shared/infra/utils"
	"github.com/davicafu/crudlab/internal/shared/query"
	"github.com/davicafu/crudlab/internal/shared/schema"
	taskApp "github.com/davicafu/crudlab/internal/task/application"
	taskDomain "github.com/davicafu/crudlab/internal/task/domain"
	taskEvents "github.com/davicafu/crudlab/internal/task/infra/inbound/events"
	taskHttp "github.com/davicafu/crudlab/internal/task/infra/inbound/http"
	taskCH "github.com/davicafu/crudlab/internal/task/infra/outbound/analytics/clickhouse"
	taskDB "github.com/davicafu/crudlab/internal/task/infra/outbound/db"
	userApp "github.com/davicafu/crudlab/internal/user/application"
	userDomain "github.com/davicafu/crudlab/internal/user/domain"
	userHttp "github.com/davicafu/crudlab/internal/user/infra/inbound/http"
	userCH "github.com/davicafu/crudlab/internal/user/infra/outbound/analytics/clickhouse"
	userDB "github.com/davicafu/crudlab/internal/user/infra/outbound/db"
)

const (
	busBuffer     = 64
	redisPrefix   = "crudlab:"
	shutdownGrace = 10 * time.Second
	pingAttempts  = 5
)

// storage agrupa los repositorios y el outbox del driver elegido.
type storage struct {
	users  sharedApp.Repository[userDomain.User]
	tasks  sharedApp.Repository[taskDomain.Task]
	outbox sharedDomain.OutboxRepository
	sqlDB  *sql.DB // nil en mongo y memoria
}

// replicas son las copias en ClickHouse; ambas nil si no hay CLICKHOUSE_ADDR.
type replicas struct {
	db    *sql.DB
	users *sharedCH.Finder[userDomain.User]
	tasks *sharedCH.Finder[taskDomain.Task]
}

// app es el grafo de dependencias de un proceso.
type app struct {
	cfg      *config.Config
	log      *zap.Logger
	schema   *schema.Registry
	store    storage
	replicas replicas
	cache    sharedCache.Cache
	metrics  *metrics.Metrics
	promReg  *prometheus.Registry
	users    *userApp.UserService
	tasks    *taskApp.TaskService
	events   sharedEvents.Registry
	closers  []func()
}

// Close libera los recursos en orden inverso de apertura.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func (a *app) onClose(fn func()) { a.closers = append(a.closers, fn) }

// ---------------- Schema ----------------

func buildSchema() (*schema.Registry, error) {
	b := schema.NewBuilder()
	userDomain.DeclareSchema(b)
	taskDomain.DeclareSchema(b)
	return b.Build()
}

// ---------------- Storage ----------------

func openStorage(ctx context.Context, a *app) error {
	cfg := a.cfg
	switch cfg.StoreDriver {
	case config.DriverMemory:
		db := memstore.NewDB()
		a.store = storage{
			users:  memstore.New(db, userDB.Binding(a.schema)),
			tasks:  memstore.New(db, taskDB.Binding(a.schema)),
			outbox: db,
		}

	case config.DriverSQLite, config.DriverPostgres:
		db, dialect, err := openSQL(ctx, cfg, true)
		if err != nil {
			return err
		}
		a.onClose(func() { _ = db.Close() })
		a.store = storage{
			users:  sqlstore.New(db, dialect, userDB.Binding(a.schema)),
			tasks:  sqlstore.New(db, dialect, taskDB.Binding(a.schema)),
			outbox: sqlstore.NewOutbox(db, dialect),
			sqlDB:  db,
		}

	case config.DriverMongo:
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			return fmt.Errorf("could not connect to mongoDB: %w", err)
		}
		a.onClose(func() { _ = client.Disconnect(context.Background()) })

		users, err := mongostore.New(ctx, client, cfg.MongoDB, userDB.Binding(a.schema), userDB.DocCodec())
		if err != nil {
			return err
		}
		tasks, err := mongostore.New(ctx, client, cfg.MongoDB, taskDB.Binding(a.schema), taskDB.DocCodec())
		if err != nil {
			return err
		}
		a.store = storage{users: users, tasks: tasks, outbox: mongostore.NewOutbox(client, cfg.MongoDB)}

	default:
		return fmt.Errorf("unsupported store driver %q", cfg.StoreDriver)
	}

	a.log.Info("Storage ready", zap.String("driver", cfg.StoreDriver))
	return nil
}

// openSQL abre la base relacional; con migrate la deja además en la última versión.
func openSQL(ctx context.Context, cfg *config.Config, migrate bool) (*sql.DB, sqlbuilder.Dialect, error) {
	driver, dsn := "sqlite", cfg.SQLitePath
	if cfg.StoreDriver == config.DriverPostgres {
		driver, dsn = "pgx", cfg.PostgresDSN
	}
	dialect, err := sqlbuilder.ByName(cfg.StoreDriver)
	if err != nil {
		return nil, dialect, err
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, dialect, fmt.Errorf("failed to open %s: %w", cfg.StoreDriver, err)
	}
	if driver == "sqlite" {
		// SQLite no admite escrituras concurrentes
		db.SetMaxOpenConns(1)
	}
	// el contenedor de la base puede tardar en aceptar conexiones
	if err := sharedUtils.Retry(ctx, pingAttempts, 500*time.Millisecond, db.PingContext); err != nil {
		db.Close()
		return nil, dialect, fmt.Errorf("failed to ping %s: %w", cfg.StoreDriver, err)
	}
	if !migrate {
		return db, dialect, nil
	}
	if err := migrations.Up(db, cfg.StoreDriver); err != nil {
		db.Close()
		return nil, dialect, err
	}
	return db, dialect, nil
}

// ---------------- Analytics ----------------

func openReplicas(ctx context.Context, a *app) error {
	if a.cfg.ClickHouseAddr == "" {
		return nil
	}
	db, err := sharedCH.Open(a.cfg.ClickHouseAddr, a.cfg.ClickHouseDB)
	if err != nil {
		return err
	}
	a.onClose(func() { _ = db.Close() })

	if err := sharedCH.EnsureTables(ctx, db, userCH.UsersDDL, taskCH.TasksDDL); err != nil {
		return err
	}
	a.replicas = replicas{
		db:    db,
		users: userCH.NewUserReplica(db, a.schema),
		tasks: taskCH.NewTaskReplica(db, a.schema),
	}
	a.log.Info("ClickHouse replica enabled", zap.String("addr", a.cfg.ClickHouseAddr))
	return nil
}

// syncReplicas copia users y tasks del almacenamiento principal a ClickHouse.
func (a *app) syncReplicas(ctx context.Context) error {
	if a.replicas.db == nil {
		return fmt.Errorf("analytics replica is not configured (CLICKHOUSE_ADDR)")
	}
	users, err := a.replicas.users.SyncFrom(ctx, a.store.users)
	if err != nil {
		return err
	}
	tasks, err := a.replicas.tasks.SyncFrom(ctx, a.store.tasks)
	if err != nil {
		return err
	}
	a.log.Info("Analytics replica synced", zap.Int("users", users), zap.Int("tasks", tasks))
	return nil
}

// startReplicaSync refresca la réplica cada AnalyticsSync hasta que se cancela ctx.
func (a *app) startReplicaSync(ctx context.Context) {
	if a.replicas.db == nil || a.cfg.AnalyticsSync <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(a.cfg.AnalyticsSync)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := a.syncReplicas(ctx); err != nil {
					a.log.Warn("Analytics replica sync failed", zap.Error(err))
				}
			}
		}
	}()
}

// ---------------- Cache ----------------

func openCache(ctx context.Context, a *app) {
	if a.cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: a.cfg.RedisAddr})
		err := rdb.Ping(ctx).Err()
		if err == nil {
			a.onClose(func() { _ = rdb.Close() })
			a.cache = sharedCache.NewRedisCache(rdb, redisPrefix, a.cfg.CacheTTL)
			a.log.Info("✅ Redis conectado, cache habilitado", zap.String("addr", a.cfg.RedisAddr))
			return
		}
		_ = rdb.Close()
		a.log.Warn("⚠️ Redis no disponible, cache en memoria", zap.Error(err))
	}

	mem := sharedCache.NewMemoryCache(a.cfg.CacheTTL, 3*a.cfg.CacheTTL)
	a.onClose(mem.Stop)
	a.cache = mem
}

// ---------------- Servicios ----------------

func buildServices(a *app) error {
	compiler := query.NewCompiler(a.schema, query.WithMaxPageSize(a.cfg.MaxPageSize))
	v := validator.New()
	registry := sharedApp.NewRegistry()
	userApp.Register(registry, v, nil)
	taskApp.Register(registry, v, nil)
	ttl := int(a.cfg.CacheTTL.Seconds())

	userDeps := sharedApp.Deps[userApp.UserRecord, userDomain.User]{
		Binding:  userDB.Binding(a.schema),
		Repo:     a.store.users,
		Mapper:   userApp.Mapper(),
		Compiler: compiler,
		Registry: registry,
		Cache:    a.cache,
		CacheTTL: ttl,
		Metrics:  a.metrics,
		Log:      a.log,
	}
	taskDeps := sharedApp.Deps[taskApp.TaskRecord, taskDomain.Task]{
		Binding:  taskDB.Binding(a.schema),
		Repo:     a.store.tasks,
		Mapper:   taskApp.Mapper(),
		Compiler: compiler,
		Registry: registry,
		IDs:      taskApp.IDs(),
		Cache:    a.cache,
		CacheTTL: ttl,
		Metrics:  a.metrics,
		Log:      a.log,
	}
	if a.replicas.db != nil {
		userDeps.Reader = a.replicas.users
		taskDeps.Reader = a.replicas.tasks
	}

	userCrud, err := sharedApp.NewCrudService(userDeps)
	if err != nil {
		return err
	}
	taskCrud, err := sharedApp.NewCrudService(taskDeps)
	if err != nil {
		return err
	}
	a.users = userApp.NewUserService(userCrud)
	a.tasks = taskApp.NewTaskService(taskCrud, a.log)
	return nil
}

// newApp monta el grafo completo salvo el bus de eventos y el servidor HTTP.
func newApp(ctx context.Context, cfg *config.Config, log *zap.Logger) (*app, error) {
	reg, err := buildSchema()
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:     cfg,
		log:     log,
		schema:  reg,
		promReg: prometheus.NewRegistry(),
		events:  taskDomain.RegisterEvents(userDomain.RegisterEvents(sharedEvents.Registry{})),
	}
	a.promReg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	a.metrics = metrics.New(a.promReg)

	if err := openStorage(ctx, a); err != nil {
		a.Close()
		return nil, err
	}
	if err := openReplicas(ctx, a); err != nil {
		a.Close()
		return nil, err
	}
	openCache(ctx, a)
	if err := buildServices(a); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// ---------------- Events ----------------

// startEvents arranca el relayer del outbox y los consumidores.
func (a *app) startEvents(ctx context.Context) {
	invalidator := infraEvents.NewCacheInvalidator(a.cache, a.log)
	taskConsumer := taskEvents.NewTaskConsumer(a.tasks, a.log)

	var publisher sharedBus.EventBus
	if a.cfg.UseKafka {
		a.log.Info("🚀 Usando Kafka como bus de eventos", zap.Strings("brokers", a.cfg.KafkaBrokers))
		writer := infraEvents.NewKafkaWriter(a.cfg.KafkaBrokers)
		a.onClose(func() { _ = writer.Close() })
		publisher = infraEvents.NewKafkaPublisher(writer, a.log)

		group := a.cfg.KafkaGroupID
		for _, topic := range []string{userDomain.Topic, taskDomain.Topic} {
			reader := infraEvents.NewKafkaReader(a.cfg.KafkaBrokers, topic, group+"-cache")
			infraEvents.NewConsumerAdapter(reader, invalidator, a.log).Start(ctx)
		}
		reader := infraEvents.NewKafkaReader(a.cfg.KafkaBrokers, userDomain.Topic, group+"-tasks")
		infraEvents.NewConsumerAdapter(reader, taskConsumer, a.log).Start(ctx)
	} else {
		a.log.Info("⚡️ Usando bus de eventos en memoria")
		memBus := sharedBus.NewInMemoryEventBus()
		a.onClose(memBus.Close)
		publisher = memBus

		infraEvents.ConsumeChan(ctx, memBus.Subscribe(userDomain.Topic, busBuffer), invalidator, a.log)
		infraEvents.ConsumeChan(ctx, memBus.Subscribe(taskDomain.Topic, busBuffer), invalidator, a.log)
		infraEvents.ConsumeChan(ctx, memBus.Subscribe(userDomain.Topic, busBuffer), taskConsumer, a.log)
	}

	worker := relayer.NewOutboxWorker(a.store.outbox, publisher, a.events, a.cfg.OutboxPeriod, a.cfg.OutboxLimit, a.log).
		WithObserver(a.metrics)
	go worker.Start(ctx)
}

// ---------------- HTTP ----------------

func (a *app) router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	userHttp.RegisterUserRoutes(router, a.users)
	taskHttp.RegisterTaskRoutes(router, a.tasks)

	router.GET("/health", func(c *gin.Context) {
		if a.store.sqlDB != nil {
			if err := a.store.sqlDB.PingContext(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "down", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "driver": a.cfg.StoreDriver})
	})
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(a.promReg, promhttp.HandlerOpts{})))
	return router
}
