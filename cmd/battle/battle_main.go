package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.uber.org/zap"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	battleactor "Warfront/internal/battle/actor"
	"Warfront/internal/battle/actors"
	"Warfront/internal/battle/dc"
	"Warfront/internal/battle/engagement"
	battlemem "Warfront/internal/battle/infra/persistence/memory"
	battlemongo "Warfront/internal/battle/infra/persistence/mongodb"
	battlemysql "Warfront/internal/battle/infra/persistence/mysql"
	"Warfront/internal/battle/interfaces"
	battlehttp "Warfront/internal/battle/interfaces/http"
	battlerpc "Warfront/internal/battle/interfaces/rpc"
	"Warfront/internal/battle/service"
	"Warfront/internal/shared/gameconfig/scenario"
	"Warfront/internal/shared/infrastructure/db"
	sharedmongo "Warfront/internal/shared/infrastructure/mongo"
	"Warfront/internal/shared/logs"
	"Warfront/internal/shared/security"
	"Warfront/internal/shared/serverconfig"
	"Warfront/internal/shared/session"
	"Warfront/internal/shared/transport/grpc"
	transporthttp "Warfront/internal/shared/transport/http"
	"Warfront/internal/shared/transport/ws"
	"Warfront/internal/shared/utils"
	"Warfront/internal/world/entity"
	worldmem "Warfront/internal/world/infra/persistence/memory"
	worldmongo "Warfront/internal/world/infra/persistence/mongodb"
	"Warfront/modules/kit/logx"
)

func main() {
	cfgPath := flag.String("config", "", "config file path")
	awardRole := flag.String("award", "", "print a token for the given role (commander|observer) and exit")
	awardKingdom := flag.Int("kingdom", 0, "kingdom of the awarded token, 0 for any")
	flag.Parse()

	serverconfig.Load(*cfgPath)
	conf := serverconfig.Conf
	if *awardRole != "" {
		token, err := security.Award(*awardKingdom, *awardRole, 0)
		if err != nil {
			fmt.Fprintln(os.Stderr, "award token:", err)
			os.Exit(1)
		}
		fmt.Println(token)
		return
	}
	if err := logs.Init("battle", conf.Log); err != nil {
		panic(err)
	}
	logs.Info("conf", zap.Any("conf", conf))

	sc, err := scenario.Load(conf.Logic.Scenario)
	if err != nil {
		logs.Fatal("load scenario failed", zap.String("path", conf.Logic.Scenario), zap.Error(err))
	}

	serverConfig := conf.BattleServer
	host := serverConfig.Host
	if host == "" {
		host = "0.0.0.0"
	}
	httpAddr := fmt.Sprintf("%s:%d", host, serverConfig.Port)
	grpcAddr := fmt.Sprintf("%s:%d", host, serverConfig.GRPCPort)
	baseLogger := logx.NewZapLogger(logs.Logger())

	repos, reports, closeRepos := openRepos(conf, sc, serverConfig.Authority)
	defer closeRepos()

	opts := service.Options{Rules: conf.Battle, Authority: serverConfig.Authority}
	if serverConfig.Simulate {
		sim := conf.Simulation
		opts.Simulation = &sim
	}

	var client *battlerpc.Client
	if serverConfig.Authority {
		gen, err := utils.NewSnowflake(int64(conf.Logic.ServerID))
		if err != nil {
			logs.Fatal("init snowflake failed", zap.Error(err))
		}
		opts.NextID = func() engagement.BattleID { return engagement.BattleID(gen.NextID()) }
	} else {
		conn, err := grpc.DialBattleService(serverConfig.AuthorityAddr, fmt.Sprintf("battle-%d", conf.Logic.ServerID))
		if err != nil {
			logs.Fatal("dial authority failed", zap.String("addr", serverConfig.AuthorityAddr), zap.Error(err))
		}
		defer func() {
			_ = conn.Close()
		}()
		client = battlerpc.NewClient(conn, 0)
		opts.Forwarder = client
	}

	runtime := battleactor.NewRuntime(entity.WorldID(conf.Logic.WorldID), actors.Deps{
		Repos: repos,
		Diplomacy: func(w *entity.World) engagement.Diplomacy {
			return sc.Diplomacy(w)
		},
		Options:    opts,
		TickEvery:  time.Duration(serverConfig.TickMs) * time.Millisecond,
		FlushEvery: time.Duration(serverConfig.FlushMs) * time.Millisecond,
		Log:        baseLogger,
	}, 0)
	defer runtime.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sessMgr := session.NewSessMgr(func(battle entity.BattleID) {
		unwatchCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := runtime.Unwatch(unwatchCtx, battle); err != nil {
			logs.Warn("unwatch on disconnect failed", zap.Int64("battle_id", int64(battle)), zap.Error(err))
		}
	})
	battleModule := interfaces.New(runtime, reports, sessMgr, os.Getenv("JWT_SECRET") != "", baseLogger)

	wsRouter := ws.NewRouter(baseLogger)
	wsModules := []ws.Registrar{
		battleModule,
	}
	for _, m := range wsModules {
		m.WsRegister(wsRouter)
	}

	gin.SetMode(gin.ReleaseMode)
	httpServer := transporthttp.NewHttpServer(httpAddr, nil, baseLogger)
	httpModules := []transporthttp.Registrar{
		battleModule,
	}
	for _, m := range httpModules {
		m.HttpRegister(httpServer.Group())
	}
	wsServer := ws.NewServer(wsRouter, serverConfig.NeedSecret, baseLogger)
	httpServer.Engine().Any("/ws", gin.WrapH(wsServer))

	grpcServer, health := grpc.NewServer()
	if serverConfig.Authority {
		battlerpc.Register(grpcServer, runtime, baseLogger)
	}
	health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	errCh := make(chan error, 2)
	go func() {
		if err := httpServer.Start(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
			errCh <- fmt.Errorf("battle http server start failed: %w", err)
		}
	}()
	go func() {
		lis, err := net.Listen("tcp", grpcAddr)
		if err != nil {
			errCh <- fmt.Errorf("battle grpc listen failed: %w", err)
			return
		}
		if err := grpcServer.Serve(lis); err != nil {
			errCh <- fmt.Errorf("battle grpc server failed: %w", err)
		}
	}()
	if client != nil {
		syncer := battlerpc.NewSyncer(client, runtime, time.Duration(serverConfig.SyncMs)*time.Millisecond, baseLogger)
		go syncer.Run(ctx)
	}
	logs.Info("battle server started",
		zap.String("http", httpAddr),
		zap.String("grpc", grpcAddr),
		zap.Bool("authority", serverConfig.Authority),
	)

	select {
	case <-ctx.Done():
		logs.Info("收到退出信号，准备优雅退出")
	case err := <-errCh:
		logs.Error("服务异常退出", zap.Error(err))
	}

	health.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(shutdownCtx)
	grpcServer.GracefulStop()
}

// openRepos 按配置选择存储：配置了 mongodb 用它存世界与战斗快照，配置了 mysql 用它存战报，
// 否则退回内存实现。副本节点不落库，总是用内存。
func openRepos(conf serverconfig.Config, sc *scenario.Scenario, authority bool) (dc.Repos, battlehttp.ReportLister, func()) {
	repos := dc.Repos{
		World:   worldmem.NewWorldRepository(sc.Seed),
		Battles: battlemem.NewSnapshotRepository(),
	}
	memReports := battlemem.NewReportRepository()
	repos.Reports = memReports
	var reports battlehttp.ReportLister = memReports
	closers := []func(){}

	if !authority {
		return repos, reports, func() {}
	}

	ctx := context.Background()
	client, err := sharedmongo.Open(ctx, conf.MongoDB, logs.Logger())
	switch {
	case errors.Is(err, sharedmongo.ErrNotConfigured):
		logs.Warn("mongodb not configured, world and battle snapshots stay in memory")
	case err != nil:
		logs.Fatal("open mongodb failed", zap.Error(err))
	default:
		database := client.Database(conf.MongoDB.Database)
		repos.World = worldmongo.NewWorldRepository(database, sc.Seed)
		repos.Battles = battlemongo.NewSnapshotRepository(database)
		closers = append(closers, func() { disconnect(client) })
	}

	gdb, err := db.Open(conf.MySQL)
	switch {
	case err != nil:
		logs.Fatal("open mysql failed", zap.Error(err))
	case gdb == nil:
		logs.Warn("mysql not configured, battle reports stay in memory")
	default:
		repo := battlemysql.NewReportRepo(gdb)
		if err := repo.AutoMigrate(ctx); err != nil {
			logs.Fatal("migrate battle_report failed", zap.Error(err))
		}
		repos.Reports = repo
		reports = repo
	}

	return repos, reports, func() {
		for _, c := range closers {
			c()
		}
	}
}

func disconnect(client *mongo.Client) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = client.Disconnect(ctx)
}
