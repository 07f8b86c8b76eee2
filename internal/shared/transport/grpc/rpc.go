package grpc

import (
	"fmt"

	gogrpc "google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// DialBattleService 建立到权威节点的 grpc 连接，node 是本副本的标识。
func DialBattleService(addr, node string) (*gogrpc.ClientConn, error) {
	opts := []gogrpc.DialOption{
		gogrpc.WithTransportCredentials(insecure.NewCredentials()),
		gogrpc.WithChainUnaryInterceptor(UnaryClientInterceptor(node)),
	}
	conn, err := gogrpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("dial battle service failed: %w", err)
	}
	return conn, nil
}

// NewServer 创建带 trace/节点拦截器与健康检查的 grpc server。
func NewServer(opts ...gogrpc.ServerOption) (*gogrpc.Server, *health.Server) {
	opts = append([]gogrpc.ServerOption{
		gogrpc.ChainUnaryInterceptor(UnaryServerInterceptor()),
	}, opts...)
	s := gogrpc.NewServer(opts...)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(s, hs)
	return s, hs
}
