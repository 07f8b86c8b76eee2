package serverconfig

import (
	"Warfront/internal/battle/engagement"
	"Warfront/internal/battle/simulation"
	"Warfront/internal/shared/logs"
)

type Config struct {
	BattleServer BattleServerConfig `yaml:"battleserver" mapstructure:"battleserver"`
	MongoDB      MongoDBConfig      `yaml:"mongodb" mapstructure:"mongodb"`
	MySQL        MySQLConfig        `yaml:"mysql" mapstructure:"mysql"`
	Log          LogConfig          `yaml:"log" mapstructure:"log"`
	Logic        LogicConfig        `yaml:"logic" mapstructure:"logic"`
	Battle       engagement.Rules   `yaml:"battle" mapstructure:"battle"`
	Simulation   simulation.Config  `yaml:"simulation" mapstructure:"simulation"`
	JWTSecret    string             `yaml:"jwt_secret" mapstructure:"jwt_secret"`
}

type BattleServerConfig struct {
	Host       string `yaml:"host" mapstructure:"host"`
	Port       int    `yaml:"port" mapstructure:"port"`
	GRPCPort   int    `yaml:"grpc_port" mapstructure:"grpc_port"`
	NeedSecret bool   `yaml:"need_secret" mapstructure:"need_secret"`

	// Authority 为 false 时本节点是副本，指令转发到 AuthorityAddr
	Authority     bool   `yaml:"authority" mapstructure:"authority"`
	AuthorityAddr string `yaml:"authority_addr" mapstructure:"authority_addr"`
	TickMs        int    `yaml:"tick_ms" mapstructure:"tick_ms"`
	FlushMs       int    `yaml:"flush_ms" mapstructure:"flush_ms"`
	// SyncMs 副本拉取快照的间隔
	SyncMs int `yaml:"sync_ms" mapstructure:"sync_ms"`

	// Simulate 开启内置自动解算
	Simulate bool `yaml:"simulate" mapstructure:"simulate"`
}

type MongoDBConfig struct {
	URI      string `yaml:"uri" mapstructure:"uri"`
	Database string `yaml:"database" mapstructure:"database"`
	// TimeoutMs 连接与 ping 的超时
	TimeoutMs int `yaml:"timeout_ms" mapstructure:"timeout_ms"`
}

type MySQLConfig struct {
	Host     string `yaml:"host" mapstructure:"host"`
	Port     int    `yaml:"port" mapstructure:"port"`
	User     string `yaml:"user" mapstructure:"user"`
	Password string `yaml:"password" mapstructure:"password"`
	DBName   string `yaml:"dbname" mapstructure:"dbname"`
	Charset  string `yaml:"charset" mapstructure:"charset"`
	MaxIdle  int    `yaml:"max_idle" mapstructure:"max_idle"`
	MaxConn  int    `yaml:"max_conn" mapstructure:"max_conn"`
	ShowSQL  bool   `yaml:"show_sql" mapstructure:"show_sql"`
}

type LogConfig = logs.Config

type LogicConfig struct {
	Scenario string `yaml:"scenario" mapstructure:"scenario"`
	ServerID int    `yaml:"server_id" mapstructure:"server_id"`
	WorldID  int    `yaml:"world_id" mapstructure:"world_id"`
}
