package rpc

import (
	"context"
	"time"

	"go.uber.org/zap"

	"Warfront/internal/battle/engagement"
	"Warfront/modules/kit/logx"
)

// SnapshotSource 是快照的上游，通常是 *Client。
type SnapshotSource interface {
	Snapshots(ctx context.Context, id engagement.BattleID) ([]engagement.Snapshot, error)
}

// SnapshotSink 接收全量快照，由 actor.Runtime 实现。
type SnapshotSink interface {
	Sync(ctx context.Context, snaps []engagement.Snapshot) error
}

// Syncer 周期性地把权威节点的全量快照同步到本地副本。
type Syncer struct {
	src   SnapshotSource
	sink  SnapshotSink
	every time.Duration
	log   logx.Logger
}

func NewSyncer(src SnapshotSource, sink SnapshotSink, every time.Duration, log logx.Logger) *Syncer {
	if every <= 0 {
		every = time.Second
	}
	if log == nil {
		log = logx.Nop()
	}
	return &Syncer{src: src, sink: sink, every: every, log: log}
}

// Run 阻塞直到 ctx 结束。
func (s *Syncer) Run(ctx context.Context) {
	ticker := time.NewTicker(s.every)
	defer ticker.Stop()

	for {
		if err := s.SyncOnce(ctx); err != nil && ctx.Err() == nil {
			s.log.Warn("battle snapshot sync failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Syncer) SyncOnce(ctx context.Context) error {
	snaps, err := s.src.Snapshots(ctx, 0)
	if err != nil {
		return err
	}
	return s.sink.Sync(ctx, snaps)
}
